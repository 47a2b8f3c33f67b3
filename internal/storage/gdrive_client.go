package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveClient handles uploading to Google Drive
type DriveClient struct {
	service    *drive.Service
	folderName string
	folderID   string
	model      string
}

// NewDriveClient creates a Google Drive client from an OAuth client secret
// and a previously cached token. It never prompts for authorisation.
func NewDriveClient(ctx context.Context, credentialsFile, tokenFile, folderName, model string) (*DriveClient, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, errors.Wrap(err, "unable to read credentials file")
	}

	config, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, errors.Wrap(err, "unable to parse credentials")
	}

	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		return nil, errors.Wrapf(err, "no cached token at %s", tokenFile)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx, tok)))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create Drive service")
	}

	dc := &DriveClient{
		service:    srv,
		folderName: folderName,
		model:      model,
	}

	if dc.folderID, err = dc.findOrCreateFolder(ctx, folderName, ""); err != nil {
		return nil, errors.Wrap(err, "unable to prepare root folder")
	}

	return dc, nil
}

// tokenFromFile retrieves a token from a local file
func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// Upload stores the transcript and its metadata under folder/YYYY/MM/DD and
// returns a link to the transcript file
func (dc *DriveClient) Upload(ctx context.Context, result *types.TranscriptionResult) (string, error) {
	folderID, err := dc.ensureDateFolder(ctx, result.ProcessedAt)
	if err != nil {
		return "", err
	}

	baseFilename := archiveBaseName(result)

	txtFile := &drive.File{
		Name:     baseFilename + ".txt",
		MimeType: "text/plain",
		Parents:  []string{folderID},
	}

	created, err := dc.service.Files.Create(txtFile).
		Media(strings.NewReader(result.Text)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", errors.Wrap(err, "failed to upload transcript")
	}

	metaJSON, err := json.MarshalIndent(transcriptMetadata(result, dc.model, ""), "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal metadata")
	}

	metaFile := &drive.File{
		Name:     baseFilename + "_meta.json",
		MimeType: "application/json",
		Parents:  []string{folderID},
	}

	_, err = dc.service.Files.Create(metaFile).
		Media(bytes.NewReader(metaJSON)).
		Context(ctx).
		Do()
	if err != nil {
		return "", errors.Wrap(err, "failed to upload metadata")
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id), nil
}

// ensureDateFolder creates nested year/month/day folders
func (dc *DriveClient) ensureDateFolder(ctx context.Context, t time.Time) (string, error) {
	parent := dc.folderID
	for _, name := range []string{
		fmt.Sprintf("%d", t.Year()),
		fmt.Sprintf("%02d", t.Month()),
		fmt.Sprintf("%02d", t.Day()),
	} {
		id, err := dc.findOrCreateFolder(ctx, name, parent)
		if err != nil {
			return "", errors.Wrapf(err, "failed to prepare folder %s", name)
		}
		parent = id
	}
	return parent, nil
}

// findOrCreateFolder finds or creates a folder; an empty parentID means the
// Drive root
func (dc *DriveClient) findOrCreateFolder(ctx context.Context, name, parentID string) (string, error) {
	query := fmt.Sprintf("name='%s' and mimeType='%s' and trashed=false", escapeQuery(name), folderMimeType)
	if parentID != "" {
		query += fmt.Sprintf(" and '%s' in parents", escapeQuery(parentID))
	}

	r, err := dc.service.Files.List().Q(query).Spaces("drive").Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return "", err
	}

	if len(r.Files) > 0 {
		return r.Files[0].Id, nil
	}

	folder := &drive.File{
		Name:     name,
		MimeType: folderMimeType,
	}
	if parentID != "" {
		folder.Parents = []string{parentID}
	}

	file, err := dc.service.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", err
	}

	return file.Id, nil
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
