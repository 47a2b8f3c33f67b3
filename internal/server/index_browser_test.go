package server

import (
	"context"
	"fmt"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/groq-transcribe/internal/transcription"
	"github.com/codebuildervaibhav/groq-transcribe/internal/types"
)

const placeholderText = "Your transcription will appear here."

var chromeBinaries = []string{
	"headless-shell",
	"headless_shell",
	"chromium",
	"chromium-browser",
	"google-chrome",
	"google-chrome-stable",
}

// uploadState is what the page shows around a drop
type uploadState struct {
	InputDisabled bool   `json:"inputDisabled"`
	AriaDisabled  string `json:"ariaDisabled"`
	Transcript    string `json:"transcript"`
	Uploads       int    `json:"uploads"`
}

// countFetchesJS wraps window.fetch so the page's requests can be counted
const countFetchesJS = `(function () {
	window.__uploads = 0;
	var realFetch = window.fetch;
	window.fetch = function () {
		window.__uploads++;
		return realFetch.apply(this, arguments);
	};
	return true;
})()`

const uploadStateJS = `({
	inputDisabled: document.getElementById("file").disabled,
	ariaDisabled: document.getElementById("dropzone").getAttribute("aria-disabled"),
	transcript: document.getElementById("transcript").textContent,
	uploads: window.__uploads
})`

func dropFileJS(name, mimeType string) string {
	return fmt.Sprintf(`(function () {
	var dt = new DataTransfer();
	dt.items.add(new File(["fake audio bytes"], %q, {type: %q}));
	document.getElementById("dropzone").dispatchEvent(
		new DragEvent("drop", {dataTransfer: dt, bubbles: true, cancelable: true}));
	return true;
})()`, name, mimeType)
}

func newBrowser(t *testing.T) context.Context {
	t.Helper()

	var execPath string
	for _, name := range chromeBinaries {
		if path, err := exec.LookPath(name); err == nil {
			execPath = path
			break
		}
	}
	if execPath == "" {
		t.Skip("no Chrome or Chromium binary on PATH")
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.NoSandbox,
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelBrowser := chromedp.NewContext(allocCtx)
	ctx, cancelTimeout := context.WithTimeout(ctx, 30*time.Second)
	t.Cleanup(func() {
		cancelTimeout()
		cancelBrowser()
		cancelAlloc()
	})
	return ctx
}

func openUploadPage(t *testing.T, browser context.Context, baseURL string) {
	t.Helper()

	var ok bool
	require.NoError(t, chromedp.Run(browser,
		chromedp.Navigate(baseURL+"/"),
		chromedp.WaitReady("#dropzone", chromedp.ByQuery),
		chromedp.Evaluate(countFetchesJS, &ok),
	))
}

func readUploadState(t *testing.T, browser context.Context) uploadState {
	t.Helper()

	var state uploadState
	require.NoError(t, chromedp.Run(browser, chromedp.Evaluate(uploadStateJS, &state)))
	return state
}

func TestUploadClientIgnoresNonAudioDrop(t *testing.T) {
	browser := newBrowser(t)
	// no EXPECT: any provider call fails the test
	ts := newTestServer(t, nil)
	baseURL := listen(t, ts.app)
	openUploadPage(t, browser, baseURL)

	var ok bool
	require.NoError(t, chromedp.Run(browser,
		chromedp.Evaluate(dropFileJS("notes.txt", "text/plain"), &ok),
		chromedp.Sleep(500*time.Millisecond),
	))

	state := readUploadState(t, browser)
	require.Zero(t, state.Uploads)
	require.False(t, state.InputDisabled)
	require.Equal(t, "false", state.AriaDisabled)
	require.Equal(t, placeholderText, state.Transcript)
	require.Zero(t, ts.pool.submits.Load())
}

func TestUploadClientTranscribesAudioDrop(t *testing.T) {
	browser := newBrowser(t)
	ts := newTestServer(t, nil)
	baseURL := listen(t, ts.app)

	called := make(chan struct{})
	release := make(chan struct{})
	var releaseOnce sync.Once
	releaseProvider := func() { releaseOnce.Do(func() { close(release) }) }
	t.Cleanup(releaseProvider)

	ts.provider.EXPECT().
		Transcribe(gomock.Any(), transcription.Audio{Filename: "clip.mp3", Data: []byte("fake audio bytes")}, transcription.Options{}).
		DoAndReturn(func(context.Context, transcription.Audio, transcription.Options) (*types.TranscriptionResult, error) {
			close(called)
			<-release
			return segmentsResult(), nil
		}).
		Times(1)

	openUploadPage(t, browser, baseURL)

	var ok bool
	require.NoError(t, chromedp.Run(browser, chromedp.Evaluate(dropFileJS("clip.mp3", "audio/mpeg"), &ok)))

	select {
	case <-called:
	case <-time.After(10 * time.Second):
		t.Fatal("upload never reached the provider")
	}

	loading := readUploadState(t, browser)
	require.True(t, loading.InputDisabled)
	require.Equal(t, "true", loading.AriaDisabled)
	require.Equal(t, "Transcribing...", loading.Transcript)

	// a drop while loading is ignored
	require.NoError(t, chromedp.Run(browser, chromedp.Evaluate(dropFileJS("second.mp3", "audio/mpeg"), &ok)))

	releaseProvider()
	require.NoError(t, chromedp.Run(browser, chromedp.WaitVisible("#copy", chromedp.ByQuery)))

	done := readUploadState(t, browser)
	require.False(t, done.InputDisabled)
	require.Equal(t, "false", done.AriaDisabled)
	require.Equal(t, "(0:00) hi (1:05) there", done.Transcript)
	require.Equal(t, 1, done.Uploads)
	require.EqualValues(t, 1, ts.pool.submits.Load())
}

func TestUploadClientShowsFixedErrorOnFailure(t *testing.T) {
	browser := newBrowser(t)
	ts := newTestServer(t, nil)
	baseURL := listen(t, ts.app)

	ts.provider.EXPECT().
		Transcribe(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("Invalid API Key"))

	openUploadPage(t, browser, baseURL)

	var ok bool
	require.NoError(t, chromedp.Run(browser,
		chromedp.Evaluate(dropFileJS("clip.wav", "audio/wav"), &ok),
		chromedp.WaitVisible("#copy", chromedp.ByQuery),
	))

	state := readUploadState(t, browser)
	require.Equal(t, "Error: Failed to transcribe audio. Please try again.", state.Transcript)
	require.False(t, state.InputDisabled)
}
