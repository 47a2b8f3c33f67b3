// Package web embeds the single-page upload client.
package web

import _ "embed"

// IndexHTML is served at GET /
//
//go:embed index.html
var IndexHTML []byte
