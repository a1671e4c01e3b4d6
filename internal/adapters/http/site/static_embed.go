package site

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// staticRoot is the embedded tree rooted at static/.
var staticRoot fs.FS = func() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return staticFS
	}
	return sub
}()

// FS returns an http.FileSystem for the embedded front end.
func FS() http.FileSystem {
	return http.FS(staticRoot)
}
