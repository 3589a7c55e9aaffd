package web

import (
	"io/fs"
	"net/http"
)

// DistServer serves files from the subdir of fsys with urlPrefix removed
// from the request path.
func DistServer(fsys fs.FS, subdir, urlPrefix string) (http.HandlerFunc, error) {
	sub, err := fs.Sub(fsys, subdir)
	if err != nil {
		return nil, err
	}
	server := http.StripPrefix(urlPrefix, http.FileServer(http.FS(sub)))
	return server.ServeHTTP, nil
}
