package web

import (
	"io/fs"
	"net/http"
	"os"
	"strings"
)

// FileServer serves files from fsys without directory listings.
// Requests for directories return 404.
func FileServer(fsys fs.FS) http.Handler {
	server := http.FileServer(http.FS(fsys))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name == "" || strings.HasSuffix(name, "/") {
			http.NotFound(w, r)
			return
		}
		if info, err := fs.Stat(fsys, name); err != nil || info.IsDir() {
			http.NotFound(w, r)
			return
		}
		server.ServeHTTP(w, r)
	})
}

// DirServer serves files beneath dir on disk, stripping urlPrefix from the request path.
func DirServer(dir, urlPrefix string) http.Handler {
	return http.StripPrefix(urlPrefix, FileServer(os.DirFS(dir)))
}

// EmbeddedServer serves files from subdir of an embedded filesystem, stripping urlPrefix.
func EmbeddedServer(fsys fs.FS, subdir, urlPrefix string) (http.Handler, error) {
	sub, err := fs.Sub(fsys, subdir)
	if err != nil {
		return nil, err
	}
	return http.StripPrefix(urlPrefix, FileServer(sub)), nil
}
