package httpserver

import (
	"io"
	"net/http"
	"path"
	"strings"
)

const rootGreeting = "Hello World!"

// StaticHandler serves files from dir. GET / serves dir/index.html when it
// exists and a plain greeting otherwise. Directories without an index and
// missing files are 404. An empty dir serves only the greeting.
func StaticHandler(dir string) http.Handler {
	var fsys http.FileSystem
	if strings.TrimSpace(dir) != "" {
		fsys = http.Dir(dir)
	}
	var files http.Handler
	if fsys != nil {
		files = http.FileServer(fsys)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := path.Clean("/" + r.URL.Path)
		if name == "/" {
			if fsys != nil && isFile(fsys, "/index.html") {
				files.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = io.WriteString(w, rootGreeting)
			return
		}

		if fsys == nil {
			http.NotFound(w, r)
			return
		}
		if !isFile(fsys, name) && !isFile(fsys, path.Join(name, "index.html")) {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func isFile(fsys http.FileSystem, name string) bool {
	f, err := fsys.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()
	st, err := f.Stat()
	return err == nil && !st.IsDir()
}
