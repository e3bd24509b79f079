package inventory

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"NexStock/pkg/kit"
)

const indexFile = "index.html"

// Static serves the dashboard's files from Dir. Paths that escape Dir are
// refused; unknown paths without an extension get index.html so client-side
// routes survive a reload.
type Static struct {
	Dir string
}

func NewStatic(dir string) *Static {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return &Static{Dir: filepath.Clean(dir)}
}

func (s *Static) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		kit.WriteError(w, r, http.StatusNotFound, "File not found", nil)
		return
	}

	rel := r.URL.Path
	if rel == "" || rel == "/" {
		rel = "/" + indexFile
	}

	full := filepath.Join(s.Dir, filepath.FromSlash(rel))
	if !s.contains(full) {
		kit.WriteError(w, r, http.StatusForbidden, "Forbidden", nil)
		return
	}

	if s.serveFile(w, r, full) {
		return
	}
	if filepath.Ext(full) == "" && s.serveFile(w, r, filepath.Join(s.Dir, indexFile)) {
		return
	}
	kit.WriteError(w, r, http.StatusNotFound, "File not found", nil)
}

func (s *Static) contains(path string) bool {
	rel, err := filepath.Rel(s.Dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// serveFile reports false when path is missing or a directory.
func (s *Static) serveFile(w http.ResponseWriter, r *http.Request, path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
	return true
}
