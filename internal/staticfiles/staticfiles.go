// Package staticfiles serves the game's frontend bundle from a configured
// document root, rejecting any request that would escape it.
package staticfiles

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/strayfetch/fetchserver/internal/apperr"
)

var extensionTypes = map[string]string{
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".txt":  "text/plain",
	".js":   "application/javascript",
	".json": "application/json",
	".xml":  "application/xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".ico":  "image/vnd.microsoft.icon",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".svg":  "image/svg+xml",
	".mp3":  "audio/mpeg",
}

const defaultContentType = "application/octet-stream"

// Handler serves files rooted at root, falling back to index.html for
// directory requests (including the document root itself).
type Handler struct {
	root string
}

// New builds a Handler rooted at root.
func New(root string) *Handler {
	return &Handler{root: root}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path, err := h.resolve(r.URL.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	if info, statErr := os.Stat(path); statErr != nil || info.IsDir() {
		writeError(w, apperr.New(apperr.FileNotFound, "Requested file not found"))
		return
	}
	w.Header().Set("Content-Type", contentType(path))
	http.ServeFile(w, r, path)
}

// resolve maps a request path to a file under root, rejecting any path
// that would escape it after cleaning.
func (h *Handler) resolve(requestPath string) (string, error) {
	clean := filepath.Clean("/" + requestPath)
	if strings.HasSuffix(requestPath, "/") || clean == "/" {
		clean = filepath.Join(clean, "index.html")
	}

	full := filepath.Join(h.root, clean)
	rel, err := filepath.Rel(h.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", apperr.New(apperr.FilePathEscape, "Request outside document root")
	}
	return full, nil
}

func contentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := extensionTypes[ext]; ok {
		return ct
	}
	return defaultContentType
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if ae, ok := err.(*apperr.Error); ok {
		appErr = ae
	} else {
		appErr = apperr.New(apperr.Internal, "Internal server error")
	}
	http.Error(w, appErr.Message, appErr.Status())
}
