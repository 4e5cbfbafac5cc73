package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yegors/preflight/pkg/logger"
)

// StaticFileHandler serves the dashboard. Unknown paths without an extension get index.html
// so client-side routes such as /flights/{id} survive a reload.
type StaticFileHandler struct {
	staticDir string
	logger    *logger.Logger
}

// NewStaticFileHandler creates a new static file handler
func NewStaticFileHandler(staticDir string, log *logger.Logger) *StaticFileHandler {
	return &StaticFileHandler{
		staticDir: staticDir,
		logger:    log.Named("static-handler"),
	}
}

// ServeHTTP serves static files dynamically
func (h *StaticFileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(filepath.Clean("/"+r.URL.Path), "/")
	if path == "" {
		path = "index.html"
	}
	fullPath := filepath.Join(h.staticDir, path)

	absStaticDir, err := filepath.Abs(h.staticDir)
	if err != nil {
		h.logger.Error("Failed to get absolute path for static directory", logger.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	absFullPath, err := filepath.Abs(fullPath)
	if err != nil {
		h.logger.Error("Failed to get absolute path for requested file", logger.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if absFullPath != absStaticDir && !strings.HasPrefix(absFullPath, absStaticDir+string(filepath.Separator)) {
		h.logger.Warn("Attempted directory traversal attack",
			logger.String("requested_path", path),
			logger.String("full_path", absFullPath),
			logger.String("static_dir", absStaticDir))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	fileInfo, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			if filepath.Ext(path) != "" || strings.HasPrefix(path, "api/") {
				h.logger.Debug("File not found", logger.String("path", fullPath))
				http.NotFound(w, r)
				return
			}
			fullPath = filepath.Join(h.staticDir, "index.html")
			if fileInfo, err = os.Stat(fullPath); err != nil {
				http.NotFound(w, r)
				return
			}
		} else {
			h.logger.Error("Failed to stat file", logger.Error(err), logger.String("path", fullPath))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	if fileInfo.IsDir() {
		indexPath := filepath.Join(fullPath, "index.html")
		if _, err := os.Stat(indexPath); err == nil {
			fullPath = indexPath
		} else {
			h.logger.Debug("Directory listing not allowed", logger.String("path", fullPath))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	w.Header().Set("Cache-Control", "no-cache")

	h.logger.Debug("Serving static file",
		logger.String("requested_path", r.URL.Path),
		logger.String("file_path", fullPath))

	http.ServeFile(w, r, fullPath)
}
