// Package webui serves the map front end from a directory on disk.
package webui

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goldenbrick/markermap/internal/apperr"
	apphttp "github.com/goldenbrick/markermap/internal/http"
)

// Bundle exposes the front-end files for serving.
type Bundle struct {
	DistFS    fs.FS  // Root filesystem.
	IndexHTML []byte // Raw index HTML content.
}

// Load opens dir and reads its index.html.
func Load(dir string) (Bundle, error) {
	info, errStat := os.Stat(dir)
	if errStat != nil {
		return Bundle{}, fmt.Errorf("webui: %w", errStat)
	}
	if !info.IsDir() {
		return Bundle{}, fmt.Errorf("webui: %s is not a directory", dir)
	}
	return FromFS(os.DirFS(dir))
}

// FromFS builds a Bundle from any filesystem containing index.html.
func FromFS(dist fs.FS) (Bundle, error) {
	indexHTML, errReadFile := fs.ReadFile(dist, "index.html")
	if errReadFile != nil {
		return Bundle{}, fmt.Errorf("webui: read index.html: %w", errReadFile)
	}
	return Bundle{DistFS: dist, IndexHTML: indexHTML}, nil
}

// Register serves files for unmatched GET and HEAD requests and falls back to
// index.html for client-side routes. Unknown API paths get a JSON 404.
func (b Bundle) Register(engine *gin.Engine) {
	fileServer := http.FileServer(http.FS(b.DistFS))
	engine.NoRoute(func(c *gin.Context) {
		requestPath := c.Request.URL.Path
		if isAPIRoute(requestPath) || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			apphttp.RespondError(c, apperr.NotFound("Route"))
			return
		}
		cleanedPath := path.Clean("/" + requestPath)
		filePath := strings.TrimPrefix(cleanedPath, "/")
		if filePath != "" {
			fileInfo, errStat := fs.Stat(b.DistFS, filePath)
			if errStat == nil && !fileInfo.IsDir() {
				fileServer.ServeHTTP(c.Writer, c.Request)
				return
			}
			if errStat != nil && !errors.Is(errStat, fs.ErrNotExist) {
				c.Status(http.StatusInternalServerError)
				return
			}
			if strings.HasPrefix(cleanedPath, "/static/") || strings.Contains(path.Base(filePath), ".") {
				c.Status(http.StatusNotFound)
				return
			}
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", b.IndexHTML)
	})
}

// NotFoundJSON answers every unmatched route with the JSON error shape.
func NotFoundJSON(engine *gin.Engine) {
	engine.NoRoute(func(c *gin.Context) {
		apphttp.RespondError(c, apperr.NotFound("Route"))
	})
}

// isAPIRoute reports whether a path targets API endpoints.
func isAPIRoute(requestPath string) bool {
	for _, prefix := range []string{"/api", "/healthz", "/metrics"} {
		if requestPath == prefix || strings.HasPrefix(requestPath, prefix+"/") {
			return true
		}
	}
	return false
}
