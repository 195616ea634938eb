// internal/api/demo_handlers.go
// Demo-file downloads, streamed from DEMO_DIR with range support.

package api

import (
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"matchzy-auto-tournament/internal/apperrors"

	"github.com/gin-gonic/gin"
)

// HandleDownloadDemo streams one of a match's demo files. Without a map
// number the first recorded demo is served.
func HandleDownloadDemo(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		match, err := deps.Store.GetMatch(c.Request.Context(), slug)
		if err != nil {
			respondError(c, err)
			return
		}
		if len(match.DemoFilePaths) == 0 {
			respondError(c, apperrors.NotFoundf("no demos recorded for match %s", slug))
			return
		}

		index := 0
		if raw := c.Param("mapNumber"); raw != "" {
			index, err = strconv.Atoi(raw)
			if err != nil || index < 0 || index >= len(match.DemoFilePaths) {
				respondError(c, apperrors.Validationf("invalid map number %q", raw))
				return
			}
		}

		// Demo paths are stored relative to DEMO_DIR; refuse anything
		// that escapes it.
		demoPath := filepath.Clean(match.DemoFilePaths[index])
		if strings.HasPrefix(demoPath, "..") || filepath.IsAbs(demoPath) {
			respondError(c, apperrors.Validationf("invalid demo path"))
			return
		}
		full := filepath.Join(deps.Config.External.DemoDir, demoPath)

		c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(full)+`"`)
		c.Header("Content-Type", "application/octet-stream")
		http.ServeFile(c.Writer, c.Request, full)
	}
}
