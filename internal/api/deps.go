// internal/api/deps.go
// Handler dependencies and the shared error-to-response mapping.

package api

import (
	"errors"
	"log"
	"net/http"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/cache"
	"matchzy-auto-tournament/internal/config"
	"matchzy-auto-tournament/internal/ingest"
	"matchzy-auto-tournament/internal/matchstate"
	"matchzy-auto-tournament/internal/scheduler"
	"matchzy-auto-tournament/internal/secrets"
	"matchzy-auto-tournament/internal/steam"
	"matchzy-auto-tournament/internal/store"

	"github.com/gin-gonic/gin"
)

// Deps bundles everything the handlers touch, passed explicitly to each
// route registration instead of living in package state.
type Deps struct {
	Store     store.Store
	Cache     *cache.Cache
	Events    *ingest.Router
	Scheduler *scheduler.Scheduler
	Machine   *matchstate.Machine
	RCON      scheduler.CommandSender
	Sealer    *secrets.Sealer
	Steam     steam.Resolver
	Config    *config.Config
	Logger    *log.Logger
}

// respondError maps the error taxonomy onto HTTP responses with a
// stable machine-readable code.
func respondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		c.JSON(apperrors.HTTPStatus(appErr.Code), gin.H{
			"error": appErr.Message,
			"code":  string(appErr.Code),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
		"code":  string(apperrors.Internal),
	})
}
