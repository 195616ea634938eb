// internal/api/server_handlers.go
// Game-server management HTTP handlers. RCON passwords arrive in
// plaintext and are sealed before they touch the store; they never
// appear in any response.

package api

import (
	"context"
	"net/http"

	"matchzy-auto-tournament/internal/apperrors"
	"matchzy-auto-tournament/internal/models"
	"matchzy-auto-tournament/internal/utils"

	"github.com/gin-gonic/gin"
)

// ServerRequest is the operator payload for creating or updating a server.
type ServerRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name" binding:"required"`
	Host         string `json:"host" binding:"required"`
	Port         int    `json:"port" binding:"required"`
	RCONPassword string `json:"rconPassword"`
	Enabled      *bool  `json:"enabled"`
}

func (deps *Deps) serverFromRequest(req ServerRequest) (*models.Server, error) {
	if err := utils.ValidatePort(req.Port); err != nil {
		return nil, apperrors.Validationf("%v", err)
	}

	server := &models.Server{
		ID:      req.ID,
		Name:    req.Name,
		Host:    req.Host,
		Port:    req.Port,
		Enabled: true,
	}
	if server.ID == "" {
		server.ID = utils.TeamID(req.Name)
	}
	if req.Enabled != nil {
		server.Enabled = *req.Enabled
	}
	if req.RCONPassword != "" {
		sealed, err := deps.Sealer.Seal(req.RCONPassword)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.Internal, "seal rcon password", err)
		}
		server.RCONPassword = sealed
	}
	return server, nil
}

// HandleListServers lists all servers
func HandleListServers(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		servers, err := deps.Store.ListServers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"servers": servers})
	}
}

// HandleCreateServer creates a server; ?upsert=true overwrites.
func HandleCreateServer(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ServerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}

		server, err := deps.serverFromRequest(req)
		if err != nil {
			respondError(c, err)
			return
		}
		if server.RCONPassword == "" {
			respondError(c, apperrors.Validationf("rconPassword is required"))
			return
		}

		if c.Query("upsert") != "true" {
			if _, err := deps.Store.GetServer(c.Request.Context(), server.ID); err == nil {
				respondError(c, apperrors.Conflictf("server %q already exists", server.ID))
				return
			}
		}

		if err := deps.Store.UpsertServer(c.Request.Context(), server); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"server": server})
	}
}

// HandleBatchCreateServers creates a server fleet in one call.
func HandleBatchCreateServers(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reqs []ServerRequest
		if err := c.ShouldBindJSON(&reqs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}

		servers := make([]*models.Server, 0, len(reqs))
		for _, req := range reqs {
			server, err := deps.serverFromRequest(req)
			if err != nil {
				respondError(c, err)
				return
			}
			servers = append(servers, server)
		}

		err := deps.Store.Transaction(c.Request.Context(), func(ctx context.Context) error {
			for _, server := range servers {
				if err := deps.Store.UpsertServer(ctx, server); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"servers": servers, "count": len(servers)})
	}
}

// HandleUpdateServer updates a server; omitting rconPassword keeps the
// stored one.
func HandleUpdateServer(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		existing, err := deps.Store.GetServer(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}

		var req ServerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}
		req.ID = existing.ID
		server, err := deps.serverFromRequest(req)
		if err != nil {
			respondError(c, err)
			return
		}
		if server.RCONPassword == "" {
			server.RCONPassword = existing.RCONPassword
		}
		server.CreatedAt = existing.CreatedAt

		if err := deps.Store.UpsertServer(c.Request.Context(), server); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"server": server})
	}
}

// HandleDeleteServer deletes a server unless a non-completed match is
// bound to it.
func HandleDeleteServer(deps *Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Store.DeleteServer(c.Request.Context(), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Server deleted"})
	}
}
