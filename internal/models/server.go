// internal/models/server.go
// Game server entity

package models

import (
	"strconv"
	"time"
)

// Server is a single game-server the allocator can bind matches to.
// (Host, Port) must be unique among enabled servers; RCONPassword is
// stored sealed and only decrypted when dispatching a command.
type Server struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	Host          string    `json:"host" db:"host"`
	Port          int       `json:"port" db:"port"`
	RCONPassword  string    `json:"-" db:"rcon_password_sealed"`
	Enabled       bool      `json:"enabled" db:"enabled"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
	Version       int       `json:"version" db:"version"`
}

// Addr returns the host:port the RCON client dials.
func (s *Server) Addr() string {
	return s.Host + ":" + strconv.Itoa(s.Port)
}
