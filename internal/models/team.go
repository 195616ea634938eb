// internal/models/team.go
// Team and player entities

package models

import "time"

// Player is a single roster member, keyed by steamId64 within a team.
type Player struct {
	SteamID64   string `json:"steamId64" db:"steam_id64"`
	DisplayName string `json:"displayName" db:"display_name"`
}

// Team is operator-owned and mutable at will while not bound to a live match.
type Team struct {
	ID             string    `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Tag            string    `json:"tag" db:"tag"`
	DiscordRoleID  *string   `json:"discordRoleId,omitempty" db:"discord_role_id"`
	Players        []Player  `json:"players" db:"-"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
	Version        int       `json:"version" db:"version"`
}
