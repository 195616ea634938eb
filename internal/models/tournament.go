// internal/models/tournament.go
// Tournament singleton and bracket type/format enums

package models

import "time"

type TournamentType string

const (
	TypeSingleElim TournamentType = "single_elim"
	TypeDoubleElim TournamentType = "double_elim"
	TypeRoundRobin TournamentType = "round_robin"
	TypeSwiss      TournamentType = "swiss"
)

type MatchFormat string

const (
	FormatBo1 MatchFormat = "bo1"
	FormatBo3 MatchFormat = "bo3"
	FormatBo5 MatchFormat = "bo5"
)

// NumMaps returns the number of maps a best-of format is played to.
func (f MatchFormat) NumMaps() int {
	switch f {
	case FormatBo1:
		return 1
	case FormatBo3:
		return 3
	case FormatBo5:
		return 5
	default:
		return 1
	}
}

type TournamentStatus string

const (
	TournamentSetup      TournamentStatus = "setup"
	TournamentReady      TournamentStatus = "ready"
	TournamentInProgress TournamentStatus = "in_progress"
	TournamentCompleted  TournamentStatus = "completed"
)

// Tournament is a singleton per deployment; mutable only while status==setup.
type Tournament struct {
	ID        string           `json:"id" db:"id"`
	Name      string           `json:"name" db:"name"`
	Type      TournamentType   `json:"type" db:"type"`
	Format    MatchFormat      `json:"format" db:"format"`
	MapPool   []string         `json:"mapPool" db:"-"`
	TeamIDs   []string         `json:"teamIds" db:"-"`
	Status    TournamentStatus `json:"status" db:"status"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time        `json:"updatedAt" db:"updated_at"`
	Version   int              `json:"version" db:"version"`
}

// SingletonID is the fixed primary key every Tournament row uses.
const SingletonID = "singleton"
