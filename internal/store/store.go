// internal/store/store.go
// Store is the transactional persistence boundary every other component
// goes through. One interface so callers (scheduler, matchstate,
// ingest, api) depend on a contract rather than concrete MySQL/Mongo
// types.

package store

import (
	"context"

	"matchzy-auto-tournament/internal/models"
)

// MatchFilter narrows ListMatches. Zero-value fields are unconstrained.
type MatchFilter struct {
	Status     models.MatchStatus
	BracketTag string
	ServerRef  string
	Round      int
	HasRound   bool
}

// MatchPatch is an optimistic-lock partial update. Only non-nil fields
// are applied; ExpectedVersion guards the commit.
type MatchPatch struct {
	ExpectedVersion  int
	Status           *models.MatchStatus
	MatchPhase       *models.MatchPhase
	Team1Ref         **string
	Team2Ref         **string
	WinnerRef        **string
	ServerRef        **string
	ReadyAt          *bool // true sets readyAt=now if unset
	LoadedAt         *bool // true sets loadedAt=now if unset, left nil leaves unset
	CompletedAt      *bool
	VetoCompleted    *bool
	Config           *models.MatchConfig
	MapResults       *[]models.MapResult
	Team1Score       *int
	Team2Score       *int
	Team1SeriesScore *int
	Team2SeriesScore *int
	DemoFilePaths    *[]string
	Notes            **string
}

// Store is the full persistence contract for the control plane.
type Store interface {
	GetTeam(ctx context.Context, id string) (*models.Team, error)
	ListTeams(ctx context.Context) ([]*models.Team, error)
	UpsertTeam(ctx context.Context, team *models.Team) error
	DeleteTeam(ctx context.Context, id string) error

	GetServer(ctx context.Context, id string) (*models.Server, error)
	ListServers(ctx context.Context) ([]*models.Server, error)
	UpsertServer(ctx context.Context, server *models.Server) error
	DeleteServer(ctx context.Context, id string) error

	GetTournament(ctx context.Context) (*models.Tournament, error)
	UpsertTournament(ctx context.Context, t *models.Tournament) error
	ResetTournament(ctx context.Context) error
	WipeDatabase(ctx context.Context) error
	WipeTable(ctx context.Context, table string) error

	CreateMatches(ctx context.Context, batch []*models.Match) error
	GetMatch(ctx context.Context, slug string) (*models.Match, error)
	ListMatches(ctx context.Context, filter MatchFilter) ([]*models.Match, error)
	UpdateMatch(ctx context.Context, slug string, patch MatchPatch) (*models.Match, error)

	GetVeto(ctx context.Context, matchSlug string) (*models.VetoState, error)
	SaveVeto(ctx context.Context, veto *models.VetoState) error

	AppendEvent(ctx context.Context, event *models.MatchEvent) (int64, error)
	ListEvents(ctx context.Context, matchSlug string, afterID int64, limit int) ([]*models.MatchEvent, error)

	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
