// internal/discord/notifier.go
// Discord webhook pings for bracket progress. Fire-and-forget: a failed
// ping is logged and never blocks the scheduler.

package discord

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"matchzy-auto-tournament/internal/models"
)

// Notifier posts bracket-advance pings to a configured webhook URL. A
// zero-value URL disables it.
type Notifier struct {
	webhookURL string
	http       *http.Client
	logger     *log.Logger
}

func NewNotifier(webhookURL string, logger *log.Logger) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: 5 * time.Second},
		logger:     logger,
	}
}

// MatchReady pings both teams that their match is up, mentioning their
// Discord roles when configured.
func (n *Notifier) MatchReady(match *models.Match, team1, team2 *models.Team) {
	if n.webhookURL == "" {
		return
	}

	content := fmt.Sprintf("%s **%s** vs **%s** is ready — veto is open.",
		mention(team1)+mention(team2), team1.Name, team2.Name)
	go n.post(map[string]interface{}{"content": content})
}

// MatchLoaded pings that a server is assigned and connect info is live.
func (n *Notifier) MatchLoaded(match *models.Match, serverName string) {
	if n.webhookURL == "" {
		return
	}
	content := fmt.Sprintf("Match **%s** is loaded on **%s** — connect now.", match.Slug, serverName)
	go n.post(map[string]interface{}{"content": content})
}

func mention(team *models.Team) string {
	if team.DiscordRoleID == nil || *team.DiscordRoleID == "" {
		return ""
	}
	return fmt.Sprintf("<@&%s> ", *team.DiscordRoleID)
}

func (n *Notifier) post(payload map[string]interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	resp, err := n.http.Post(n.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		n.logger.Printf("Discord webhook failed: %v", err)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		n.logger.Printf("Discord webhook returned %d", resp.StatusCode)
	}
}
