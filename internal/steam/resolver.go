// internal/steam/resolver.go
// Steam ID resolution behind a narrow interface. Configured with a Web
// API key it resolves vanity URLs and profile links; without one the
// service reports itself unconfigured and the API surfaces that as-is.

package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// ErrNotConfigured is surfaced verbatim to operators when no API key is set.
var ErrNotConfigured = fmt.Errorf("Steam API is not configured")

// Player is a resolved steam identity.
type Player struct {
	SteamID string `json:"steamId"`
	Name    string `json:"name"`
}

// Resolver turns operator input (id, profile URL, vanity name) into a Player.
type Resolver interface {
	Resolve(ctx context.Context, input string) (*Player, error)
}

var (
	steamID64Pattern = regexp.MustCompile(`^7656119\d{10}$`)
	profilePattern   = regexp.MustCompile(`steamcommunity\.com/profiles/(7656119\d{10})`)
	vanityPattern    = regexp.MustCompile(`steamcommunity\.com/id/([^/?#]+)`)
)

// Client resolves against the Steam Web API.
type Client struct {
	apiKey string
	http   *http.Client
	logger *log.Logger
}

// NewClient returns a Resolver. An empty key yields a client whose
// Resolve always reports ErrNotConfigured.
func NewClient(apiKey string, logger *log.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		http:   &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Resolve accepts a raw SteamID64, a /profiles/ URL, a /id/ vanity URL,
// or a bare vanity name.
func (c *Client) Resolve(ctx context.Context, input string) (*Player, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	input = strings.TrimSpace(input)

	if m := profilePattern.FindStringSubmatch(input); m != nil {
		input = m[1]
	} else if m := vanityPattern.FindStringSubmatch(input); m != nil {
		id, err := c.resolveVanity(ctx, m[1])
		if err != nil {
			return nil, err
		}
		input = id
	} else if !steamID64Pattern.MatchString(input) {
		id, err := c.resolveVanity(ctx, input)
		if err != nil {
			return nil, err
		}
		input = id
	}

	return c.playerSummary(ctx, input)
}

func (c *Client) resolveVanity(ctx context.Context, vanity string) (string, error) {
	endpoint := fmt.Sprintf(
		"https://api.steampowered.com/ISteamUser/ResolveVanityURL/v1/?key=%s&vanityurl=%s",
		c.apiKey, url.QueryEscape(vanity))

	var result struct {
		Response struct {
			Success int    `json:"success"`
			SteamID string `json:"steamid"`
		} `json:"response"`
	}
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return "", err
	}
	if result.Response.Success != 1 {
		return "", fmt.Errorf("no steam profile found for %q", vanity)
	}
	return result.Response.SteamID, nil
}

func (c *Client) playerSummary(ctx context.Context, steamID string) (*Player, error) {
	endpoint := fmt.Sprintf(
		"https://api.steampowered.com/ISteamUser/GetPlayerSummaries/v2/?key=%s&steamids=%s",
		c.apiKey, steamID)

	var result struct {
		Response struct {
			Players []struct {
				SteamID     string `json:"steamid"`
				PersonaName string `json:"personaname"`
			} `json:"players"`
		} `json:"response"`
	}
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	if len(result.Response.Players) == 0 {
		return nil, fmt.Errorf("no steam profile found for %s", steamID)
	}
	p := result.Response.Players[0]
	return &Player{SteamID: p.SteamID, Name: p.PersonaName}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("steam api request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("steam api returned %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}
