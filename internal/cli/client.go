package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"wealthsprint/internal/auth"
	"wealthsprint/internal/game"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

// IsAPIError reports whether err came back from the API rather than the network.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Signup(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Dashboard(ctx context.Context, s Session) (game.Dashboard, error) {
	var out game.Dashboard
	err := c.jsonRequest(ctx, http.MethodGet, sessionPrefix(s), s.AccessToken, nil, &out)
	return out, err
}

// Roles lists the catalog with unlock state for the player.
func (c *Client) Roles(ctx context.Context, s Session) ([]game.RoleView, error) {
	var out struct {
		Roles []game.RoleView `json:"roles"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, sessionPrefix(s)+"/roles", s.AccessToken, nil, &out)
	return out.Roles, err
}

func (c *Client) Sectors(ctx context.Context) ([]game.Sector, error) {
	var out struct {
		Sectors []game.Sector `json:"sectors"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/sectors", "", nil, &out)
	return out.Sectors, err
}

func (c *Client) NextScenario(ctx context.Context, s Session) (game.Instance, error) {
	var out game.Instance
	err := c.jsonRequest(ctx, http.MethodPost, sessionPrefix(s)+"/scenario/next", s.AccessToken, nil, &out)
	return out, err
}

func (c *Client) Choose(ctx context.Context, s Session, instanceID, optionID string) (game.ChoiceResult, error) {
	var out game.ChoiceResult
	err := c.jsonRequest(ctx, http.MethodPost, sessionPrefix(s)+"/scenario/choose", s.AccessToken, game.ChooseInput{
		InstanceID: instanceID,
		OptionID:   optionID,
	}, &out)
	return out, err
}

func (c *Client) Hire(ctx context.Context, s Session, in game.HireInput) (game.Record, error) {
	var out game.Record
	err := c.jsonRequest(ctx, http.MethodPost, sessionPrefix(s)+"/personnel/hire", s.AccessToken, in, &out)
	return out, err
}

// RecordAction runs promote, demote or fire against one staff record.
func (c *Client) RecordAction(ctx context.Context, s Session, recordID, action string) (game.Record, error) {
	var out game.Record
	path := fmt.Sprintf("%s/personnel/%s/%s", sessionPrefix(s), url.PathEscape(recordID), action)
	err := c.jsonRequest(ctx, http.MethodPost, path, s.AccessToken, nil, &out)
	return out, err
}

func (c *Client) AssignSector(ctx context.Context, s Session, recordID string, sector game.SectorID) (game.Record, error) {
	var out game.Record
	path := fmt.Sprintf("%s/personnel/%s/sector", sessionPrefix(s), url.PathEscape(recordID))
	err := c.jsonRequest(ctx, http.MethodPost, path, s.AccessToken, game.SectorInput{Sector: sector}, &out)
	return out, err
}

func (c *Client) Bonus(ctx context.Context, s Session, recordID string, amount int64) (game.BonusResult, error) {
	var out game.BonusResult
	path := fmt.Sprintf("%s/personnel/%s/bonus", sessionPrefix(s), url.PathEscape(recordID))
	err := c.jsonRequest(ctx, http.MethodPost, path, s.AccessToken, game.BonusInput{Amount: amount}, &out)
	return out, err
}

func (c *Client) Payroll(ctx context.Context, s Session) (game.PayrollReport, error) {
	var out game.PayrollReport
	err := c.jsonRequest(ctx, http.MethodPost, sessionPrefix(s)+"/payroll", s.AccessToken, nil, &out)
	return out, err
}

func (c *Client) Rest(ctx context.Context, s Session) (game.Snapshot, error) {
	var out game.Snapshot
	err := c.jsonRequest(ctx, http.MethodPost, sessionPrefix(s)+"/rest", s.AccessToken, nil, &out)
	return out, err
}

func (c *Client) Advance(ctx context.Context, s Session, years float64) (game.AdvanceReport, error) {
	var out game.AdvanceReport
	err := c.jsonRequest(ctx, http.MethodPost, sessionPrefix(s)+"/advance", s.AccessToken, game.AdvanceInput{Years: years}, &out)
	return out, err
}

// Watch streams session events into fn until ctx is done or the server hangs up.
func (c *Client) Watch(ctx context.Context, s Session, fn func(game.Event)) error {
	u, err := url.Parse(c.BaseURL + sessionPrefix(s) + "/stream")
	if err != nil {
		return err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	header := http.Header{}
	if s.AccessToken != "" {
		header.Set("Authorization", "Bearer "+s.AccessToken)
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return &APIError{Status: resp.StatusCode, Message: err.Error()}
		}
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return err
		}
		var ev game.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		fn(ev)
	}
}

func sessionPrefix(s Session) string {
	return "/v1/sessions/" + url.PathEscape(s.PlayerID)
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var payload struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
