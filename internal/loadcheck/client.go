package loadcheck

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/types"
)

// maxPageLimit mirrors the server's default cap on limit.
const maxPageLimit = 100

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d %s: %s", e.Status, e.Code, e.Message)
}

// Client calls the podium REST API.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{base: baseURL, http: &http.Client{Timeout: timeout}}
}

func (c *Client) do(ctx context.Context, method, path string, header http.Header, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Health fails unless /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, nil)
}

// CreateLeaderboard creates a leaderboard under gameID.
func (c *Client) CreateLeaderboard(ctx context.Context, gameID string, def model.Definition) (*model.Leaderboard, error) {
	var lb model.Leaderboard
	body := map[string]any{"name": def.Name, "scoreType": def.ScoreType, "metadata": def.Metadata}
	if err := c.do(ctx, http.MethodPost, "/v1/games/"+url.PathEscape(gameID)+"/leaderboards", nil, body, &lb); err != nil {
		return nil, err
	}
	return &lb, nil
}

// DeleteLeaderboard removes a leaderboard and its entries.
func (c *Client) DeleteLeaderboard(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/v1/leaderboards/"+url.PathEscape(id), nil, nil, nil)
}

// SubmitScore posts one submission. The submission id travels in the
// Idempotency-Key header.
func (c *Client) SubmitScore(ctx context.Context, sub model.Submission) (*model.Entry, error) {
	var e model.Entry
	h := http.Header{}
	if sub.SubmissionID != "" {
		h.Set("Idempotency-Key", sub.SubmissionID)
	}
	body := map[string]any{"participantId": sub.ParticipantID, "score": sub.Score, "metadata": sub.Metadata}
	if err := c.do(ctx, http.MethodPost, "/v1/leaderboards/"+url.PathEscape(sub.LeaderboardID)+"/scores", h, body, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// TopRankings fetches one page.
func (c *Client) TopRankings(ctx context.Context, id string, page, limit int) (types.Page, error) {
	var p types.Page
	q := url.Values{"page": {strconv.Itoa(page)}, "limit": {strconv.Itoa(limit)}}
	err := c.do(ctx, http.MethodGet, "/v1/leaderboards/"+url.PathEscape(id)+"/rankings?"+q.Encode(), nil, nil, &p)
	return p, err
}

// AllRankings walks every page in rank order.
func (c *Client) AllRankings(ctx context.Context, id string) ([]*model.Entry, error) {
	var out []*model.Entry
	for page := 1; ; page++ {
		p, err := c.TopRankings(ctx, id, page, maxPageLimit)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Results...)
		if page >= p.TotalPages {
			return out, nil
		}
	}
}

// RankingsNear fetches the window around participantID.
func (c *Client) RankingsNear(ctx context.Context, id, participantID string, limit int) (types.Window, error) {
	var w types.Window
	path := "/v1/leaderboards/" + url.PathEscape(id) + "/rankings/near/" + url.PathEscape(participantID) + "?limit=" + strconv.Itoa(limit)
	err := c.do(ctx, http.MethodGet, path, nil, nil, &w)
	return w, err
}

// UserRank returns the participant's rank, or nil when unranked.
func (c *Client) UserRank(ctx context.Context, id, participantID string) (*int, error) {
	var res struct {
		Rank *int `json:"rank"`
	}
	path := "/v1/leaderboards/" + url.PathEscape(id) + "/participants/" + url.PathEscape(participantID) + "/rank"
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &res); err != nil {
		return nil, err
	}
	return res.Rank, nil
}

// IsStatus reports whether err is an APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
