package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BeliaevDmitry/VSOKO-sub001/internal"
	"github.com/BeliaevDmitry/VSOKO-sub001/internal/config"
)

// Client talks to the school information system's staff API.
type Client struct {
	cfg        config.Config
	httpClient *http.Client
	limiter    *RateLimiter
}

type apiResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

type staffPage struct {
	Teachers   []staffEntry `json:"teachers"`
	Page       int          `json:"page"`
	TotalPages int          `json:"totalPages"`
}

type staffEntry struct {
	ID         int    `json:"id"`
	FullName   string `json:"fullName"`
	LastName   string `json:"lastName"`
	FirstName  string `json:"firstName"`
	MiddleName string `json:"middleName"`
	Active     bool   `json:"active"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.SchoolTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.SchoolRateLimit),
	}
}

// ListStaff pages through the whole staff list.
func (c *Client) ListStaff(ctx context.Context) ([]internal.TeacherRecord, error) {
	all := make([]internal.TeacherRecord, 0)

	for page := 1; ; page++ {
		body, err := c.fetchJSON(ctx, "staff/teachers", map[string]string{
			"page":     strconv.Itoa(page),
			"pageSize": strconv.Itoa(c.cfg.SchoolPageSize),
		})
		if err != nil {
			return nil, err
		}

		var payload staffPage
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}

		for _, entry := range payload.Teachers {
			all = append(all, internal.TeacherRecord{
				ID:         entry.ID,
				FullName:   entry.FullName,
				LastName:   entry.LastName,
				FirstName:  entry.FirstName,
				MiddleName: entry.MiddleName,
				Active:     entry.Active,
			})
		}

		if len(payload.Teachers) == 0 || payload.Page >= payload.TotalPages {
			break
		}
	}

	return all, nil
}

func (c *Client) fetchJSON(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	if strings.TrimSpace(c.cfg.SchoolAPIToken) == "" {
		return nil, errors.New("missing SCHOOL_API_TOKEN")
	}

	baseURL := strings.TrimRight(c.cfg.SchoolAPIBaseURL, "/") + "/"
	u, err := url.Parse(baseURL + endpoint)
	if err != nil {
		return nil, err
	}

	q := u.Query()
	for k, v := range params {
		if strings.TrimSpace(v) != "" {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()

	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		c.limiter.WaitTurn()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.SchoolAPIToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("school api status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("school api error: status=%d body=%s", resp.StatusCode, string(body))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(body, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("school api unsuccessful: %s", string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("school api request failed")
	}
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
