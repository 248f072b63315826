package facility

import (
	"bytes"
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

	"spccvault/internal"
	"spccvault/internal/config"
	"spccvault/internal/util"
)

// Client talks to the external facility directory. The pipeline reads the
// candidate list through it and, on apply, writes back the plan reference
// and plan date. No other facility fields are ever touched.
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

type listPayload struct {
	Facilities []map[string]any `json:"facilities"`
	Page       int              `json:"page"`
	HasMore    bool             `json:"hasMore"`
	Total      *int             `json:"total"`
}

func NewClient(cfg config.Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.DirectoryTimeoutMs) * time.Millisecond},
		limiter:    NewRateLimiter(cfg.DirectoryRateRPS),
	}
}

// ListFacilities pages through the whole directory. Records the directory
// cannot represent (missing id or name) are skipped, not fatal.
func (c *Client) ListFacilities(ctx context.Context) ([]internal.Facility, error) {
	all := make([]internal.Facility, 0)

	for page := 1; ; page++ {
		body, err := c.request(ctx, http.MethodGet, "facilities", map[string]string{"page": strconv.Itoa(page)}, nil)
		if err != nil {
			return nil, err
		}

		var payload listPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, err
		}

		for _, raw := range payload.Facilities {
			facility, err := toFacility(raw)
			if err != nil {
				continue
			}
			all = append(all, facility)
		}

		if !payload.HasMore || len(payload.Facilities) == 0 {
			break
		}
	}

	return all, nil
}

// UpdatePlan writes the plan reference and ISO plan date onto one facility.
func (c *Client) UpdatePlan(ctx context.Context, facilityID int, planRef, planDate string) error {
	payload, err := json.Marshal(map[string]string{
		"planRef":  planRef,
		"planDate": planDate,
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("facilities/%d/plan", facilityID)
	_, err = c.request(ctx, http.MethodPatch, endpoint, nil, payload)
	if err != nil {
		return fmt.Errorf("update facility %d: %w", facilityID, err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, method, endpoint string, params map[string]string, body []byte) ([]byte, error) {
	if strings.TrimSpace(c.cfg.DirectoryAPIToken) == "" {
		return nil, errors.New("missing FACILITY_API_TOKEN")
	}

	baseURL := strings.TrimRight(c.cfg.DirectoryAPIBaseURL, "/") + "/"
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

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.cfg.DirectoryAPIToken)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			if isRetryableStatus(resp.StatusCode) && attempt < 5 {
				backoff := time.Duration(250*(1<<(attempt-1))+rand.Intn(100)) * time.Millisecond
				time.Sleep(backoff)
				lastErr = fmt.Errorf("directory status %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("directory api error: status=%d body=%s", resp.StatusCode, string(respBody))
		}

		var apiResp apiResponse
		if err := json.Unmarshal(respBody, &apiResp); err != nil {
			return nil, err
		}
		if !apiResp.Success {
			return nil, fmt.Errorf("directory api unsuccessful: %s", string(apiResp.Errors))
		}
		return apiResp.Data, nil
	}

	if lastErr == nil {
		lastErr = errors.New("directory request failed")
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

func toFacility(raw map[string]any) (internal.Facility, error) {
	name, _ := raw["name"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		return internal.Facility{}, errors.New("empty name")
	}

	id, ok := toInt(raw["id"])
	if !ok {
		return internal.Facility{}, errors.New("missing id")
	}

	rawJSON, _ := json.Marshal(raw)
	facility := internal.Facility{
		ID:      id,
		Name:    name,
		Status:  toStatus(raw["status"]),
		RawJSON: string(rawJSON),
	}
	facility.State = toStringPtr(raw["state"])
	facility.PlanRef = toStringPtr(raw["planRef"])
	facility.PlanDate = toStringPtr(raw["planDate"])
	facility.UpdatedAt = toStringPtr(raw["updatedAt"])

	return facility, nil
}

func toStatus(v any) internal.FacilityStatus {
	s, _ := v.(string)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "retired", "sold", "inactive":
		return internal.FacilityRetired
	default:
		return internal.FacilityActive
	}
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case json.Number:
		i, err := t.Int64()
		return int(i), err == nil
	default:
		return 0, false
	}
}

func toStringPtr(v any) *string {
	s, ok := v.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return util.StringPtr(s)
}
