package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// --- Response types (дублируются из api/dto.go, клиент не зависит от сервера) ---

// RunResponse — прогон из API.
type RunResponse struct {
	ID         string `json:"id"`
	Cluster    string `json:"cluster"`
	Status     string `json:"status"`
	Rules      int    `json:"rules"`
	Passed     int    `json:"passed"`
	Failed     int    `json:"failed"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	DurationMs int64  `json:"duration_ms,omitempty"`
	Error      string `json:"error,omitempty"`
}

// OutcomeResponse — результат правила из API.
type OutcomeResponse struct {
	ID                 string `json:"id"`
	Rule               string `json:"rule"`
	Blocking           string `json:"blocking"`
	Attempted          string `json:"attempted"`
	BlockingStatement  string `json:"blocking_statement"`
	AttemptedStatement string `json:"attempted_statement"`
	Status             string `json:"status"`
	Failure            string `json:"failure,omitempty"`
	Expected           string `json:"expected"`
	Observed           string `json:"observed,omitempty"`
	PollStatus         string `json:"poll_status,omitempty"`
	Error              string `json:"error,omitempty"`
	DurationMs         int64  `json:"duration_ms"`
}

// ListRunsOpts — параметры фильтрации прогонов.
type ListRunsOpts struct {
	Status string
	Limit  int
	Offset int
}

// --- API response wrappers ---

type dataResponse struct {
	Data json.RawMessage `json:"data"`
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// --- Client ---

// Client — HTTP-клиент read API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient создаёт клиент для API.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListRuns возвращает список прогонов с фильтрацией.
func (c *Client) ListRuns(ctx context.Context, opts ListRunsOpts) ([]RunResponse, error) {
	params := url.Values{}
	if opts.Status != "" {
		params.Set("status", opts.Status)
	}
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		params.Set("offset", strconv.Itoa(opts.Offset))
	}

	var runs []RunResponse
	err := c.get(ctx, "/api/v1/runs", params, &runs)
	return runs, err
}

// GetRun возвращает прогон по ID.
func (c *Client) GetRun(ctx context.Context, id string) (*RunResponse, error) {
	var run RunResponse
	if err := c.get(ctx, "/api/v1/runs/"+url.PathEscape(id), nil, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListOutcomes возвращает результаты правил прогона.
func (c *Client) ListOutcomes(ctx context.Context, runID string) ([]OutcomeResponse, error) {
	var outcomes []OutcomeResponse
	err := c.get(ctx, "/api/v1/runs/"+url.PathEscape(runID)+"/outcomes", nil, &outcomes)
	return outcomes, err
}

// --- HTTP helpers ---

// get выполняет GET и распаковывает поле data (у DataResponse и ListResponse оно общее).
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	if len(params) > 0 {
		path = path + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkError(resp); err != nil {
		return err
	}

	var dr dataResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return json.Unmarshal(dr.Data, result)
}

func (c *Client) checkError(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return fmt.Errorf("API error: HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("%s: %s", er.Error.Code, er.Error.Message)
}
