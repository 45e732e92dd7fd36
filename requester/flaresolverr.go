package requester

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/felipemarinho97/torrent-aggregator/logging"
)

// FlareSolverr drives a FlareSolverr instance to fetch pages protected by
// browser challenges.
type FlareSolverr struct {
	url        string
	maxTimeout time.Duration
	httpClient *http.Client

	mu      sync.Mutex
	session string
}

func NewFlareSolverr(url string, maxTimeout time.Duration) *FlareSolverr {
	if maxTimeout <= 0 {
		maxTimeout = 60 * time.Second
	}
	return &FlareSolverr{
		url:        strings.TrimSuffix(url, "/"),
		maxTimeout: maxTimeout,
		// leave room for flaresolverr to report its own timeout
		httpClient: &http.Client{Timeout: maxTimeout + 10*time.Second},
	}
}

type flareResponse struct {
	Status   string   `json:"status"`
	Message  string   `json:"message"`
	Session  string   `json:"session"`
	Sessions []string `json:"sessions"`
	Solution struct {
		URL       string            `json:"url"`
		Status    int               `json:"status"`
		UserAgent string            `json:"userAgent"`
		Headers   map[string]string `json:"headers"`
		Response  string            `json:"response"`
	} `json:"solution"`
}

func (f *FlareSolverr) call(ctx context.Context, body map[string]any) (*flareResponse, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url+"/v1", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out flareResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode flaresolverr response: %w", err)
	}
	if out.Status != "ok" {
		return nil, fmt.Errorf("flaresolverr %s: %s", body["cmd"], out.Message)
	}
	return &out, nil
}

// retrieveSession reuses the first existing browser session or creates one.
func (f *FlareSolverr) retrieveSession(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session != "" {
		return f.session, nil
	}

	list, err := f.call(ctx, map[string]any{"cmd": "sessions.list"})
	if err != nil {
		return "", err
	}
	if len(list.Sessions) > 0 {
		f.session = list.Sessions[0]
		return f.session, nil
	}

	logging.Debug().Msg("No flaresolverr sessions found, creating a new one")
	created, err := f.call(ctx, map[string]any{"cmd": "sessions.create"})
	if err != nil {
		return "", err
	}
	f.session = created.Session
	return f.session, nil
}

// Get returns the page body as rendered by the headless browser.
func (f *FlareSolverr) Get(ctx context.Context, url string) ([]byte, error) {
	session, err := f.retrieveSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get flaresolverr session: %w", err)
	}

	resp, err := f.call(ctx, map[string]any{
		"cmd":        "request.get",
		"url":        url,
		"maxTimeout": f.maxTimeout.Milliseconds(),
		"session":    session,
	})
	if err != nil {
		return nil, err
	}

	if strings.Contains(resp.Solution.Response, "Under attack") {
		return nil, errors.New("under attack")
	}
	return []byte(resp.Solution.Response), nil
}
