package requester

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/felipemarinho97/torrent-aggregator/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() Options {
	return Options{
		FastTimeout:  time.Second,
		SlowTimeout:  2 * time.Second,
		ProbeTimeout: time.Second,
		Attempts:     3,
		BackoffBase:  time.Millisecond,
	}
}

func TestGet_FastPathAndCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "inception", r.URL.Query().Get("query_term"))
		assert.Equal(t, "true", r.URL.Query().Get("with_rt_ratings"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"status":"ok"}`)
	}))
	defer srv.Close()

	r := New(testOptions(), cache.NewMemory(time.Minute))
	params := map[string]string{"query_term": "inception", "with_rt_ratings": "true"}

	resp, err := r.NewSession().Get(context.Background(), srv.URL, params)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(resp.Body))
	assert.False(t, resp.FromCache)

	resp, err = r.NewSession().Get(context.Background(), srv.URL, params)
	require.NoError(t, err)
	assert.True(t, resp.FromCache)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_FallsBackToResilientPath(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.NotEmpty(t, r.Header.Get("Accept-Language"), "resilient path sends browser headers")
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	resp, err := New(testOptions(), nil).NewSession().Get(context.Background(), srv.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_RetryPolicy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCalls int32
	}{
		// one fast attempt plus three resilient attempts
		{"server error is retried", http.StatusServiceUnavailable, 4},
		{"rate limit is retried", http.StatusTooManyRequests, 4},
		{"not found stops early", http.StatusNotFound, 2},
		{"forbidden stops early", http.StatusForbidden, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := New(testOptions(), nil).NewSession().Get(context.Background(), srv.URL, nil)
			require.Error(t, err)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Equal(t, tt.wantCalls, calls.Load())
		})
	}
}

func TestGet_RedirectsOnlyOnResilientPath(t *testing.T) {
	var oldCalls, newCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		oldCalls.Add(1)
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		newCalls.Add(1)
		fmt.Fprint(w, "<html><body>moved</body></html>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := New(testOptions(), nil).NewSession().Get(context.Background(), srv.URL+"/old", nil)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "moved")
	assert.Equal(t, int32(2), oldCalls.Load())
	assert.Equal(t, int32(1), newCalls.Load())
}

func TestGet_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := New(testOptions(), nil).NewSession().Get(context.Background(), addr, nil)
	require.Error(t, err)
	assert.True(t, IsConnectionBlocked(err), "got %v", err)
}

func TestGet_ChallengeWithoutFlareSolverr(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><title>Just a moment...</title><body></body></html>")
	}))
	defer srv.Close()

	c := cache.NewMemory(time.Minute)
	_, err := New(testOptions(), c).NewSession().Get(context.Background(), srv.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 200")
}

func TestGet_ChallengeSolvedByFlareSolverr(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>cf-chl-bypass</body></html>")
	}))
	defer site.Close()

	var cmds []string
	solver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		cmd, _ := body["cmd"].(string)
		cmds = append(cmds, cmd)
		switch cmd {
		case "sessions.list":
			fmt.Fprint(w, `{"status":"ok","sessions":["abc"]}`)
		case "request.get":
			assert.Equal(t, "abc", body["session"])
			fmt.Fprint(w, `{"status":"ok","solution":{"status":200,"response":"<html><body>real page</body></html>"}}`)
		}
	}))
	defer solver.Close()

	opts := testOptions()
	opts.FlareSolverr = NewFlareSolverr(solver.URL, time.Second)

	resp, err := New(opts, nil).NewSession().Get(context.Background(), site.URL, nil)
	require.NoError(t, err)
	assert.Contains(t, string(resp.Body), "real page")
	assert.Equal(t, []string{"sessions.list", "request.get"}, cmds)
}

func TestSession_CookiesAreIsolated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie("sid"); err != nil {
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: "1", Path: "/"})
			fmt.Fprint(w, `{"cookie":false}`)
			return
		}
		fmt.Fprint(w, `{"cookie":true}`)
	}))
	defer srv.Close()

	r := New(testOptions(), nil)
	a, b := r.NewSession(), r.NewSession()
	ctx := context.Background()

	_, err := a.Get(ctx, srv.URL, nil)
	require.NoError(t, err)

	resp, err := a.Get(ctx, srv.URL, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cookie":true}`, string(resp.Body))

	resp, err = b.Get(ctx, srv.URL, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cookie":false}`, string(resp.Body))
}

func TestProbe(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/movie/inception/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
	})
	mux.HandleFunc("/moved/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/movie/inception/", http.StatusMovedPermanently)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	s := New(testOptions(), nil).NewSession()
	ctx := context.Background()

	assert.True(t, s.Probe(ctx, srv.URL+"/movie/inception/"))
	assert.True(t, s.Probe(ctx, srv.URL+"/moved/"))
	assert.False(t, s.Probe(ctx, srv.URL+"/tv/inception/"))
	assert.False(t, s.Probe(ctx, "http://127.0.0.1:1/"))
}

func TestIsConnectionBlocked(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused errno", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"reset errno", &RequestError{URL: "x", Err: syscall.ECONNRESET}, true},
		{"reset text", errors.New("read tcp: Connection reset by peer"), true},
		{"timeout", errors.New("context deadline exceeded"), false},
		{"status", &RequestError{URL: "x", StatusCode: 500}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsConnectionBlocked(tt.err))
		})
	}
}

func TestBuildURL(t *testing.T) {
	got, err := buildURL("https://yts.mx/api/v2/list_movies.json?limit=20", map[string]string{
		"query_term": "the matrix",
		"limit":      "50",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://yts.mx/api/v2/list_movies.json?limit=50&query_term=the+matrix", got)
}

func TestJitterBounds(t *testing.T) {
	r := New(Options{JitterMin: 10 * time.Millisecond, JitterMax: 20 * time.Millisecond}, nil)
	for i := 0; i < 50; i++ {
		d := r.jitter()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.LessOrEqual(t, d, 20*time.Millisecond)
	}
}
