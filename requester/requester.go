package requester

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go/v4"
	"github.com/felipemarinho97/torrent-aggregator/cache"
	"github.com/felipemarinho97/torrent-aggregator/logging"
	"github.com/felipemarinho97/torrent-aggregator/utils"
	"github.com/fereidani/httpdecompressor"
	"golang.org/x/net/publicsuffix"
)

const (
	cacheKeyPrefix = "http-"
	maxBodySize    = 10 << 20
)

var challangeRegex = regexp.MustCompile(`(?i)(just a moment|cf-chl-bypass|under attack)`)

type Options struct {
	FastTimeout  time.Duration
	SlowTimeout  time.Duration
	ProbeTimeout time.Duration
	// Attempts is the number of tries on the resilient path.
	Attempts    int
	BackoffBase time.Duration
	JitterMin   time.Duration
	JitterMax   time.Duration
	// FlareSolverr is optional; when set, challenge pages are fetched through it.
	FlareSolverr *FlareSolverr
}

func DefaultOptions() Options {
	return Options{
		FastTimeout:  time.Second,
		SlowTimeout:  10 * time.Second,
		ProbeTimeout: 5 * time.Second,
		Attempts:     3,
		BackoffBase:  500 * time.Millisecond,
		JitterMin:    time.Second,
		JitterMax:    3 * time.Second,
	}
}

// Requester owns the connection pool and the short-lived response cache
// shared by every Session.
type Requester struct {
	opts      Options
	c         cache.Cache
	transport http.RoundTripper
}

func New(opts Options, c cache.Cache) *Requester {
	def := DefaultOptions()
	if opts.FastTimeout <= 0 {
		opts.FastTimeout = def.FastTimeout
	}
	if opts.SlowTimeout <= 0 {
		opts.SlowTimeout = def.SlowTimeout
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = def.ProbeTimeout
	}
	if opts.Attempts <= 0 {
		opts.Attempts = def.Attempts
	}
	if opts.JitterMax < opts.JitterMin {
		opts.JitterMax = opts.JitterMin
	}
	if c == nil {
		c = cache.Nop{}
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DisableCompression:  false,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Requester{opts: opts, c: c, transport: transport}
}

// Session is a set of clients sharing one cookie jar. Sources queried in the
// same batch each get their own Session.
type Session struct {
	r           *Requester
	fastClient  *http.Client
	slowClient  *http.Client
	probeClient *http.Client
}

func (r *Requester) NewSession() *Session {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		// cookiejar.New never fails with a non-nil list
		logging.Warn().Err(err).Msg("Failed to create cookie jar")
	}

	return &Session{
		r: r,
		fastClient: &http.Client{
			Timeout:   r.opts.FastTimeout,
			Transport: r.transport,
			Jar:       jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		slowClient: &http.Client{
			Timeout:   r.opts.SlowTimeout,
			Transport: r.transport,
			Jar:       jar,
		},
		probeClient: &http.Client{
			Timeout:   r.opts.ProbeTimeout,
			Transport: r.transport,
			Jar:       jar,
		},
	}
}

type Response struct {
	URL        string
	StatusCode int
	Body       []byte
	FromCache  bool
}

func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

func (r *Response) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
}

// RequestError is returned by Session.Get when no path produced a 2xx response.
type RequestError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("request to %s failed with status %d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("request to %s failed with status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsConnectionBlocked reports whether err comes from a refused or reset
// connection, the usual symptom of an ISP or firewall block.
func IsConnectionBlocked(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode
	}
	return 0
}

func buildURL(rawURL string, params map[string]string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %w", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, v := range params {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func cacheKey(fullURL string) string {
	sum := sha1.Sum([]byte("GET:" + fullURL))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// Get fetches rawURL with params merged into its query string. A cached body
// is returned when present; otherwise the fast path is tried once and, on any
// failure, the resilient path takes over.
func (s *Session) Get(ctx context.Context, rawURL string, params map[string]string) (*Response, error) {
	fullURL, err := buildURL(rawURL, params)
	if err != nil {
		return nil, &RequestError{URL: rawURL, Err: err}
	}

	key := cacheKey(fullURL)
	if body, ok := s.r.c.Get(ctx, key); ok {
		logging.Debug().Str("url", fullURL).Msg("Returning from short-lived cache")
		return &Response{URL: fullURL, StatusCode: http.StatusOK, Body: body, FromCache: true}, nil
	}

	resp, err := s.getFast(ctx, fullURL)
	if err != nil {
		logging.Debug().Err(err).Str("url", fullURL).Msg("Fast path failed, switching to resilient path")
		resp, err = s.getResilient(ctx, fullURL)
		if err != nil {
			return nil, err
		}
	}

	if utils.IsCacheable(resp.Body) {
		s.r.c.Set(ctx, key, resp.Body)
	}
	return resp, nil
}

func (s *Session) getFast(ctx context.Context, fullURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &RequestError{URL: fullURL, Err: err}
	}
	req.Header.Set("User-Agent", utils.SpoofedUserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := s.fastClient.Do(req)
	if err != nil {
		return nil, &RequestError{URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &RequestError{URL: fullURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &RequestError{URL: fullURL, StatusCode: resp.StatusCode, Err: err}
	}
	if hasChallange(body) {
		return nil, &RequestError{URL: fullURL, StatusCode: resp.StatusCode, Err: errors.New("anti-bot challenge")}
	}

	logging.Debug().Str("url", fullURL).Msg("Request served from fast path")
	return &Response{URL: fullURL, StatusCode: resp.StatusCode, Body: body}, nil
}

func (s *Session) getResilient(ctx context.Context, fullURL string) (*Response, error) {
	if err := sleep(ctx, s.r.jitter()); err != nil {
		return nil, &RequestError{URL: fullURL, Err: err}
	}

	resp, err := retry.DoWithData(
		func() (*Response, error) {
			return s.slowOnce(ctx, fullURL)
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.r.opts.Attempts)),
		retry.Delay(s.r.opts.BackoffBase),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logging.Debug().Err(err).Uint("attempt", n+1).Str("url", fullURL).Msg("Retrying request")
		}),
	)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) {
			return nil, reqErr
		}
		return nil, &RequestError{URL: fullURL, Err: err}
	}
	return resp, nil
}

func (s *Session) slowOnce(ctx context.Context, fullURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, retry.Unrecoverable(&RequestError{URL: fullURL, Err: err})
	}
	spoofBrowserHeaders(req, "")

	resp, err := s.slowClient.Do(req)
	if err != nil {
		return nil, &RequestError{URL: fullURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := &RequestError{URL: fullURL, StatusCode: resp.StatusCode}
		if !retryableStatus(resp.StatusCode) {
			return nil, retry.Unrecoverable(reqErr)
		}
		return nil, reqErr
	}

	body, err := httpdecompressor.Reader(resp)
	if err != nil {
		return nil, &RequestError{URL: fullURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to decompress response: %w", err)}
	}
	defer body.Close()

	if encoding := resp.Header.Get("Content-Encoding"); encoding != "" {
		logging.Debug().Str("encoding", encoding).Msg("Decompressing response")
	}

	data, err := io.ReadAll(io.LimitReader(body, maxBodySize))
	if err != nil {
		return nil, &RequestError{URL: fullURL, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if hasChallange(data) {
		if s.r.opts.FlareSolverr == nil {
			return nil, &RequestError{URL: fullURL, StatusCode: resp.StatusCode, Err: errors.New("anti-bot challenge")}
		}
		data, err = s.r.opts.FlareSolverr.Get(ctx, fullURL)
		if err != nil {
			return nil, &RequestError{URL: fullURL, Err: err}
		}
		logging.Debug().Str("url", fullURL).Msg("Request served from flaresolverr")
	} else {
		logging.Debug().Str("url", fullURL).Msg("Request served from resilient path")
	}

	return &Response{URL: fullURL, StatusCode: resp.StatusCode, Body: data}, nil
}

// Probe reports whether a HEAD request to rawURL answers 200.
func (s *Session) Probe(ctx context.Context, rawURL string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", utils.SpoofedUserAgent)

	resp, err := s.probeClient.Do(req)
	if err != nil {
		logging.Debug().Err(err).Str("url", rawURL).Msg("Probe failed")
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func retryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code < 400 || code >= 500
}

func (r *Requester) jitter() time.Duration {
	spread := r.opts.JitterMax - r.opts.JitterMin
	if spread <= 0 {
		return r.opts.JitterMin
	}
	return r.opts.JitterMin + rand.N(spread+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// hasChallange checks if the body contains a challange by regex matching
func hasChallange(body []byte) bool {
	return challangeRegex.Match(body)
}
