package strapi

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

	"github.com/patrickmn/go-cache"
	"github.com/samber/oops"
	"github.com/sony/gobreaker"

	slogctx "github.com/veqryn/slog-context"

	"github.com/fishshop/storefront-bot/internal/serviceerr"
)

const (
	defaultTimeout  = 10 * time.Second
	maxErrorBodyLen = 512
)

type ClientOption func(*Client)

// WithHTTPClient replaces the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithBreakerSettings replaces the circuit breaker guarding the remote API.
func WithBreakerSettings(st gobreaker.Settings) ClientOption {
	return func(cl *Client) {
		cl.breakerSettings = st
	}
}

// WithProductCacheTTL caches product reads for ttl. Zero disables the cache.
func WithProductCacheTTL(ttl time.Duration) ClientOption {
	return func(cl *Client) {
		cl.productTTL = ttl
	}
}

// WithPictureCacheTTL caches picture bytes for ttl. Zero disables the cache.
func WithPictureCacheTTL(ttl time.Duration) ClientOption {
	return func(cl *Client) {
		cl.pictureTTL = ttl
	}
}

// Client talks to the Strapi content API holding products, carts, cart lines and clients.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client

	breakerSettings gobreaker.Settings
	breaker         *gobreaker.CircuitBreaker

	productTTL, pictureTTL time.Duration
	cache                  *cache.Cache
}

func NewClient(baseURL, token string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}

	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &Client{
		baseURL:         u,
		token:           token,
		httpClient:      &http.Client{Timeout: defaultTimeout},
		breakerSettings: gobreaker.Settings{Name: "strapi"},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	st := c.breakerSettings
	// Rejections are answers from a healthy server and must not open the breaker.
	st.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, serviceerr.ErrRemoteRejected)
	}

	onStateChange := st.OnStateChange
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		slogctx.Warn(context.Background(), "Catalog circuit breaker changed state",
			"breaker", name, "from", from.String(), "to", to.String())

		if onStateChange != nil {
			onStateChange(name, from, to)
		}
	}

	c.breaker = gobreaker.NewCircuitBreaker(st)
	c.cache = cache.New(max(c.productTTL, c.pictureTTL), 2*max(c.productTTL, c.pictureTTL, time.Minute))

	return c, nil
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	// raw skips JSON decoding and returns the response body as is.
	raw bool
}

// do executes req through the circuit breaker and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, req request, out any) ([]byte, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.roundTrip(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = errors.Join(serviceerr.ErrRemoteUnavailable, err)
		}

		return nil, oops.In("catalog").
			Code(remoteCode(err)).
			With("method", req.method, "path", req.path).
			Wrapf(err, "calling catalog API")
	}

	//nolint:forcetypeassert
	data := res.([]byte)
	if req.raw || out == nil {
		return data, nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return nil, oops.In("catalog").
			Code(serviceerr.CodeRemoteRejected).
			With("method", req.method, "path", req.path).
			Wrapf(errors.Join(serviceerr.ErrRemoteRejected, err), "decoding catalog response")
	}

	return data, nil
}

func (c *Client) roundTrip(ctx context.Context, req request) ([]byte, error) {
	ref, err := url.Parse(req.path)
	if err != nil {
		return nil, errors.Join(serviceerr.ErrRemoteRejected, fmt.Errorf("parsing path %q: %w", req.path, err))
	}

	u := c.baseURL.ResolveReference(ref)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, errors.Join(serviceerr.ErrRemoteRejected, fmt.Errorf("encoding request body: %w", err))
		}

		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, errors.Join(serviceerr.ErrRemoteRejected, fmt.Errorf("creating request: %w", err))
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Join(serviceerr.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(serviceerr.ErrRemoteUnavailable, fmt.Errorf("reading response body: %w", err))
	}

	if err := statusError(resp.StatusCode, data); err != nil {
		return nil, err
	}

	return data, nil
}

// statusError classifies non 2xx responses. Server side failures and throttling
// mean the remote is unavailable, everything else is a rejection.
func statusError(code int, body []byte) error {
	if code >= 200 && code < 300 {
		return nil
	}

	if len(body) > maxErrorBodyLen {
		body = body[:maxErrorBodyLen]
	}

	cause := fmt.Errorf("unexpected status %d: %s", code, bytes.TrimSpace(body))

	switch {
	case code >= 500 || code == http.StatusTooManyRequests:
		return errors.Join(serviceerr.ErrRemoteUnavailable, cause)
	case code == http.StatusNotFound:
		return errors.Join(serviceerr.ErrNotFound, serviceerr.ErrRemoteRejected, cause)
	default:
		return errors.Join(serviceerr.ErrRemoteRejected, cause)
	}
}

func remoteCode(err error) serviceerr.Code {
	if errors.Is(err, serviceerr.ErrRemoteUnavailable) {
		return serviceerr.CodeRemoteUnavailable
	}

	return serviceerr.CodeRemoteRejected
}
