package download

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// TransportOpts defines parameters of HTTPTransport
type TransportOpts struct {
	UserAgent string
	Timeout   time.Duration // per exchange, 0 means no timeout
}

// HTTPTransport issues GET requests with net/http and reports redirects instead of following them
type HTTPTransport struct {
	client    *http.Client
	userAgent string
}

// NewHTTPTransport makes a transport. Cookies set along a redirect chain are kept
// for the next hop, some podcast hosts rely on that.
func NewHTTPTransport(opts TransportOpts) (*HTTPTransport, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("make cookie jar: %w", err)
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "podfetch"
	}

	return &HTTPTransport{
		client: &http.Client{
			Timeout: opts.Timeout,
			Jar:     jar,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse // redirects are handled by the download item
			},
		},
		userAgent: opts.UserAgent,
	}, nil
}

// Get sends a GET request. The caller owns the returned body.
func (t *HTTPTransport) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	addDefaultHeaders(req, t.userAgent, header)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}

	res := &Response{
		StatusCode:   resp.StatusCode,
		Reason:       reasonPhrase(resp),
		LastModified: resp.Header.Get("Last-Modified"),
		Body:         resp.Body,
	}
	if loc, err := resp.Location(); err == nil {
		res.Location = loc.String()
	} else if !errors.Is(err, http.ErrNoLocation) {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("bad redirect location: %w", err)
	}
	return res, nil
}

// reasonPhrase extracts the reason from a status line like "404 Not Found"
func reasonPhrase(resp *http.Response) string {
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}
