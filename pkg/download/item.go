package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

//go:generate moq -out mocks/transport.go -pkg mocks -skip-ensure -fmt goimports . Transport

// State of a download item
type State int

// download item states, everything after Requesting is terminal for a single exchange
const (
	Idle State = iota
	Requesting
	Succeeded
	Redirected
	NotModified
	Failed
)

var stateNames = map[State]string{
	Idle:        "idle",
	Requesting:  "requesting",
	Succeeded:   "succeeded",
	Redirected:  "redirected",
	NotModified: "not modified",
	Failed:      "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrInfiniteRedirect is returned when a redirect points to an url already visited by the item
var ErrInfiniteRedirect = errors.New("infinite redirection")

// Transport issues a single GET request. It must not follow redirects by itself.
type Transport interface {
	Get(ctx context.Context, url string, header http.Header) (*Response, error)
}

// Response is what Transport reports for a completed request
type Response struct {
	StatusCode   int
	Reason       string
	Location     string // absolute redirect target, if any
	LastModified string
	Body         io.ReadCloser
}

// Hook is the type-specific part of a download item
type Hook interface {
	// Success consumes the body of a 200 response, an error means the item failed
	Success(body io.Reader) error
	// Moved is called when the content moved to target and the item is about to be re-requested
	Moved(target string) error
	// Abandon releases anything held by the hook after a failure
	Abandon()
}

// Result of a single exchange
type Result struct {
	State        State
	Err          error
	LastModified string
	Target       string // new url for Redirected
}

// Item drives one downloadable resource (a feed or an episode) through http exchanges.
// Only one exchange may be in flight at a time.
type Item struct {
	name              string
	url               string
	hook              Hook
	header            http.Header
	acceptNotModified bool
	history           map[string]struct{}
	state             State
}

// Option sets optional item parameters
type Option func(*Item)

// WithHeader sets extra request headers, e.g. If-Modified-Since
func WithHeader(h http.Header) Option {
	return func(it *Item) { it.header = h }
}

// AcceptNotModified makes 304 a valid outcome, feeds only
func AcceptNotModified() Option {
	return func(it *Item) { it.acceptNotModified = true }
}

// NewItem makes an idle item for the given url
func NewItem(name, url string, hook Hook, opts ...Option) *Item {
	res := &Item{
		name:    name,
		url:     url,
		hook:    hook,
		history: map[string]struct{}{url: {}},
		state:   Idle,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Name returns item name
func (it *Item) Name() string { return it.name }

// URL returns the url the next exchange goes to
func (it *Item) URL() string { return it.url }

// State returns the state of the last exchange
func (it *Item) State() State { return it.state }

// Do performs one exchange against the current url and returns its terminal outcome.
// The response body is closed before Do returns, whatever the outcome.
func (it *Item) Do(ctx context.Context, tr Transport) Result {
	it.state = Requesting

	resp, err := tr.Get(ctx, it.url, it.header)
	if err != nil {
		return it.fail(fmt.Errorf("connection failed: %w", err))
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			if resp.Body != nil {
				_ = resp.Body.Close()
			}
		})
	}
	defer release()

	switch resp.StatusCode {
	case 0:
		release()
		return it.fail(errors.New("connection failed: no status code"))

	case http.StatusOK:
		var body io.Reader = http.NoBody
		if resp.Body != nil {
			body = resp.Body
		}
		err := it.hook.Success(body)
		release()
		if err != nil {
			return it.fail(err)
		}
		it.state = Succeeded
		return Result{State: Succeeded, LastModified: resp.LastModified}

	case http.StatusMovedPermanently, http.StatusFound:
		release()
		target := resp.Location
		if target == "" {
			return it.fail(fmt.Errorf("http status %d: redirect without location", resp.StatusCode))
		}
		if _, seen := it.history[target]; seen {
			return it.fail(ErrInfiniteRedirect)
		}
		it.history[target] = struct{}{}
		if err := it.hook.Moved(target); err != nil {
			return it.fail(fmt.Errorf("content moved to %s: %w", target, err))
		}
		it.url = target
		it.state = Redirected
		return Result{State: Redirected, Target: target}

	case http.StatusNotModified:
		release()
		if !it.acceptNotModified {
			return it.fail(statusError(resp))
		}
		it.state = NotModified
		return Result{State: NotModified, LastModified: resp.LastModified}

	default:
		release()
		return it.fail(statusError(resp))
	}
}

func (it *Item) fail(err error) Result {
	it.hook.Abandon()
	it.state = Failed
	return Result{State: Failed, Err: err}
}

func statusError(resp *Response) error {
	reason := resp.Reason
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("http status %d: %s", resp.StatusCode, reason)
}
