package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackingBody counts Close calls
type trackingBody struct {
	io.Reader
	mu     sync.Mutex
	closed int
}

func (b *trackingBody) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed++
	return nil
}

func (b *trackingBody) closeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func newBody(s string) *trackingBody { return &trackingBody{Reader: strings.NewReader(s)} }

// transportFunc adapts a function to Transport
type transportFunc func(ctx context.Context, url string, header http.Header) (*Response, error)

func (f transportFunc) Get(ctx context.Context, url string, header http.Header) (*Response, error) {
	return f(ctx, url, header)
}

type stubHook struct {
	successErr error
	movedErr   error
	body       string
	moved      []string
	abandoned  int
	succeeded  int
	bodyClosed func() int
	closedSeen int // body close count observed when Success was called
}

func (h *stubHook) Success(body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	h.body = string(data)
	if h.bodyClosed != nil {
		h.closedSeen = h.bodyClosed()
	}
	if h.successErr != nil {
		return h.successErr
	}
	h.succeeded++
	return nil
}

func (h *stubHook) Moved(target string) error {
	h.moved = append(h.moved, target)
	return h.movedErr
}

func (h *stubHook) Abandon() { h.abandoned++ }

func TestItem_Do_Success(t *testing.T) {
	body := newBody("feed body")
	var gotHeader http.Header
	tr := transportFunc(func(_ context.Context, url string, header http.Header) (*Response, error) {
		assert.Equal(t, "http://example.com/feed", url)
		gotHeader = header
		return &Response{StatusCode: 200, Reason: "OK", LastModified: "Mon, 02 Jan 2006 15:04:05 GMT", Body: body}, nil
	})

	hook := &stubHook{bodyClosed: body.closeCount}
	hdr := http.Header{"If-Modified-Since": []string{"yesterday"}}
	item := NewItem("feed", "http://example.com/feed", hook, WithHeader(hdr))
	assert.Equal(t, Idle, item.State())

	res := item.Do(context.Background(), tr)
	require.NoError(t, res.Err)
	assert.Equal(t, Succeeded, res.State)
	assert.Equal(t, Succeeded, item.State())
	assert.Equal(t, "Mon, 02 Jan 2006 15:04:05 GMT", res.LastModified)
	assert.Equal(t, "feed body", hook.body)
	assert.Equal(t, 0, hook.closedSeen, "body still open while hook reads it")
	assert.Equal(t, 1, body.closeCount(), "body closed exactly once")
	assert.Equal(t, 0, hook.abandoned)
	assert.Equal(t, "yesterday", gotHeader.Get("If-Modified-Since"))
}

func TestItem_Do_HookFailure(t *testing.T) {
	body := newBody("broken")
	tr := transportFunc(func(context.Context, string, http.Header) (*Response, error) {
		return &Response{StatusCode: 200, Body: body}, nil
	})
	hook := &stubHook{successErr: errors.New("parse feed: bad xml")}
	item := NewItem("feed", "http://example.com/feed", hook)

	res := item.Do(context.Background(), tr)
	assert.Equal(t, Failed, res.State)
	require.Error(t, res.Err)
	assert.Equal(t, "parse feed: bad xml", res.Err.Error())
	assert.Equal(t, 1, hook.abandoned)
	assert.Equal(t, 1, body.closeCount())
}

func TestItem_Do_ConnectionFailures(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		tr := transportFunc(func(context.Context, string, http.Header) (*Response, error) {
			return nil, errors.New("dial tcp: connection refused")
		})
		hook := &stubHook{}
		res := NewItem("ep", "http://example.com/a.mp3", hook).Do(context.Background(), tr)
		assert.Equal(t, Failed, res.State)
		require.Error(t, res.Err)
		assert.Contains(t, res.Err.Error(), "connection failed")
		assert.Contains(t, res.Err.Error(), "connection refused")
		assert.Equal(t, 1, hook.abandoned)
	})

	t.Run("no status code", func(t *testing.T) {
		body := newBody("")
		tr := transportFunc(func(context.Context, string, http.Header) (*Response, error) {
			return &Response{Body: body}, nil
		})
		res := NewItem("ep", "http://example.com/a.mp3", &stubHook{}).Do(context.Background(), tr)
		assert.Equal(t, Failed, res.State)
		require.Error(t, res.Err)
		assert.Equal(t, "connection failed: no status code", res.Err.Error())
		assert.Equal(t, 1, body.closeCount())
	})
}

func TestItem_Do_Statuses(t *testing.T) {
	tbl := []struct {
		name              string
		code              int
		reason            string
		acceptNotModified bool
		wantState         State
		wantErr           string
	}{
		{name: "not found", code: 404, reason: "Not Found", wantState: Failed, wantErr: "http status 404: Not Found"},
		{name: "server error without reason", code: 500, wantState: Failed, wantErr: "http status 500: Internal Server Error"},
		{name: "feed not modified", code: 304, acceptNotModified: true, wantState: NotModified},
		{name: "episode not modified", code: 304, reason: "Not Modified", wantState: Failed, wantErr: "http status 304: Not Modified"},
		{name: "see other", code: 303, reason: "See Other", wantState: Failed, wantErr: "http status 303: See Other"},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			body := newBody("")
			tr := transportFunc(func(context.Context, string, http.Header) (*Response, error) {
				return &Response{StatusCode: tt.code, Reason: tt.reason, Body: body}, nil
			})
			var opts []Option
			if tt.acceptNotModified {
				opts = append(opts, AcceptNotModified())
			}
			hook := &stubHook{}
			res := NewItem("x", "http://example.com/x", hook, opts...).Do(context.Background(), tr)
			assert.Equal(t, tt.wantState, res.State)
			assert.Equal(t, 1, body.closeCount())
			if tt.wantErr == "" {
				assert.NoError(t, res.Err)
				assert.Equal(t, 0, hook.abandoned)
				return
			}
			require.Error(t, res.Err)
			assert.Equal(t, tt.wantErr, res.Err.Error())
			assert.Equal(t, 1, hook.abandoned)
		})
	}
}

// redirectChain answers with a redirect to the next url of the chain and 200 at its end
func redirectChain(chain map[string]string, calls *[]string) Transport {
	return transportFunc(func(_ context.Context, url string, _ http.Header) (*Response, error) {
		*calls = append(*calls, url)
		if next, ok := chain[url]; ok {
			return &Response{StatusCode: 302, Location: next, Body: newBody("")}, nil
		}
		return &Response{StatusCode: 200, Body: newBody("content")}, nil
	})
}

func runToTerminal(t *testing.T, item *Item, tr Transport, maxHops int) (Result, int) {
	t.Helper()
	hops := 0
	for {
		res := item.Do(context.Background(), tr)
		if res.State != Redirected {
			return res, hops
		}
		hops++
		require.LessOrEqual(t, hops, maxHops, "redirect loop not terminated")
	}
}

func TestItem_Do_Redirects(t *testing.T) {
	t.Run("distinct chain resolves", func(t *testing.T) {
		const n = 5
		chain := map[string]string{}
		for i := 0; i < n; i++ {
			chain[fmt.Sprintf("http://example.com/%d", i)] = fmt.Sprintf("http://example.com/%d", i+1)
		}
		var calls []string
		hook := &stubHook{}
		item := NewItem("ep", "http://example.com/0", hook)
		res, hops := runToTerminal(t, item, redirectChain(chain, &calls), 10)
		require.NoError(t, res.Err)
		assert.Equal(t, Succeeded, res.State)
		assert.Equal(t, n, hops)
		assert.Len(t, calls, n+1)
		assert.Len(t, hook.moved, n)
		assert.Equal(t, "http://example.com/5", item.URL())
	})

	t.Run("back to origin", func(t *testing.T) {
		chain := map[string]string{
			"http://example.com/a": "http://example.com/b",
			"http://example.com/b": "http://example.com/a",
		}
		var calls []string
		hook := &stubHook{}
		res, hops := runToTerminal(t, NewItem("ep", "http://example.com/a", hook), redirectChain(chain, &calls), 10)
		assert.Equal(t, Failed, res.State)
		assert.ErrorIs(t, res.Err, ErrInfiniteRedirect)
		assert.Equal(t, 1, hops)
		assert.Equal(t, 1, hook.abandoned)
	})

	t.Run("loop in the middle", func(t *testing.T) {
		chain := map[string]string{
			"http://example.com/a": "http://example.com/b",
			"http://example.com/b": "http://example.com/c",
			"http://example.com/c": "http://example.com/b",
		}
		var calls []string
		res, hops := runToTerminal(t, NewItem("ep", "http://example.com/a", &stubHook{}), redirectChain(chain, &calls), 10)
		assert.Equal(t, Failed, res.State)
		assert.Equal(t, "infinite redirection", res.Err.Error())
		assert.Equal(t, 2, hops)
	})

	t.Run("self redirect", func(t *testing.T) {
		chain := map[string]string{"http://example.com/a": "http://example.com/a"}
		var calls []string
		res, hops := runToTerminal(t, NewItem("ep", "http://example.com/a", &stubHook{}), redirectChain(chain, &calls), 10)
		assert.Equal(t, Failed, res.State)
		assert.ErrorIs(t, res.Err, ErrInfiniteRedirect)
		assert.Equal(t, 0, hops)
	})

	t.Run("missing location", func(t *testing.T) {
		tr := transportFunc(func(context.Context, string, http.Header) (*Response, error) {
			return &Response{StatusCode: 301, Body: newBody("")}, nil
		})
		res := NewItem("ep", "http://example.com/a", &stubHook{}).Do(context.Background(), tr)
		assert.Equal(t, Failed, res.State)
		assert.Contains(t, res.Err.Error(), "redirect without location")
	})

	t.Run("hook refuses move", func(t *testing.T) {
		tr := transportFunc(func(context.Context, string, http.Header) (*Response, error) {
			return &Response{StatusCode: 301, Location: "http://example.com/b", Body: newBody("")}, nil
		})
		hook := &stubHook{movedErr: errors.New("truncate failed")}
		res := NewItem("ep", "http://example.com/a", hook).Do(context.Background(), tr)
		assert.Equal(t, Failed, res.State)
		assert.Contains(t, res.Err.Error(), "truncate failed")
		assert.Equal(t, 1, hook.abandoned)
	})

	t.Run("redirect result", func(t *testing.T) {
		body := newBody("")
		tr := transportFunc(func(context.Context, string, http.Header) (*Response, error) {
			return &Response{StatusCode: 301, Location: "http://cdn.example.com/a", Body: body}, nil
		})
		hook := &stubHook{}
		item := NewItem("ep", "http://example.com/a", hook)
		res := item.Do(context.Background(), tr)
		assert.Equal(t, Redirected, res.State)
		assert.Equal(t, "http://cdn.example.com/a", res.Target)
		assert.Equal(t, "http://cdn.example.com/a", item.URL())
		assert.Equal(t, []string{"http://cdn.example.com/a"}, hook.moved)
		assert.Equal(t, 1, body.closeCount())
		assert.Equal(t, 0, hook.abandoned)
	})
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "requesting", Requesting.String())
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "redirected", Redirected.String())
	assert.Equal(t, "not modified", NotModified.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "state(42)", State(42).String())
}
