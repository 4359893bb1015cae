package download

import (
	"io"

	"github.com/umputun/podfetch/pkg/domain"
)

// FeedParser turns a feed body into episodes, most recent first
type FeedParser interface {
	Parse(r io.Reader) ([]domain.Episode, error)
}

// FeedHook parses the feed body on success and keeps the episodes found
type FeedHook struct {
	parser   FeedParser
	episodes []domain.Episode
}

// NewFeedHook makes a hook parsing feed bodies with the given parser
func NewFeedHook(parser FeedParser) *FeedHook {
	return &FeedHook{parser: parser}
}

// Success parses the body. Parse errors fail the feed, there is no retry.
func (h *FeedHook) Success(body io.Reader) error {
	episodes, err := h.parser.Parse(body)
	if err != nil {
		return err
	}
	h.episodes = episodes
	return nil
}

// Moved has nothing to reset for feeds
func (h *FeedHook) Moved(string) error { return nil }

// Abandon drops anything parsed so far
func (h *FeedHook) Abandon() { h.episodes = nil }

// Episodes returns episodes parsed from the last successful exchange
func (h *FeedHook) Episodes() []domain.Episode { return h.episodes }
