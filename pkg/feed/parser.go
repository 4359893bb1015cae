package feed

import (
	"fmt"
	"html"
	"io"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"github.com/umputun/podfetch/pkg/domain"
)

// pubDateLayouts used when gofeed could not parse a publish date by itself.
// The zone token is cut off before parsing.
var pubDateLayouts = []string{
	"Mon, 02 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04:05",
	"02 Jan 2006 15:04:05",
}

// Parser converts podcast feed bodies (RSS, Atom, iTunes) into episodes
type Parser struct {
	policy *bluemonday.Policy
}

// NewParser creates a new feed parser
func NewParser() *Parser {
	return &Parser{policy: bluemonday.StrictPolicy()}
}

// Parse reads a feed body and returns its episodes, most recent first.
// Entries without a usable enclosure URL are dropped.
func (p *Parser) Parse(r io.Reader) ([]domain.Episode, error) {
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	episodes := make([]domain.Episode, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		enclosure := enclosureURL(item)
		if enclosure == "" {
			continue
		}
		episodes = append(episodes, domain.Episode{
			Name:      p.cleanTitle(item.Title),
			Published: publishTime(item),
			URL:       enclosure,
			Explicit:  isExplicit(item),
		})
	}

	// truncation to the N most recent episodes relies on this order
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].Published.After(episodes[j].Published)
	})
	return episodes, nil
}

// Truncate keeps at most n episodes from the head of the list, 0 keeps all of them
func Truncate(episodes []domain.Episode, n int) []domain.Episode {
	if n <= 0 || len(episodes) <= n {
		return episodes
	}
	return episodes[:n]
}

// cleanTitle strips any markup from the title, feeds often put html entities and tags in there
func (p *Parser) cleanTitle(title string) string {
	return strings.TrimSpace(html.UnescapeString(p.policy.Sanitize(title)))
}

// enclosureURL returns the first enclosure with a valid absolute http(s) url
func enclosureURL(item *gofeed.Item) string {
	for _, enc := range item.Enclosures {
		if enc == nil {
			continue
		}
		if u := strings.TrimSpace(enc.URL); ValidURL(u) {
			return u
		}
	}
	return ""
}

// isExplicit is conservative: any marker value except "no" counts as explicit,
// a missing marker means not explicit
func isExplicit(item *gofeed.Item) bool {
	if item.ITunesExt == nil {
		return false
	}
	v := strings.TrimSpace(item.ITunesExt.Explicit)
	return v != "" && !strings.EqualFold(v, "no")
}

// publishTime returns the wall-clock publish time of the item with its zone dropped,
// ordering only needs date and time fields
func publishTime(item *gofeed.Item) time.Time {
	ts := item.PublishedParsed
	if ts == nil {
		ts = item.UpdatedParsed
	}
	if ts != nil {
		return wallClock(*ts)
	}

	raw := strings.TrimSpace(item.Published)
	if idx := strings.LastIndex(raw, " "); idx > 0 {
		raw = raw[:idx]
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func wallClock(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// ValidURL checks that s is an absolute http or https url with a host
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
