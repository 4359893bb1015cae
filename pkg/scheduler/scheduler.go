// Package scheduler downloads new episodes of a set of feeds. Feeds are fetched first, their new
// episodes queued per feed and downloaded after, with a bounded number of concurrent exchanges
// and a free disk space check before any new exchange starts.
package scheduler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/podfetch/pkg/diskspace"
	"github.com/umputun/podfetch/pkg/domain"
	"github.com/umputun/podfetch/pkg/download"
)

//go:generate moq -out mocks/store.go -pkg mocks -skip-ensure -fmt goimports . Store

// Store keeps downloaded episodes and feed freshness tokens
type Store interface {
	IsDownloaded(ctx context.Context, url string) (bool, error)
	MarkDownloaded(ctx context.Context, url string) error
	Freshness(ctx context.Context, feedURL string) (string, error)
	SetFreshness(ctx context.Context, feedURL, token string) error
}

// MaxThreads is the upper limit of concurrent exchanges
const MaxThreads = 256

// Config holds scheduler configuration
type Config struct {
	SaveLocation      string
	Threads           int   // max concurrent exchanges, 1 to MaxThreads
	RecentEpisodes    int   // keep only N most recent episodes of a feed, 0 for all
	MinFreeSpace      int64 // bytes, negative disables the check
	FilterExplicit    bool
	IgnoreNotModified bool
	InitMode          bool // mark all episodes downloaded without downloading them
}

// Stats of the last run
type Stats struct {
	Feeds       int   // feeds fetched and parsed
	NotModified int   // feeds not modified since the last run
	Episodes    int   // episodes downloaded
	Bytes       int64 // bytes of downloaded episodes
	Failed      int   // failed feeds and episodes
	Skipped     int   // queued feeds and episodes dropped without download
}

// Scheduler runs feeds and their episodes to completion
type Scheduler struct {
	cfg       Config
	store     Store
	transport download.Transport
	parser    download.FeedParser
	freeSpace func(path string) (int64, error)
	stats     Stats
}

// Option sets optional scheduler parameters
type Option func(*Scheduler)

// WithFreeSpace sets the free disk space query, diskspace.Free by default
func WithFreeSpace(fn func(path string) (int64, error)) Option {
	return func(s *Scheduler) { s.freeSpace = fn }
}

// New makes a scheduler
func New(cfg Config, store Store, tr download.Transport, parser download.FeedParser, opts ...Option) *Scheduler {
	cfg.Threads = min(max(cfg.Threads, 1), MaxThreads)
	if cfg.RecentEpisodes < 0 {
		cfg.RecentEpisodes = 0
	}
	res := &Scheduler{
		cfg:       cfg,
		store:     store,
		transport: tr,
		parser:    parser,
		freeSpace: diskspace.Free,
	}
	for _, opt := range opts {
		opt(res)
	}
	return res
}

// Stats returns counters of the last completed run
func (s *Scheduler) Stats() Stats {
	return s.stats
}

// Run fetches all feeds and downloads their new episodes. It returns when nothing is queued
// and no exchange is in flight. A disk space shutdown is not an error. On context cancellation
// queued work is dropped, exchanges in flight are waited for and ctx.Err() is returned.
func (s *Scheduler) Run(ctx context.Context, feeds []domain.Feed) error {
	st := time.Now()
	r := &run{
		Scheduler: s,
		ctx:       ctx,
		storeCtx:  context.WithoutCancel(ctx),
		feedQueue: append([]domain.Feed(nil), feeds...),
		claimed:   map[string]struct{}{},
		usedPaths: map[string]struct{}{},
		events:    make(chan event, s.cfg.Threads),
	}
	r.eg.SetLimit(s.cfg.Threads)
	s.stats = Stats{}

	if len(feeds) == 0 {
		lgr.Printf("[INFO] no feeds to process")
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lgr.Printf("[INFO] processing %d feeds with %d threads", len(feeds), s.cfg.Threads)
	r.admit()

	done := ctx.Done()
	for r.inFlight > 0 {
		select {
		case ev := <-r.events:
			r.handle(ev)
			r.admit()
		case <-done:
			r.shutdown()
			done = nil
		}
	}
	_ = r.eg.Wait()

	lgr.Printf("[INFO] completed in %v, feeds: %d, not modified: %d, episodes: %d (%s), failed: %d, skipped: %d",
		time.Since(st).Truncate(time.Millisecond), s.stats.Feeds, s.stats.NotModified, s.stats.Episodes,
		humanize.IBytes(uint64(s.stats.Bytes)), s.stats.Failed, s.stats.Skipped) //nolint:gosec // never negative
	return ctx.Err()
}

// run keeps the state of a single Run. Queues and counters are touched by the Run goroutine only,
// exchanges report back through events.
type run struct {
	*Scheduler
	ctx      context.Context
	storeCtx context.Context // store calls survive cancellation so finished work is recorded

	feedQueue []domain.Feed
	itemQueue []*feedJob
	inFlight  int
	stopped   bool
	claimed   map[string]struct{} // episode urls queued in this run
	usedPaths map[string]struct{} // episode save paths taken in this run

	events chan event
	eg     errgroup.Group
}

// feedJob is a fetched feed with its episodes waiting for download
type feedJob struct {
	feed         domain.Feed
	dir          string
	episodes     []domain.Episode // not started yet
	pending      int              // episodes not finished yet, including queued
	failed       bool
	lastModified string
}

// exchange is one download item in flight, either a feed or an episode of job
type exchange struct {
	item     *download.Item
	feedHook *download.FeedHook
	fileHook *download.FileHook
	feed     domain.Feed
	job      *feedJob
	episode  domain.Episode
}

func (ex *exchange) isFeed() bool { return ex.feedHook != nil }

// event is a completed exchange
type event struct {
	ex  *exchange
	res download.Result
}

// admit starts as much queued work as the thread limit allows, feeds before episodes
func (r *run) admit() {
	if r.stopped {
		return
	}
	if r.ctx.Err() != nil {
		r.shutdown()
		return
	}
	if len(r.feedQueue) == 0 && len(r.itemQueue) == 0 {
		return
	}
	if !r.enoughSpace() {
		r.stopped = true
		r.discardQueued()
		return
	}
	for r.inFlight < r.cfg.Threads && len(r.feedQueue) > 0 {
		r.startFeed()
	}
	for r.inFlight < r.cfg.Threads && len(r.itemQueue) > 0 {
		r.startEpisode()
	}
}

// enoughSpace checks free space against the minimum. Unknown free space passes.
func (r *run) enoughSpace() bool {
	if r.cfg.MinFreeSpace < 0 {
		return true
	}
	path := existingParent(r.cfg.SaveLocation)
	free, err := r.freeSpace(path)
	if err != nil {
		if !errors.Is(err, diskspace.ErrUnsupported) {
			lgr.Printf("[DEBUG] can't get free space of %s: %v", path, err)
		}
		return true
	}
	if free < 0 || free > r.cfg.MinFreeSpace {
		return true
	}
	lgr.Printf("[ERROR] not enough free space in %s, %s available, %s required, stopping downloads",
		path, humanize.IBytes(uint64(free)), humanize.IBytes(uint64(r.cfg.MinFreeSpace))) //nolint:gosec // checked above
	return false
}

// shutdown drops queued work on cancellation
func (r *run) shutdown() {
	if r.stopped {
		return
	}
	lgr.Printf("[WARN] interrupted, waiting for %d exchanges in flight", r.inFlight)
	r.stopped = true
	r.discardQueued()
}

func (r *run) discardQueued() {
	for _, f := range r.feedQueue {
		lgr.Printf("[DEBUG] feed %s dropped", f.Name)
		r.stats.Skipped++
	}
	r.feedQueue = nil
	for _, job := range r.itemQueue {
		lgr.Printf("[DEBUG] %d episodes of %s dropped", len(job.episodes), job.feed.Name)
		r.stats.Skipped += len(job.episodes)
		job.pending -= len(job.episodes)
		job.episodes = nil
		job.failed = true
	}
	r.itemQueue = nil
}

// dispatch runs one exchange of ex in its own goroutine
func (r *run) dispatch(ex *exchange) {
	r.eg.Go(func() error {
		res := ex.item.Do(r.ctx, r.transport)
		r.events <- event{ex: ex, res: res}
		return nil
	})
}

func (r *run) handle(ev event) {
	if ev.res.State == download.Redirected {
		// the slot stays taken, the same item goes to the new location
		lgr.Printf("[DEBUG] %s moved to %s", ev.ex.item.Name(), ev.res.Target)
		r.dispatch(ev.ex)
		return
	}
	r.inFlight--
	if ev.ex.isFeed() {
		r.feedDone(ev.ex, ev.res)
		return
	}
	r.episodeDone(ev.ex, ev.res)
}

// existingParent returns path or its closest existing parent, the save location may not exist yet
func existingParent(path string) string {
	if path == "" {
		return "."
	}
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}
