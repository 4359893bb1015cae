package scheduler

import (
	"github.com/go-pkgz/lgr"

	"github.com/umputun/podfetch/pkg/domain"
	"github.com/umputun/podfetch/pkg/download"
	"github.com/umputun/podfetch/pkg/feed"
)

// startFeed takes the first queued feed and starts its fetch
func (r *run) startFeed() {
	f := r.feedQueue[0]
	r.feedQueue = r.feedQueue[1:]

	token := ""
	if !r.cfg.IgnoreNotModified && !f.IgnoreNotModified {
		var err error
		if token, err = r.store.Freshness(r.storeCtx, f.URL); err != nil {
			lgr.Printf("[ERROR] can't get freshness of %s, fetching unconditionally: %v", f.Name, err)
			token = ""
		}
	}

	hook := download.NewFeedHook(r.parser)
	ex := &exchange{
		item:     download.NewItem(f.Name, f.URL, hook, download.WithHeader(download.FeedHeader(token)), download.AcceptNotModified()),
		feedHook: hook,
		feed:     f,
	}
	lgr.Printf("[DEBUG] fetching feed %s from %s", f.Name, f.URL)
	r.inFlight++
	r.dispatch(ex)
}

func (r *run) feedDone(ex *exchange, res download.Result) {
	f := ex.feed
	switch res.State {
	case download.NotModified:
		r.stats.NotModified++
		lgr.Printf("[INFO] %s not modified", f.Name)
	case download.Succeeded:
		r.stats.Feeds++
		r.feedReady(f, ex.feedHook.Episodes(), res.LastModified)
	default:
		r.stats.Failed++
		lgr.Printf("[ERROR] feed %s: %v", f.Name, res.Err)
	}
}

// feedReady records or queues episodes of a fetched feed
func (r *run) feedReady(f domain.Feed, episodes []domain.Episode, lastModified string) {
	if f.Init || r.cfg.InitMode {
		r.markSeen(f, episodes)
		return
	}

	job := &feedJob{feed: f, lastModified: lastModified}
	for _, ep := range feed.Truncate(episodes, r.cfg.RecentEpisodes) {
		if r.cfg.FilterExplicit && ep.Explicit {
			lgr.Printf("[DEBUG] %s: explicit episode %s skipped", f.Name, ep.Identifier())
			continue
		}
		if _, ok := r.claimed[ep.URL]; ok {
			lgr.Printf("[DEBUG] %s: episode %s already queued", f.Name, ep.Identifier())
			continue
		}
		downloaded, err := r.store.IsDownloaded(r.storeCtx, ep.URL)
		if err != nil {
			lgr.Printf("[ERROR] %s: can't check episode %s, skipped: %v", f.Name, ep.Identifier(), err)
			continue
		}
		if downloaded {
			continue
		}
		r.claimed[ep.URL] = struct{}{}
		job.episodes = append(job.episodes, ep)
	}

	if len(job.episodes) == 0 {
		lgr.Printf("[INFO] %s: no new episodes", f.Name)
		r.setFreshness(f, lastModified)
		return
	}
	job.pending = len(job.episodes)
	r.itemQueue = append(r.itemQueue, job)
	lgr.Printf("[INFO] %s: %d new episodes", f.Name, len(job.episodes))
}

// markSeen records all episodes as downloaded without downloading them
func (r *run) markSeen(f domain.Feed, episodes []domain.Episode) {
	marked := 0
	for _, ep := range episodes {
		if r.cfg.FilterExplicit && ep.Explicit {
			continue // a later run without the filter still gets it
		}
		if err := r.store.MarkDownloaded(r.storeCtx, ep.URL); err != nil {
			lgr.Printf("[ERROR] %s: can't mark episode %s: %v", f.Name, ep.Identifier(), err)
			continue
		}
		marked++
	}
	lgr.Printf("[INFO] %s: %d episodes marked as downloaded", f.Name, marked)
}

func (r *run) setFreshness(f domain.Feed, token string) {
	if err := r.store.SetFreshness(r.storeCtx, f.URL, token); err != nil {
		lgr.Printf("[ERROR] %s: can't save freshness: %v", f.Name, err)
	}
}
