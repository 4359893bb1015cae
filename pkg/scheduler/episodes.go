package scheduler

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-pkgz/lgr"

	"github.com/umputun/podfetch/pkg/download"
)

// startEpisode starts the first episode of the first queued feed. The feed goes to the back
// of the queue while it has more episodes, so feeds take turns.
func (r *run) startEpisode() {
	job := r.itemQueue[0]
	r.itemQueue = r.itemQueue[1:]

	if job.dir == "" {
		dir := filepath.Join(r.cfg.SaveLocation, safeName(job.feed.Category, ""), safeName(job.feed.Name, "feed"))
		if err := os.MkdirAll(dir, 0o750); err != nil {
			lgr.Printf("[ERROR] feed %s: can't create directory, %d episodes dropped: %v", job.feed.Name, len(job.episodes), err)
			r.stats.Failed += len(job.episodes)
			job.pending -= len(job.episodes)
			job.episodes = nil
			job.failed = true
			return
		}
		job.dir = dir
	}

	ep := job.episodes[0]
	job.episodes = job.episodes[1:]
	if len(job.episodes) > 0 {
		r.itemQueue = append(r.itemQueue, job)
	}

	ep.SavePath = r.savePath(job.dir, fileName(ep.URL, ep.Name))
	hook := download.NewFileHook(ep.SavePath)
	if err := hook.Open(); err != nil {
		lgr.Printf("[ERROR] %s: episode %s: %v", job.feed.Name, ep.Identifier(), err)
		r.stats.Failed++
		job.failed = true
		r.episodeFinished(job)
		return
	}

	ex := &exchange{
		item:     download.NewItem(ep.Name, ep.URL, hook, download.WithHeader(download.MediaHeader())),
		fileHook: hook,
		feed:     job.feed,
		job:      job,
		episode:  ep,
	}
	lgr.Printf("[DEBUG] downloading %s to %s", ep.URL, ep.SavePath)
	r.inFlight++
	r.dispatch(ex)
}

func (r *run) episodeDone(ex *exchange, res download.Result) {
	job, ep := ex.job, ex.episode
	defer r.episodeFinished(job)

	if res.State != download.Succeeded {
		err := res.Err
		if err == nil {
			err = errors.New(res.State.String())
		}
		r.stats.Failed++
		job.failed = true
		lgr.Printf("[ERROR] %s: episode %s: %v", job.feed.Name, ep.Identifier(), err)
		return
	}

	r.stats.Episodes++
	r.stats.Bytes += ex.fileHook.Written()
	lgr.Printf("[INFO] %s: downloaded %s, %s", job.feed.Name, ep.Identifier(), humanize.IBytes(uint64(ex.fileHook.Written()))) //nolint:gosec // byte count
	// recorded by the url listed in the feed, not the one it moved to
	if err := r.store.MarkDownloaded(r.storeCtx, ep.URL); err != nil {
		lgr.Printf("[ERROR] %s: can't mark episode %s: %v", job.feed.Name, ep.Identifier(), err)
		job.failed = true
	}
}

// episodeFinished saves the feed freshness once all its episodes are done and none failed
func (r *run) episodeFinished(job *feedJob) {
	job.pending--
	if job.pending > 0 || job.failed {
		return
	}
	r.setFreshness(job.feed, job.lastModified)
}

// savePath returns a path in dir for the file name not used by this run and not on disk yet.
// A taken name gets an index before the extension, media.mp3 becomes media-2.mp3.
func (r *run) savePath(dir, name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	res := filepath.Join(dir, name)
	for i := 2; r.pathTaken(res); i++ {
		res = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, i, ext))
	}
	r.usedPaths[res] = struct{}{}
	return res
}

func (r *run) pathTaken(p string) bool {
	if _, ok := r.usedPaths[p]; ok {
		return true
	}
	_, err := os.Lstat(p)
	return err == nil
}

// fileName picks the local file name of an episode, the last element of the url path if any
func fileName(rawURL, name string) string {
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); base != "/" && base != "." {
			return safeName(base, "episode")
		}
	}
	return safeName(name, "episode")
}

// safeName makes s usable as a single path element, def is used for empty results
func safeName(s, def string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', 0:
			return '_'
		}
		return r
	}, strings.TrimSpace(s))
	if s == "" || s == "." || s == ".." {
		return def
	}
	return s
}
