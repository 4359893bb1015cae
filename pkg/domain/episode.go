package domain

import "time"

// Episode is a single media item referenced by a feed entry.
// URL is the enclosure URL as listed in the feed and serves as the episode identity.
type Episode struct {
	Name      string
	Published time.Time
	URL       string
	Explicit  bool
	SavePath  string
}

// Identifier returns a human-readable identifier for an episode
func (e Episode) Identifier() string {
	if e.Name != "" {
		return e.Name
	}
	return e.URL
}
