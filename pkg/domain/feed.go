package domain

// Feed describes a podcast feed from the listings file
type Feed struct {
	Name              string
	Category          string
	URL               string
	Init              bool // mark current episodes as downloaded without fetching them
	IgnoreNotModified bool // always fetch the full feed, even when a freshness token is known
}
