package sync

// Welcome is the first line every watcher receives.
type Welcome struct {
	Type      string `json:"type"` // always "welcome"
	Transport string `json:"transport"`
	Watchers  int    `json:"watchers"`
}
