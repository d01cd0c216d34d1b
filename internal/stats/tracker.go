// Package stats counts landing page visits and clients seen recently.
package stats

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

const (
	// VisitGrace is how long a client must be away before a landing page
	// hit counts as a new visit.
	VisitGrace = 30 * time.Minute
	// OnlineWindow is how recently a client must have been seen to count
	// as online.
	OnlineWindow = time.Minute
)

type Snapshot struct {
	Online int   `json:"online"`
	Visits int64 `json:"visitas"`
}

type Tracker struct {
	seen   *cache.Cache // client -> time.Time of last request
	visits atomic.Int64
	now    func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{
		seen: cache.New(VisitGrace, 5*time.Minute),
		now:  time.Now,
	}
}

// Touch records a request from client. Landing page requests count as a
// visit unless the client was seen within VisitGrace.
func (t *Tracker) Touch(client string, landing bool) {
	now := t.now()
	if landing {
		last, ok := t.seen.Get(client)
		if !ok || now.Sub(last.(time.Time)) > VisitGrace {
			t.visits.Add(1)
		}
	}
	t.seen.Set(client, now, cache.DefaultExpiration)
}

// Snapshot reports visits so far and clients seen within OnlineWindow. The
// requester is always online, so Online is at least 1.
func (t *Tracker) Snapshot() Snapshot {
	now := t.now()
	online := 0
	for _, item := range t.seen.Items() {
		if last, ok := item.Object.(time.Time); ok && now.Sub(last) <= OnlineWindow {
			online++
		}
	}
	if online == 0 {
		online = 1
	}
	return Snapshot{Online: online, Visits: t.visits.Load()}
}

func (t *Tracker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		t.Touch(c.ClientIP(), p == "/" || p == "/index.html")
		c.Next()
	}
}
