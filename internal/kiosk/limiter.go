package kiosk

import (
	"sync"

	"github.com/HerbHall/kioskwatch/pkg/models"
	"golang.org/x/time/rate"
)

// reportLimiter throttles status reports per kiosk so one misbehaving
// terminal cannot flood dashboards.
type reportLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[models.KioskID]*rate.Limiter
}

func newReportLimiter(perSecond float64, burst int) *reportLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &reportLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[models.KioskID]*rate.Limiter),
	}
}

// Allow reports whether kiosk id may submit a report now.
func (l *reportLimiter) Allow(id models.KioskID) bool {
	l.mu.Lock()
	lim, ok := l.limiters[id]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[id] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}
