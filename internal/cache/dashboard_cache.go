package cache

import (
	"time"

	dashboarddomain "github.com/arusnet/arus/internal/dashboard/domain"
)

const defaultStatsTTL = 15 * time.Second

// DashboardStatsCache memoizes the overview aggregates between refreshes
// so a wall of open browser tabs cannot hammer the count queries.
type DashboardStatsCache interface {
	Get() (dashboarddomain.Stats, bool)
	Set(stats dashboarddomain.Stats)
}

type dashboardStatsCache struct {
	stats Cache[string, dashboarddomain.Stats]
	ttl   time.Duration
}

func NewDashboardStatsCache() DashboardStatsCache {
	return &dashboardStatsCache{
		stats: NewTTLCache[string, dashboarddomain.Stats](),
		ttl:   defaultStatsTTL,
	}
}

func (c *dashboardStatsCache) Get() (dashboarddomain.Stats, bool) {
	return c.stats.Get("overview")
}

func (c *dashboardStatsCache) Set(stats dashboarddomain.Stats) {
	c.stats.Set("overview", stats, c.ttl)
}
