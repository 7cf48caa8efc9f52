package statistics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/cache"
)

const (
	CacheKeyDashboard = "statistics:dashboard"
	CacheExpiration   = 5 * time.Minute
)

// Dashboard holds the counts shown on the admin start page.
type Dashboard struct {
	Customers   int64     `json:"customers"`
	Subscribers int64     `json:"subscribers"`
	Posts       int64     `json:"posts"`
	Published   int64     `json:"published"`
	Staff       int64     `json:"staff"`
	Plans       int       `json:"plans"`
	GeneratedAt time.Time `json:"generated_at"`
}

type PlanLister interface {
	ListPlans(ctx context.Context) ([]models.Product, error)
}

// Collector computes dashboard statistics and keeps them in redis for
// CacheExpiration.
type Collector struct {
	repos *repository.Repositories
	plans PlanLister
	now   func() time.Time
}

func NewCollector(repos *repository.Repositories, plans PlanLister) *Collector {
	return &Collector{repos: repos, plans: plans, now: time.Now}
}

// Dashboard returns cached counts when present and recomputes otherwise.
// A cache outage only costs the extra queries.
func (c *Collector) Dashboard(ctx context.Context) (Dashboard, error) {
	if raw, err := cache.Get(CacheKeyDashboard); err == nil {
		var d Dashboard
		if err := json.Unmarshal([]byte(raw), &d); err == nil {
			return d, nil
		}
	}

	d, err := c.compute(ctx)
	if err != nil {
		return d, err
	}
	if raw, err := json.Marshal(d); err == nil {
		if err := cache.Set(CacheKeyDashboard, raw, CacheExpiration); err != nil {
			log.Warnf("[Statistics] Failed to cache dashboard: %v", err)
		}
	}
	return d, nil
}

// Invalidate drops the cached counts so the next request recomputes them.
func Invalidate() {
	if err := cache.Delete(CacheKeyDashboard); err != nil {
		log.Warnf("[Statistics] Failed to invalidate dashboard: %v", err)
	}
}

func (c *Collector) compute(ctx context.Context) (Dashboard, error) {
	d := Dashboard{GeneratedAt: c.now().UTC()}
	counts := []struct {
		name string
		dst  *int64
		fn   func() (int64, error)
	}{
		{"customers", &d.Customers, c.repos.Customer.Count},
		{"subscribers", &d.Subscribers, c.repos.Customer.CountSubscribed},
		{"posts", &d.Posts, c.repos.Post.Count},
		{"published posts", &d.Published, c.repos.Post.CountPublished},
		{"staff", &d.Staff, c.repos.User.Count},
	}
	for _, cnt := range counts {
		n, err := cnt.fn()
		if err != nil {
			return d, fmt.Errorf("count %s: %w", cnt.name, err)
		}
		*cnt.dst = n
	}

	plans, err := c.plans.ListPlans(ctx)
	if err != nil {
		return d, fmt.Errorf("list plans: %w", err)
	}
	d.Plans = len(plans)

	log.Debugf("[Statistics] Dashboard recomputed: %d customers, %d subscribers", d.Customers, d.Subscribers)
	return d, nil
}
