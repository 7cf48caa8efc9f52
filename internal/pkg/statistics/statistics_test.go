package statistics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/app/repository"
	"github.com/PhilDL/shuken/internal/pkg/cache"
)

type staticPlans []models.Product

func (p staticPlans) ListPlans(ctx context.Context) ([]models.Product, error) {
	return p, nil
}

func setup(t *testing.T) (*repository.Repositories, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Customer{}, &models.Subscription{}, &models.Post{}))
	return repository.NewRepositories(db), mr
}

func TestDashboardIsCached(t *testing.T) {
	repos, mr := setup(t)
	require.NoError(t, repos.Customer.Create(&models.Customer{Email: "ann@example.com"}))
	require.NoError(t, repos.Post.Create(&models.Post{Title: "Hello", Slug: "hello", Content: "x", Published: true}))

	c := NewCollector(repos, staticPlans{{ID: "p1"}})
	c.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	d, err := c.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Customers)
	assert.Equal(t, int64(1), d.Published)
	assert.Equal(t, 1, d.Plans)
	assert.True(t, mr.Exists(CacheKeyDashboard))
	assert.Equal(t, CacheExpiration, mr.TTL(CacheKeyDashboard))

	require.NoError(t, repos.Customer.Create(&models.Customer{Email: "bob@example.com"}))
	d, err = c.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.Customers, "served from cache")

	Invalidate()
	d, err = c.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), d.Customers)
}
