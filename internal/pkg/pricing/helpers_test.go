package pricing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/PhilDL/shuken/app/models"
	"github.com/PhilDL/shuken/internal/pkg/billing"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Customer{},
		&models.Product{},
		&models.Price{},
		&models.PriceChange{},
		&models.Subscription{},
	))
	return db
}

// journal records remote and local writes in the order they happen.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) index(entry string) int {
	for i, e := range j.list() {
		if e == entry {
			return i
		}
	}
	return -1
}

type fakeProvider struct {
	journal *journal

	mu              sync.Mutex
	nextID          int
	createdByKey    map[string]string
	priceParams     []billing.PriceParams
	deactivated     []string
	updatedProducts []billing.ProductParams
	archived        []string

	failUpdateProduct error
	failDeactivate    error
	failCreate        map[string]error
	failCreateOnce    bool
}

func newFakeProvider(j *journal) *fakeProvider {
	return &fakeProvider{journal: j, createdByKey: map[string]string{}, failCreate: map[string]error{}}
}

func (f *fakeProvider) CreateProduct(ctx context.Context, p billing.ProductParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := fmt.Sprintf("prod_%d", f.nextID)
	f.journal.add("remote:create_product:%s", id)
	return id, nil
}

func (f *fakeProvider) UpdateProduct(ctx context.Context, ref string, p billing.ProductParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdateProduct != nil {
		return f.failUpdateProduct
	}
	f.updatedProducts = append(f.updatedProducts, p)
	f.journal.add("remote:update_product:%s", ref)
	return nil
}

func (f *fakeProvider) ArchiveProduct(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, ref)
	f.journal.add("remote:archive_product:%s", ref)
	return nil
}

func (f *fakeProvider) CreatePrice(ctx context.Context, p billing.PriceParams) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failCreate[p.Interval]; ok {
		if f.failCreateOnce {
			delete(f.failCreate, p.Interval)
		}
		return "", err
	}
	f.priceParams = append(f.priceParams, p)
	// same idempotency key, same price
	if id, ok := f.createdByKey[p.IdempotencyKey]; ok && p.IdempotencyKey != "" {
		return id, nil
	}
	f.nextID++
	id := fmt.Sprintf("price_%d", f.nextID)
	f.createdByKey[p.IdempotencyKey] = id
	f.journal.add("remote:create:%d", p.Amount)
	return id, nil
}

func (f *fakeProvider) DeactivatePrice(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDeactivate != nil {
		return f.failDeactivate
	}
	f.deactivated = append(f.deactivated, id)
	f.journal.add("remote:deactivate:%s", id)
	return nil
}

func (f *fakeProvider) priceCalls() (created []billing.PriceParams, deactivated []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]billing.PriceParams(nil), f.priceParams...), append([]string(nil), f.deactivated...)
}

// recordingStore journals local price writes and can fail them on demand.
type recordingStore struct {
	Store
	journal        *journal
	failInsertOnce bool
}

func (s *recordingStore) DeactivatePrice(ctx context.Context, pc *models.PriceChange) error {
	if err := s.Store.DeactivatePrice(ctx, pc); err != nil {
		return err
	}
	s.journal.add("local:deactivate:%s", pc.OldPriceID)
	return nil
}

func (s *recordingStore) InsertPrice(ctx context.Context, pc *models.PriceChange, price *models.Price) error {
	if s.failInsertOnce {
		s.failInsertOnce = false
		return errors.New("database is gone")
	}
	if err := s.Store.InsertPrice(ctx, pc, price); err != nil {
		return err
	}
	s.journal.add("local:insert:%s", price.ID)
	return nil
}

type testEnv struct {
	db       *gorm.DB
	journal  *journal
	provider *fakeProvider
	store    *recordingStore
	service  *Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	j := &journal{}
	provider := newFakeProvider(j)
	store := &recordingStore{Store: NewStore(db), journal: j}
	return &testEnv{
		db:       db,
		journal:  j,
		provider: provider,
		store:    store,
		service:  NewService(store, provider, NewMemoryLocker(), 0),
	}
}

func (e *testEnv) seedPlan(t *testing.T, prices ...models.Price) *models.Product {
	t.Helper()

	product := &models.Product{ID: "plan-1", Name: "Pro", StripeProductID: "prod_pro"}
	require.NoError(t, e.db.Create(product).Error)
	for _, p := range prices {
		p := p
		p.ProductID = product.ID
		if p.Type == "" {
			p.Type = models.PriceTypeRecurring
		}
		if p.Currency == "" {
			p.Currency = models.CurrencyEUR
		}
		require.NoError(t, e.db.Create(&p).Error)
	}
	return product
}

func (e *testEnv) prices(t *testing.T, interval string) []models.Price {
	t.Helper()

	var prices []models.Price
	require.NoError(t, e.db.Where("product_id = ? AND billing_interval = ?", "plan-1", interval).
		Order("created_at ASC").Find(&prices).Error)
	return prices
}

func amount(v int64) *int64 {
	return &v
}

func monthlyInput(enabled bool, minor int64) PlanInput {
	in := PlanInput{
		Name:    "Pro",
		Monthly: IntervalInput{Enabled: enabled, Currency: models.CurrencyEUR},
		Yearly:  IntervalInput{Currency: models.CurrencyEUR},
	}
	if minor != 0 {
		in.Monthly.Amount = amount(minor)
	}
	return in
}
