package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"path"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lecture-diary-api/internal/models"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (*txProviderMock, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type fakeLeaveRepo struct {
	mu      sync.Mutex
	leaves  map[string]*models.LeaveRecord
	calls   int
	failOn  string
	failErr error
	created []*models.LeaveRecord
}

func newFakeLeaveRepo(records ...models.LeaveRecord) *fakeLeaveRepo {
	repo := &fakeLeaveRepo{leaves: map[string]*models.LeaveRecord{}}
	for i := range records {
		rec := records[i]
		repo.leaves[rec.ID] = &rec
	}
	return repo
}

func (f *fakeLeaveRepo) GetForUpdate(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LeaveRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn == "get" {
		return nil, f.failErr
	}
	rec, ok := f.leaves[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *rec
	return &copy, nil
}

func (f *fakeLeaveRepo) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.LeaveStatus, remarks *string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn == "update" {
		return f.failErr
	}
	rec, ok := f.leaves[id]
	if !ok {
		return sql.ErrNoRows
	}
	rec.Status = status
	if remarks != nil {
		rec.Remarks = remarks
	}
	rec.UpdatedAt = at
	return nil
}

func (f *fakeLeaveRepo) Create(ctx context.Context, leave *models.LeaveRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if leave.ID == "" {
		leave.ID = "leave-new"
	}
	copy := *leave
	f.leaves[leave.ID] = &copy
	f.created = append(f.created, &copy)
	return nil
}

func (f *fakeLeaveRepo) FindByID(ctx context.Context, id string) (*models.LeaveRecordView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.leaves[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.LeaveRecordView{LeaveRecord: *rec}, nil
}

func (f *fakeLeaveRepo) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRecordView, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LeaveRecordView
	for _, rec := range f.leaves {
		if filter.UserID != "" && rec.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, models.LeaveRecordView{LeaveRecord: *rec})
	}
	return out, len(out), nil
}

func (f *fakeLeaveRepo) status(id string) models.LeaveStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leaves[id].Status
}

type fakeLeaveTypeRepo struct {
	types map[string]models.LeaveType
	calls int
}

func newFakeLeaveTypeRepo(types ...models.LeaveType) *fakeLeaveTypeRepo {
	repo := &fakeLeaveTypeRepo{types: map[string]models.LeaveType{}}
	for _, lt := range types {
		repo.types[lt.ID] = lt
	}
	return repo
}

func (f *fakeLeaveTypeRepo) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.LeaveType, error) {
	f.calls++
	lt, ok := f.types[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &lt, nil
}

func (f *fakeLeaveTypeRepo) List(ctx context.Context) ([]models.LeaveType, error) {
	f.calls++
	out := make([]models.LeaveType, 0, len(f.types))
	for _, lt := range f.types {
		out = append(out, lt)
	}
	return out, nil
}

func (f *fakeLeaveTypeRepo) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	for id, lt := range f.types {
		if id != excludeID && lt.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLeaveTypeRepo) Create(ctx context.Context, lt *models.LeaveType) error {
	if lt.ID == "" {
		lt.ID = "type-new"
	}
	f.types[lt.ID] = *lt
	return nil
}

func (f *fakeLeaveTypeRepo) Update(ctx context.Context, lt *models.LeaveType) error {
	if _, ok := f.types[lt.ID]; !ok {
		return sql.ErrNoRows
	}
	f.types[lt.ID] = *lt
	return nil
}

type fakeLedgerRepo struct {
	mu          sync.Mutex
	balances    map[models.LeaveBalanceKey]*models.LeaveBalance
	adjustments []models.LeaveBalanceAdjustment
	calls       int
}

func newFakeLedgerRepo(balances ...models.LeaveBalance) *fakeLedgerRepo {
	repo := &fakeLedgerRepo{balances: map[models.LeaveBalanceKey]*models.LeaveBalance{}}
	for i := range balances {
		b := balances[i]
		repo.balances[b.LeaveBalanceKey] = &b
	}
	return repo
}

func (f *fakeLedgerRepo) GetForUpdate(ctx context.Context, exec sqlx.ExtContext, key models.LeaveBalanceKey) (*models.LeaveBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	b, ok := f.balances[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copy := *b
	return &copy, nil
}

func (f *fakeLedgerRepo) IncrementUsed(ctx context.Context, exec sqlx.ExtContext, key models.LeaveBalanceKey, delta decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	b, ok := f.balances[key]
	if !ok {
		return sql.ErrNoRows
	}
	b.Used = b.Used.Add(delta)
	return nil
}

func (f *fakeLedgerRepo) AddAdjustment(ctx context.Context, exec sqlx.ExtContext, adj *models.LeaveBalanceAdjustment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	key := models.LeaveBalanceKey{UserID: adj.UserID, LeaveTypeID: adj.LeaveTypeID, Year: adj.Year}
	b, ok := f.balances[key]
	if !ok {
		return sql.ErrNoRows
	}
	b.Adjustments = b.Adjustments.Add(adj.Amount)
	f.adjustments = append(f.adjustments, *adj)
	return nil
}

func (f *fakeLedgerRepo) UpsertOpening(ctx context.Context, key models.LeaveBalanceKey, opening decimal.Decimal) (*models.LeaveBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.balances[key]
	if !ok {
		b = &models.LeaveBalance{LeaveBalanceKey: key}
		f.balances[key] = b
	}
	b.OpeningBalance = opening
	copy := *b
	return &copy, nil
}

func (f *fakeLedgerRepo) ListByUserYear(ctx context.Context, userID string, year int) ([]models.LeaveBalanceView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LeaveBalanceView
	for key, b := range f.balances {
		if key.UserID == userID && key.Year == year {
			out = append(out, models.LeaveBalanceView{LeaveBalance: *b, LeaveTypeName: key.LeaveTypeID})
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) History(ctx context.Context, key models.LeaveBalanceKey) ([]models.LeaveBalanceAdjustment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.LeaveBalanceAdjustment
	for _, adj := range f.adjustments {
		if adj.UserID == key.UserID && adj.LeaveTypeID == key.LeaveTypeID && adj.Year == key.Year {
			out = append(out, adj)
		}
	}
	return out, nil
}

func (f *fakeLedgerRepo) used(key models.LeaveBalanceKey) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[key].Used
}

type fakeAuditRecorder struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (f *fakeAuditRecorder) Record(ctx context.Context, entry models.AuditLog) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string][]byte{}}
}

func (m *memoryCache) Load(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryCache) Save(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCache) Purge(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

func newCachedService(cache *memoryCache) *CatalogCache {
	return NewCatalogCache(cache, NewMetricsService(), time.Minute, nil)
}
