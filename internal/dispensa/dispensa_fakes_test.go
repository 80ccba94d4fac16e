package dispensa_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go-dispensa/internal/dispensa"
	dispensaerrors "go-dispensa/internal/dispensa/errors"
	"go-dispensa/internal/messaging/kafka"
	"go-dispensa/internal/shared/audit"
	"go-dispensa/internal/shared/counter"

	"gorm.io/gorm"
)

// fakeRepo keeps requests in memory and enforces the version check of Update.
type fakeRepo struct {
	mu   sync.Mutex
	rows map[string]dispensa.Request

	FindAllFn           func(ctx context.Context, vis dispensa.Visibility, filter dispensa.ListFilter) ([]dispensa.Request, error)
	CountByStatusFn     func(ctx context.Context, vis dispensa.Visibility) (map[dispensa.Stage]int64, error)
	FindByIDForUpdateFn func(ctx context.Context, id string) (*dispensa.Request, error)
	CreateFn            func(ctx context.Context, r *dispensa.Request) error
}

func newFakeRepo(rows ...dispensa.Request) *fakeRepo {
	f := &fakeRepo{rows: map[string]dispensa.Request{}}
	for _, r := range rows {
		f.rows[r.ID.String()] = r
	}
	return f
}

func (f *fakeRepo) get(id string) dispensa.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rows[id]
}

func (f *fakeRepo) WithTx(tx *sql.Tx) dispensa.Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, r *dispensa.Request) error {
	if f.CreateFn != nil {
		return f.CreateFn(ctx, r)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[r.ID.String()] = *r
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id string) (*dispensa.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &r, nil
}

func (f *fakeRepo) FindByIDForUpdate(ctx context.Context, id string) (*dispensa.Request, error) {
	if f.FindByIDForUpdateFn != nil {
		return f.FindByIDForUpdateFn(ctx, id)
	}
	return f.FindByID(ctx, id)
}

func (f *fakeRepo) FindAll(ctx context.Context, vis dispensa.Visibility, filter dispensa.ListFilter) ([]dispensa.Request, error) {
	return f.FindAllFn(ctx, vis, filter)
}

func (f *fakeRepo) CountByStatus(ctx context.Context, vis dispensa.Visibility) (map[dispensa.Stage]int64, error) {
	return f.CountByStatusFn(ctx, vis)
}

func (f *fakeRepo) Update(ctx context.Context, r *dispensa.Request, expectedVersion int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.rows[r.ID.String()]
	if !ok || cur.Version != expectedVersion {
		return dispensaerrors.ErrConcurrentDecision
	}
	f.rows[r.ID.String()] = *r
	return nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []kafka.OutboxEvent
	err    error
}

func (f *fakeOutbox) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }
func (f *fakeOutbox) Create(ctx context.Context, event kafka.OutboxEvent) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}
func (f *fakeOutbox) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return f.events, nil
}
func (f *fakeOutbox) MarkSent(ctx context.Context, id string) error { return nil }
func (f *fakeOutbox) MarkFailed(ctx context.Context, id string, reason string) error { return nil }

type fakeCounter struct {
	next int64
	err  error
}

func (f *fakeCounter) WithTx(tx *sql.Tx) counter.Repository { return f }
func (f *fakeCounter) GetNextValue(ctx context.Context, scope, counterType string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.next++
	return f.next, nil
}

type fakeUnits struct {
	all   bool
	units []string
	err   error
}

func (f fakeUnits) UnitsVisibleTo(ctx context.Context, userID, role string) (bool, []string, error) {
	return f.all, f.units, f.err
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.data[key]
	return b, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data == nil {
		f.data = map[string][]byte{}
	}
	f.data[key] = data
	f.sets++
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (f *fakeAudit) Log(ctx context.Context, e audit.Entry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
}
