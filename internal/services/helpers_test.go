package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agristream/livescript/internal/domain"
	"github.com/agristream/livescript/internal/llm"
	"github.com/agristream/livescript/internal/repo"
)

// ---------- test helpers ----------

// newTestDB opens a private in-memory database. With no models every table
// is migrated; otherwise only the given ones.
func newTestDB(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	if len(models) == 0 {
		err = repo.AutoMigrate(db)
	} else {
		err = db.AutoMigrate(models...)
	}
	if err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func strp(s string) *string { return &s }

func f64p(f float64) *float64 { return &f }

func boolp(b bool) *bool { return &b }

func listp(s ...string) *[]string { return &s }

func mustProduct(t *testing.T, db *gorm.DB, p domain.Product) *domain.Product {
	t.Helper()
	if err := repo.CreateProduct(context.Background(), db, &p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return &p
}

func mustTemplate(t *testing.T, db *gorm.DB, tm domain.StyleTemplate) *domain.StyleTemplate {
	t.Helper()
	if tm.StyleType == "" {
		tm.StyleType = domain.StyleFriendly
	}
	if err := repo.CreateTemplate(context.Background(), db, &tm); err != nil {
		t.Fatalf("create template: %v", err)
	}
	return &tm
}

func mustScript(t *testing.T, db *gorm.DB, s *domain.Script) *domain.Script {
	t.Helper()
	if s.Status == "" {
		s.Status = domain.ScriptDraft
	}
	if s.Title == "" {
		s.Title = "测试话术"
	}
	if err := repo.CreateScript(context.Background(), db, s); err != nil {
		t.Fatalf("create script: %v", err)
	}
	return s
}

// ---------- fakes ----------

// fakeLLM records every call and replays canned output.
type fakeLLM struct {
	mu sync.Mutex

	chunks    []string
	streamErr error // returned by Stream itself
	midErr    error // surfaced by the stream after all chunks
	invokeOut string
	invokeErr error

	streamCalls int
	invokeCalls int
	msgs        [][]llm.Message
	opts        []llm.Options
	stream      *fakeStream
}

func (f *fakeLLM) Invoke(_ context.Context, msgs []llm.Message, opts llm.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invokeCalls++
	f.msgs = append(f.msgs, msgs)
	f.opts = append(f.opts, opts)
	return f.invokeOut, f.invokeErr
}

func (f *fakeLLM) Stream(_ context.Context, msgs []llm.Message, opts llm.Options) (llm.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamCalls++
	f.msgs = append(f.msgs, msgs)
	f.opts = append(f.opts, opts)
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	f.stream = &fakeStream{chunks: f.chunks, err: f.midErr}
	return f.stream, nil
}

func (f *fakeLLM) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streamCalls + f.invokeCalls
}

type fakeStream struct {
	chunks []string
	err    error
	i      int
	cur    string
	pulled int
	closed bool
}

func (s *fakeStream) Next() bool {
	if s.closed || s.i >= len(s.chunks) {
		return false
	}
	s.cur = s.chunks[s.i]
	s.i++
	s.pulled++
	return true
}
func (s *fakeStream) Current() string { return s.cur }
func (s *fakeStream) Err() error {
	if s.i >= len(s.chunks) {
		return s.err
	}
	return nil
}
func (s *fakeStream) Close() error { s.closed = true; return nil }

// fakeFinder answers reference lookups.
type fakeFinder struct {
	frags []domain.ReferenceFragment
	err   error
	calls int
	query string
	ids   []string
}

func (f *fakeFinder) References(_ context.Context, query string, ids []string) ([]domain.ReferenceFragment, error) {
	f.calls++
	f.query = query
	f.ids = ids
	return f.frags, f.err
}

type published struct {
	eventType string
	data      any
}

type fakePublisher struct {
	events []published
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, eventType string, data any) error {
	f.events = append(f.events, published{eventType, data})
	return f.err
}
