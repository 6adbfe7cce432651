package sqlite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/glossahq/glossa/internal/core"
	"github.com/glossahq/glossa/internal/settings"
)

func newTestModule(t *testing.T) *Module {
	t.Helper()

	dir := t.TempDir()
	m := &Module{
		config: Config{
			Path:        filepath.Join(dir, "test.db"),
			BusyTimeout: defaultBusyTimeout,
		},
	}
	m.config.defaults()

	ctx := core.NewAppContext(slog.Default(), dir)

	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	t.Cleanup(func() {
		_ = m.Stop(context.Background())
	})

	return m
}

func TestModuleInfo(t *testing.T) {
	m := &Module{}
	info := m.ModuleInfo()
	if info.ID != "store.sqlite" {
		t.Errorf("ID = %q, want %q", info.ID, "store.sqlite")
	}
	if _, ok := info.New().(*Module); !ok {
		t.Error("New() should return *Module")
	}
}

func TestProvisionRegistersService(t *testing.T) {
	dir := t.TempDir()
	m := &Module{config: Config{Path: filepath.Join(dir, "test.db")}}
	m.config.defaults()

	ctx := core.NewAppContext(slog.Default(), dir)
	if err := m.Provision(ctx); err != nil {
		t.Fatalf("provision: %v", err)
	}
	t.Cleanup(func() { _ = m.Stop(context.Background()) })

	svc, ok := ctx.Service("settings.store")
	if !ok {
		t.Fatal("settings.store service not registered")
	}
	if _, ok := svc.(settings.Store); !ok {
		t.Errorf("service has type %T, want settings.Store", svc)
	}
}

func TestSetAndGet(t *testing.T) {
	m := newTestModule(t)
	s := m.store
	ctx := context.Background()

	if err := s.Set(ctx, "provider.config", []byte(`{"kind":"ollama"}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := s.Get(ctx, "provider.config")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"kind":"ollama"}`)) {
		t.Errorf("got %q", got)
	}

	// Overwrite.
	if err := s.Set(ctx, "provider.config", []byte(`{"kind":"openrouter"}`)); err != nil {
		t.Fatalf("set overwrite: %v", err)
	}
	got, err = s.Get(ctx, "provider.config")
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if !bytes.Equal(got, []byte(`{"kind":"openrouter"}`)) {
		t.Errorf("got %q after overwrite", got)
	}
	if s.Len() != 1 {
		t.Errorf("len = %d, want 1", s.Len())
	}
}

func TestGetNotFound(t *testing.T) {
	m := newTestModule(t)

	_, err := m.store.Get(context.Background(), "missing")
	if !errors.Is(err, settings.ErrKeyNotFound) {
		t.Errorf("got error %v, want %v", err, settings.ErrKeyNotFound)
	}
}

func TestRemove(t *testing.T) {
	m := newTestModule(t)
	s := m.store
	ctx := context.Background()

	if err := s.Set(ctx, "secret.ollama", []byte("blob")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Remove(ctx, "secret.ollama"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := s.Get(ctx, "secret.ollama"); !errors.Is(err, settings.ErrKeyNotFound) {
		t.Errorf("get after remove: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("len = %d after remove, want 0", s.Len())
	}
}

func TestRemoveNotFound(t *testing.T) {
	m := newTestModule(t)

	err := m.store.Remove(context.Background(), "missing")
	if !errors.Is(err, settings.ErrKeyNotFound) {
		t.Errorf("got error %v, want %v", err, settings.ErrKeyNotFound)
	}
}

func TestKeysPrefix(t *testing.T) {
	m := newTestModule(t)
	s := m.store
	ctx := context.Background()

	seed := map[string][]byte{
		"secret.ollama":      []byte("a"),
		"secret.openrouter":  []byte("b"),
		"transformation.t1":  []byte("c"),
		"secret%not.a.match": []byte("d"),
	}
	for k, v := range seed {
		if err := s.Set(ctx, k, v); err != nil {
			t.Fatalf("set %q: %v", k, err)
		}
	}

	keys, err := s.Keys(ctx, "secret.")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	sort.Strings(keys)
	want := []string{"secret.ollama", "secret.openrouter"}
	if len(keys) != 2 || keys[0] != want[0] || keys[1] != want[1] {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	all, err := s.Keys(ctx, "")
	if err != nil {
		t.Fatalf("keys all: %v", err)
	}
	if len(all) != len(seed) {
		t.Errorf("all keys = %d, want %d", len(all), len(seed))
	}
}

func TestWatchEvents(t *testing.T) {
	m := newTestModule(t)
	s := m.store
	ctx := context.Background()

	ch := make(chan settings.Event, 8)
	cancel := s.Watch(ch)

	if err := s.Set(ctx, "k1", []byte("v1")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Remove(ctx, "k1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// Notification happens before Set/Remove return, so the buffered channel
	// already holds both events.
	ev := <-ch
	if ev.Op != settings.OpSet || ev.Key != "k1" || !bytes.Equal(ev.Value, []byte("v1")) {
		t.Errorf("first event = %+v", ev)
	}
	ev = <-ch
	if ev.Op != settings.OpRemove || ev.Key != "k1" || ev.Value != nil {
		t.Errorf("second event = %+v", ev)
	}

	cancel()
	if err := s.Set(ctx, "k2", []byte("v2")); err != nil {
		t.Fatalf("set after cancel: %v", err)
	}
	select {
	case ev := <-ch:
		t.Errorf("event after cancel: %+v", ev)
	default:
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.db")

	open := func() *Module {
		m := &Module{config: Config{Path: path}}
		m.config.defaults()
		if err := m.Provision(core.NewAppContext(slog.Default(), dir)); err != nil {
			t.Fatalf("provision: %v", err)
		}
		return m
	}

	m1 := open()
	if err := m1.store.Set(context.Background(), "provider.config", []byte("persisted")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m1.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	m2 := open()
	t.Cleanup(func() { _ = m2.Stop(context.Background()) })

	got, err := m2.store.Get(context.Background(), "provider.config")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if string(got) != "persisted" {
		t.Errorf("got %q after reopen", got)
	}
}

func TestConcurrentSetAndKeys(t *testing.T) {
	m := newTestModule(t)
	s := m.store
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i)
			if err := s.Set(ctx, key, []byte("v")); err != nil {
				t.Errorf("concurrent set: %v", err)
			}
		}()
	}
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Keys(ctx, ""); err != nil {
				t.Errorf("concurrent keys: %v", err)
			}
		}()
	}
	wg.Wait()

	if s.Len() != 10 {
		t.Errorf("len = %d, want 10", s.Len())
	}
}

func TestWALMode(t *testing.T) {
	m := newTestModule(t)

	var mode string
	if err := m.db.QueryRowContext(context.TODO(), "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("pragma journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %q, want %q", mode, "wal")
	}
}

func TestMigrationIdempotent(t *testing.T) {
	m := newTestModule(t)

	if err := migrate(m.db); err != nil {
		t.Fatalf("second migration: %v", err)
	}

	if err := m.store.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("set after re-migration: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	c := &Config{BusyTimeout: -1}
	if err := c.validate(); err == nil {
		t.Error("negative busy_timeout should fail validation")
	}
}
