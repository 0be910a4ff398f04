package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-quizgen/internal/storage"
)

type forgetter struct {
	mu     sync.Mutex
	refs   []storage.Ref
	called chan struct{}
	err    error
}

func (f *forgetter) Forget(_ context.Context, refs []storage.Ref) error {
	f.mu.Lock()
	f.refs = append(f.refs, refs...)
	f.mu.Unlock()
	select {
	case f.called <- struct{}{}:
	default:
	}
	return f.err
}

func newStore(t *testing.T) (*storage.Store, string) {
	t.Helper()
	root := t.TempDir()
	out := filepath.Join(root, "out")
	s, err := storage.New(out, filepath.Join(root, "work"), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return s, out
}

// writeAged publishes a bundle holding name and backdates its directory.
func writeAged(t *testing.T, out, bundle, name string, age time.Duration) {
	t.Helper()
	dir := filepath.Join(out, bundle)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	when := time.Now().Add(-age)
	if err := os.Chtimes(dir, when, when); err != nil {
		t.Fatal(err)
	}
}

func TestJanitorRemovesExpiredFiles(t *testing.T) {
	store, out := newStore(t)
	writeAged(t, out, "gen-old", "regular_quiz_5q_2v.zip", 2*time.Hour)
	writeAged(t, out, "gen-new", "regular_quiz_5q_2v.zip", time.Minute)

	f := &forgetter{called: make(chan struct{}, 1)}
	w := NewJanitorWorker(store, f, time.Hour, time.Hour, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	select {
	case <-f.called:
	case <-time.After(5 * time.Second):
		t.Fatal("janitor did not sweep on start")
	}
	cancel()
	<-done

	if _, err := os.Stat(filepath.Join(out, "gen-old")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expired bundle still present: %v", err)
	}
	if _, err := os.Stat(filepath.Join(out, "gen-new", "regular_quiz_5q_2v.zip")); err != nil {
		t.Errorf("fresh bundle removed: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	want := storage.Ref{Bundle: "gen-old", Name: "regular_quiz_5q_2v.zip"}
	if len(f.refs) != 1 || f.refs[0] != want {
		t.Errorf("forgotten = %v", f.refs)
	}
}

func TestJanitorSkipsForgetWhenNothingExpired(t *testing.T) {
	store, out := newStore(t)
	writeAged(t, out, "gen-1", "regular_quiz_5q_2v.zip", time.Minute)

	f := &forgetter{err: errors.New("redis down")}
	w := NewJanitorWorker(store, f, time.Hour, time.Hour, zerolog.Nop())
	w.sweep(context.Background())

	if len(f.refs) != 0 {
		t.Errorf("forgotten = %v", f.refs)
	}
}

func TestJanitorKeepsSweepingWhenIndexFails(t *testing.T) {
	store, out := newStore(t)
	writeAged(t, out, "gen-1", "a.zip", 2*time.Hour)

	f := &forgetter{err: errors.New("redis down")}
	w := NewJanitorWorker(store, f, time.Hour, time.Hour, zerolog.Nop())
	w.sweep(context.Background())

	if _, err := os.Stat(filepath.Join(out, "gen-1")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("file kept after index failure: %v", err)
	}
}
