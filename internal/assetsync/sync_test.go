package assetsync

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yourorg/listing-harvester/realtor"
)

// memStore is an in-memory Store with per-file failure injection.
type memStore struct {
	mu         sync.Mutex
	files      map[string][]byte
	failPut    map[string]bool
	failRemove map[string]bool
}

func newMemStore(names ...string) *memStore {
	s := &memStore{
		files:      map[string][]byte{},
		failPut:    map[string]bool{},
		failRemove: map[string]bool{},
	}
	for _, n := range names {
		s.files[n] = []byte("existing")
	}
	return s
}

func (s *memStore) List(_ context.Context, _ string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *memStore) Put(_ context.Context, p string, r io.Reader) error {
	name := path.Base(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut[name] {
		return errors.New("injected put failure")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.files[name] = b
	return nil
}

func (s *memStore) Remove(_ context.Context, p string) error {
	name := path.Base(p)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failRemove[name] {
		return errors.New("injected remove failure")
	}
	delete(s.files, name)
	return nil
}

func (s *memStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for n := range s.files {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

type errListStore struct{ memStore }

func (s *errListStore) List(context.Context, string) ([]string, error) {
	return nil, errors.New("inventory unavailable")
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("image-bytes:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testEngine(store Store) *Engine {
	return NewEngine(store, EngineConfig{
		Dir:            "photos",
		Workers:        2,
		RetriesPerItem: 1,
		RequestTimeout: 5 * time.Second,
	}, nil)
}

func TestReconcile(t *testing.T) {
	remote := []string{"a.jpg", "b.jpg", "notes.txt"}
	current := []realtor.PhotoAsset{
		{URL: "https://cdn/b.jpg", Filename: "b.jpg"},
		{URL: "https://cdn/c.jpg", Filename: "c.jpg"},
		{URL: "https://cdn/c.jpg", Filename: "c.jpg"}, // duplicate filename collapses
	}

	diff := Reconcile(remote, current)
	require.Len(t, diff.ToUpload, 1)
	require.Equal(t, "c.jpg", diff.ToUpload[0].Filename)
	// Non-image remote files are never deleted.
	require.Equal(t, []string{"a.jpg"}, diff.ToDelete)
}

func TestReconcileNoWork(t *testing.T) {
	remote := []string{"a.jpg"}
	current := []realtor.PhotoAsset{{URL: "https://cdn/a.jpg", Filename: "a.jpg"}}
	require.True(t, Reconcile(remote, current).Empty())
}

func TestIsImage(t *testing.T) {
	require.True(t, isImage("a.jpg"))
	require.True(t, isImage("a.JPEG"))
	require.True(t, isImage("a.png"))
	require.False(t, isImage("a.txt"))
	require.False(t, isImage("noext"))
}

func TestSyncUploadsAndDeletes(t *testing.T) {
	srv := imageServer(t)
	store := newMemStore("a.jpg", "b.jpg", "notes.txt")
	eng := testEngine(store)

	current := []realtor.PhotoAsset{
		{URL: srv.URL + "/b.jpg", Filename: "b.jpg"},
		{URL: srv.URL + "/c.jpg", Filename: "c.jpg"},
		{URL: srv.URL + "/d.jpg", Filename: "d.jpg"},
	}
	stats, err := eng.Sync(context.Background(), current)
	require.NoError(t, err)
	require.Equal(t, 3, stats.RemoteCount)
	require.Equal(t, 2, stats.Uploaded)
	require.Equal(t, 1, stats.Deleted)
	require.Equal(t, 0, stats.SkippedUpload)
	require.Equal(t, []string{"b.jpg", "c.jpg", "d.jpg", "notes.txt"}, store.names())

	// A second pass over the same set is a no-op.
	stats, err = eng.Sync(context.Background(), current)
	require.NoError(t, err)
	require.Equal(t, 0, stats.Uploaded)
	require.Equal(t, 0, stats.Deleted)
}

func TestSyncSkipsFailedUpload(t *testing.T) {
	srv := imageServer(t)
	store := newMemStore()
	store.failPut["b.jpg"] = true
	eng := testEngine(store)

	current := []realtor.PhotoAsset{
		{URL: srv.URL + "/a.jpg", Filename: "a.jpg"},
		{URL: srv.URL + "/b.jpg", Filename: "b.jpg"},
	}
	stats, err := eng.Sync(context.Background(), current)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Uploaded)
	require.Equal(t, 1, stats.SkippedUpload)
	require.Equal(t, []string{"a.jpg"}, store.names())
}

func TestSyncSkipsFailedDownload(t *testing.T) {
	srv := imageServer(t)
	store := newMemStore()
	eng := testEngine(store)

	current := []realtor.PhotoAsset{
		{URL: srv.URL + "/missing.jpg", Filename: "missing.jpg"},
		{URL: srv.URL + "/ok.jpg", Filename: "ok.jpg"},
	}
	stats, err := eng.Sync(context.Background(), current)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Uploaded)
	require.Equal(t, 1, stats.SkippedUpload)
}

func TestSyncContinuesPastFailedDelete(t *testing.T) {
	srv := imageServer(t)
	store := newMemStore("stale1.jpg", "stale2.jpg")
	store.failRemove["stale1.jpg"] = true
	eng := testEngine(store)

	stats, err := eng.Sync(context.Background(), []realtor.PhotoAsset{
		{URL: srv.URL + "/kept.jpg", Filename: "kept.jpg"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, stats.Deleted)
	require.Equal(t, 1, stats.FailedDelete)
	require.Equal(t, []string{"kept.jpg", "stale1.jpg"}, store.names())
}

func TestSyncListFailureIsFatal(t *testing.T) {
	eng := testEngine(&errListStore{})
	_, err := eng.Sync(context.Background(), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "inventory")
}
