package blobstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type fakeDrive struct {
	mu          sync.Mutex
	failShare   bool
	failDelete  bool
	created     int
	shared      []string
	deleted     []string
	permissions []drive.Permission
	uploadBody  string
	onShare     func()
}

func (f *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/permissions"):
		if f.onShare != nil {
			f.onShare()
		}
		if f.failShare {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":{"code":403,"message":"sharing disabled"}}`))
			return
		}
		var p drive.Permission
		json.NewDecoder(r.Body).Decode(&p)
		f.permissions = append(f.permissions, p)
		parts := strings.Split(r.URL.Path, "/")
		f.shared = append(f.shared, parts[len(parts)-2])
		w.Write([]byte(`{"id":"perm-1"}`))

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
		body, _ := io.ReadAll(r.Body)
		f.uploadBody = string(body)
		f.created++
		w.Write([]byte(`{"id":"file-1","name":"ecg.pdf","webViewLink":"https://drive.example/file-1/view"}`))

	case r.Method == http.MethodDelete:
		if f.failDelete {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":{"code":500,"message":"backend error"}}`))
			return
		}
		parts := strings.Split(r.URL.Path, "/")
		f.deleted = append(f.deleted, parts[len(parts)-1])
		w.WriteHeader(http.StatusNoContent)

	default:
		http.NotFound(w, r)
	}
}

func newDriveStore(t *testing.T, fake *fakeDrive) *DriveStore {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := drive.NewService(context.Background(), option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewDriveStore(svc)
}

func writePDF(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ecg.pdf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDriveStore_UploadShares(t *testing.T) {
	fake := &fakeDrive{}
	store := newDriveStore(t, fake)

	obj, err := store.Upload(context.Background(), writePDF(t, "%PDF-1.4 test"), "ecg 2024-01-01 10:00:00.pdf", "folder-1")
	require.NoError(t, err)

	assert.Equal(t, "file-1", obj.ID)
	assert.Equal(t, "https://drive.example/file-1/view", obj.Link)
	assert.Equal(t, []string{"file-1"}, fake.shared)
	require.Len(t, fake.permissions, 1)
	assert.Equal(t, "anyone", fake.permissions[0].Type)
	assert.Equal(t, "reader", fake.permissions[0].Role)
	assert.Contains(t, fake.uploadBody, "folder-1")
	assert.Contains(t, fake.uploadBody, "%PDF-1.4 test")
}

func TestDriveStore_ShareFailureRemovesFile(t *testing.T) {
	fake := &fakeDrive{failShare: true}
	store := newDriveStore(t, fake)

	_, err := store.Upload(context.Background(), writePDF(t, "pdf"), "ecg.pdf", "")

	var shareErr *ShareError
	require.ErrorAs(t, err, &shareErr)
	assert.Equal(t, "file-1", shareErr.FileID)
	assert.False(t, shareErr.Orphaned())
	assert.Equal(t, []string{"file-1"}, fake.deleted)
}

func TestDriveStore_ShareFailureCleanupFails(t *testing.T) {
	fake := &fakeDrive{failShare: true, failDelete: true}
	store := newDriveStore(t, fake)

	_, err := store.Upload(context.Background(), writePDF(t, "pdf"), "ecg.pdf", "")

	var shareErr *ShareError
	require.ErrorAs(t, err, &shareErr)
	assert.True(t, shareErr.Orphaned())
}

func TestDriveStore_ShareCleanupSurvivesCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fake := &fakeDrive{failShare: true, onShare: cancel}
	store := newDriveStore(t, fake)

	_, err := store.Upload(ctx, writePDF(t, "pdf"), "ecg.pdf", "")

	var shareErr *ShareError
	require.ErrorAs(t, err, &shareErr)
	assert.False(t, shareErr.Orphaned())
	assert.Equal(t, 1, fake.created)
	assert.Equal(t, []string{"file-1"}, fake.deleted)
}

func TestDriveStore_UploadMissingLocalFile(t *testing.T) {
	fake := &fakeDrive{}
	store := newDriveStore(t, fake)

	_, err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), "x.pdf", "")
	assert.Error(t, err)
	assert.Zero(t, fake.created)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	obj, err := store.Upload(ctx, writePDF(t, "content"), "ecg.pdf", "")
	require.NoError(t, err)

	content, ok := store.Content(obj.ID)
	require.True(t, ok)
	assert.Equal(t, "content", string(content))

	require.NoError(t, store.Delete(ctx, obj.ID))
	assert.ErrorIs(t, store.Delete(ctx, obj.ID), ErrBlobNotFound)
	assert.Zero(t, store.Len())
}

func TestDriveStore_ListFollowsPages(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		queries = append(queries, r.URL.Query().Get("q"))
		if r.URL.Query().Get("pageToken") == "" {
			w.Write([]byte(`{"nextPageToken":"p2","files":[{"id":"a","name":"a.pdf","webViewLink":"https://drive.example/a"}]}`))
			return
		}
		w.Write([]byte(`{"files":[{"id":"b","name":"b.pdf","webViewLink":"https://drive.example/b"}]}`))
	}))
	defer srv.Close()

	svc, err := drive.NewService(context.Background(), option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	objects, err := NewDriveStore(svc).List(context.Background(), "folder-1")
	require.NoError(t, err)

	require.Len(t, objects, 2)
	assert.Equal(t, "a", objects[0].ID)
	assert.Equal(t, "b", objects[1].ID)
	assert.Equal(t, "'folder-1' in parents and trashed=false", queries[0])
}
