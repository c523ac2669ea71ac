package blobstore

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

type storedBlob struct {
	object  Object
	parent  string
	content []byte
}

// MemoryStore keeps blobs in process for sandbox runs and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]*storedBlob
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]*storedBlob)}
}

func (m *MemoryStore) Upload(_ context.Context, localPath, remoteName, parentID string) (*Object, error) {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	id := uuid.NewString()
	obj := Object{ID: id, Name: remoteName, Link: "sandbox://blob/" + id}

	m.mu.Lock()
	m.blobs[id] = &storedBlob{object: obj, parent: parentID, content: data}
	m.mu.Unlock()

	out := obj
	return &out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[id]; !ok {
		return ErrBlobNotFound
	}
	delete(m.blobs, id)
	return nil
}

// Content returns the stored bytes for id.
func (m *MemoryStore) Content(id string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	if !ok {
		return nil, false
	}
	return b.content, true
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

func (m *MemoryStore) List(_ context.Context, folderID string) ([]Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Object
	for _, b := range m.blobs {
		if b.parent == folderID {
			out = append(out, b.object)
		}
	}
	return out, nil
}
