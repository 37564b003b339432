// Package testutil provides an in-memory storage.Storage for tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/chunkscribe/errors"
	"github.com/kbukum/chunkscribe/storage"
)

type object struct {
	data    []byte
	modTime time.Time
}

// Memory is a thread-safe in-memory Storage. Set FailPut to make every Put
// return that error.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]object
	FailPut error
}

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{objects: make(map[string]object)}
}

func (m *Memory) Put(_ context.Context, key string, r io.Reader) error {
	if m.FailPut != nil {
		return m.FailPut
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = object{data: data, modTime: time.Now()}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.Object(key)
	if !ok {
		return nil, errors.NotFound("document", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.Object(key)
	return ok, nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	infos := []storage.ObjectInfo{}
	for key, o := range m.objects {
		if strings.HasPrefix(key, prefix) {
			infos = append(infos, storage.ObjectInfo{
				Key:         key,
				Size:        int64(len(o.data)),
				ModTime:     o.modTime,
				ContentType: "application/json",
			})
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Object returns the raw bytes stored under key.
func (m *Memory) Object(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o.data, ok
}

// Len returns the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

var _ storage.Storage = (*Memory)(nil)
