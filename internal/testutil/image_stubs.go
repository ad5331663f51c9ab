// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sort"
	"strings"
	"sync"
)

// ErrStoreUnavailable is returned by MemoryStore once FailAfter puts succeed.
var ErrStoreUnavailable = errors.New("object store unavailable")

// MemoryStore is an in-memory object store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	puts    int

	// FailAfter makes every Put after the first FailAfter calls fail.
	// Negative disables failures.
	FailAfter int
}

// NewMemoryStore creates an empty store that never fails.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte), FailAfter: -1}
}

// Put stores data under key.
func (s *MemoryStore) Put(_ context.Context, key string, data []byte, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAfter >= 0 && s.puts >= s.FailAfter {
		return ErrStoreUnavailable
	}
	s.puts++
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

// Delete removes key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// URL maps key onto a fake public prefix.
func (s *MemoryStore) URL(key string) string {
	return "/media/" + key
}

// Has reports whether key is stored.
func (s *MemoryStore) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

// Keys returns the stored keys with the given prefix, sorted.
func (s *MemoryStore) Keys(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, x%max(h, 1), color.RGBA{R: uint8(x), G: 80, B: 160, A: 255})
	}
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
