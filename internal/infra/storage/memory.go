// Package storage implements the blob-store port: an in-memory backend, the
// storage key scheme, and JWT-signed download URLs.
package storage

import (
	"context"
	"sync"
	"time"

	"roster-roast/internal/domain"
	"roster-roast/internal/domain/ports/adapter"
)

var _ adapter.BlobStore = (*MemoryStore)(nil)

type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[adapter.Bucket]map[string][]byte
	signer  *URLSigner
}

func NewMemoryStore(signer *URLSigner) *MemoryStore {
	return &MemoryStore{
		buckets: make(map[adapter.Bucket]map[string][]byte),
		signer:  signer,
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, bucket adapter.Bucket) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string][]byte)
		s.buckets[bucket] = b
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	b[key] = cp
	return key, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string, bucket adapter.Bucket) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.buckets[bucket][key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *MemoryStore) SignedURL(key string, bucket adapter.Bucket, ttl time.Duration) (string, error) {
	return s.signer.SignedURL(key, bucket, ttl)
}
