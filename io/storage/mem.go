package storage

import (
	"bytes"
	"context"
	"sync"
)

type memStorage struct {
	values map[string][]byte
	lock   sync.RWMutex
}

// NewMemory returns an Adapter that keeps all values in memory.
func NewMemory() Adapter {
	return &memStorage{
		values: make(map[string][]byte),
	}
}

func (s *memStorage) Type() string {
	return "mem"
}

func (s *memStorage) Read(ctx context.Context, key string) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	data, ok := s.values[key]
	if !ok {
		return nil, ErrNotExist
	}

	return bytes.Clone(data), nil
}

func (s *memStorage) Write(ctx context.Context, key string, data []byte) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.values[key] = bytes.Clone(data)

	return nil
}

func (s *memStorage) Remove(ctx context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.values, key)

	return nil
}
