package crawler

import (
	"context"
	"time"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	data   map[string][]byte
	ttl    map[string]time.Duration
	setErr error
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		data: make(map[string][]byte),
		ttl:  make(map[string]time.Duration),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.data[key]; ok {
		return val, nil
	}
	return nil, &mockError{message: "cache miss"}
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.ttl[key] = expiration
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.data, key)
	return nil
}

type mockError struct {
	message string
}

func (e *mockError) Error() string {
	return e.message
}

// stubFetcher answers every request with the same body or error
type stubFetcher struct {
	body  []byte
	err   error
	calls int
}

func (s *stubFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.body, nil
}
