package reasoning

import (
	"context"
	"sync"
)

// MockClient is a scriptable Client for tests. Each Invoke consumes the
// next queued response; when the queue is empty the last entry repeats.
type MockClient struct {
	mu        sync.Mutex
	responses []Response
	errs      []error
	calls     []Request
	available bool
}

// NewMockClient creates an available mock with no scripted responses.
func NewMockClient() *MockClient {
	return &MockClient{available: true}
}

// Queue appends a scripted invocation result.
func (m *MockClient) Queue(output string, err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, Response{Output: output})
	m.errs = append(m.errs, err)
	return m
}

// SetAvailable overrides the availability flag.
func (m *MockClient) SetAvailable(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = v
}

// Invoke returns the next scripted response.
func (m *MockClient) Invoke(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)
	if len(m.responses) == 0 {
		return Response{}, ErrUnavailable
	}
	idx := len(m.calls) - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], m.errs[idx]
}

// Available reports the configured availability.
func (m *MockClient) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// Calls returns the requests seen so far.
func (m *MockClient) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

var _ Client = (*MockClient)(nil)
