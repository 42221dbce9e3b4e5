package llm

import (
	"context"
	"sync"
)

// MockResponse is a canned response for the MockProvider.
type MockResponse struct {
	Text  string
	Usage Usage
	Err   error
}

// MockProvider is a deterministic Provider for testing.
// It returns canned responses in FIFO order and records all requests.
type MockProvider struct {
	mu        sync.Mutex
	responses []MockResponse
	fn        func(context.Context, Request) (*Response, error)
	Calls     []Request
}

// NewMockProvider creates a MockProvider with the given canned responses.
func NewMockProvider(responses ...MockResponse) *MockProvider {
	return &MockProvider{responses: responses}
}

// NewMockProviderFunc creates a MockProvider that answers every call with fn.
func NewMockProviderFunc(fn func(context.Context, Request) (*Response, error)) *MockProvider {
	return &MockProvider{fn: fn}
}

// Generate returns the next canned response or ErrProviderUnavailable if
// the queue is empty.
func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, req)
	fn := m.fn
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.responses) == 0 {
		return nil, &ErrProviderUnavailable{Err: nil}
	}

	resp := m.responses[0]
	m.responses = m.responses[1:]

	if resp.Err != nil {
		return nil, resp.Err
	}

	return &Response{
		Text:       resp.Text,
		Usage:      resp.Usage,
		Model:      "mock",
		StopReason: "end",
	}, nil
}

// ModelID returns "mock".
func (m *MockProvider) ModelID() string {
	return "mock"
}

// AddResponse appends a canned response to the queue.
func (m *MockProvider) AddResponse(resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// CallCount returns the number of Generate calls made.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or false if none was made.
func (m *MockProvider) LastCall() (Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return Request{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}
