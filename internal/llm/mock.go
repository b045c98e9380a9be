package llm

import (
	"context"
	"sync"
)

// MockResult is one scripted outcome for the mock client.
type MockResult struct {
	Text string
	Err  error
}

// Mock is a deterministic Client implementation for testing. It returns a
// fixed response, a fixed error, or a scripted sequence of outcomes.
type Mock struct {
	// Response is the fixed text returned by Complete when Sequence is
	// empty.
	Response string

	// Err, if set, is returned instead of a response.
	Err error

	// Sequence, when non-empty, scripts one outcome per call; the last
	// entry repeats once the sequence is exhausted.
	Sequence []MockResult

	// PromptTokens and OutputTokens populate the reported usage counts.
	PromptTokens int
	OutputTokens int

	mu          sync.Mutex
	calls       int
	lastRequest Request
}

// NewMock creates a mock client with a fixed response.
func NewMock(response string) *Mock {
	return &Mock{Response: response}
}

// NewMockWithError creates a mock client that always fails.
func NewMockWithError(err error) *Mock {
	return &Mock{Err: err}
}

// Complete returns the scripted outcome for this call and records the
// request.
func (m *Mock) Complete(ctx context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	call := m.calls
	m.calls++
	m.lastRequest = req
	m.mu.Unlock()

	if len(m.Sequence) > 0 {
		idx := call
		if idx >= len(m.Sequence) {
			idx = len(m.Sequence) - 1
		}
		res := m.Sequence[idx]
		if res.Err != nil {
			return nil, res.Err
		}
		return m.response(res.Text, req), nil
	}

	if m.Err != nil {
		return nil, m.Err
	}
	return m.response(m.Response, req), nil
}

// Calls reports how many times Complete was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request passed to Complete.
func (m *Mock) LastRequest() Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRequest
}

func (m *Mock) response(text string, req Request) *Response {
	prompt := m.PromptTokens
	if prompt == 0 {
		prompt = len(req.Prompt) / 4
	}
	output := m.OutputTokens
	if output == 0 {
		output = len(text) / 4
	}
	return &Response{
		Text:         text,
		Model:        req.Model,
		PromptTokens: prompt,
		OutputTokens: output,
	}
}
