package ai

import "context"

// MockProvider is a test double for Provider. Responses are served in order;
// the last one repeats once the queue is exhausted.
type MockProvider struct {
	Responses []string
	Err       error
	Requests  []CompletionRequest // captures every request for inspection
}

// NewMockProvider creates a MockProvider serving the given responses.
func NewMockProvider(responses ...string) *MockProvider {
	return &MockProvider{Responses: responses}
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}
	content := ""
	if len(m.Responses) > 0 {
		i := len(m.Requests) - 1
		if i >= len(m.Responses) {
			i = len(m.Responses) - 1
		}
		content = m.Responses[i]
	}
	return CompletionResponse{
		Content:      content,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(content),
	}, nil
}

// LastRequest returns the most recent request, or nil when none was made.
func (m *MockProvider) LastRequest() *CompletionRequest {
	if len(m.Requests) == 0 {
		return nil
	}
	return &m.Requests[len(m.Requests)-1]
}
