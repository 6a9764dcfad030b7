package model

import (
	"context"
	"sync"
	"time"

	"rageval/pkg/core"
)

// MockModel returns canned responses for tests. Script entries are consumed
// in order; after the script is exhausted (or when it is empty) ResponseText
// is returned, and with neither set the prompt is echoed.
type MockModel struct {
	NameValue    string
	ResponseText string
	Script       []string
	Err          error

	mu      sync.Mutex
	prompts []string
}

func (m *MockModel) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

func (m *MockModel) Generate(_ context.Context, prompt string, _ core.GenerateOptions) (core.Response, error) {
	if m.Err != nil {
		return core.Response{}, m.Err
	}

	m.mu.Lock()
	call := len(m.prompts)
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	start := time.Now()
	content := prompt
	if call < len(m.Script) {
		content = m.Script[call]
	} else if m.ResponseText != "" {
		content = m.ResponseText
	}
	return core.Response{
		Content: content,
		Latency: time.Since(start),
	}, nil
}

// Calls returns the prompts passed to Generate, in call order.
func (m *MockModel) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}
