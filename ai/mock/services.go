package mock

import (
	"context"
	"strings"
	"sync"

	"github.com/poiesic/earningsrag/ai"
)

// MockGenerator is a test double for ai.Generator.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, returns Response.
	GenerateFunc func(ctx context.Context, system, user string) (string, error)

	// Response is the default reply.
	Response string

	mu        sync.Mutex
	callCount int
	lastUser  string
}

// NewMockGenerator creates a generator answering with response.
func NewMockGenerator(response string) *MockGenerator {
	return &MockGenerator{Response: response}
}

// Generate records the call and returns the configured reply.
func (m *MockGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.lastUser = user
	fn := m.GenerateFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, system, user)
	}
	return m.Response, nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastUserPrompt returns the user prompt of the most recent call.
func (m *MockGenerator) LastUserPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastUser
}

// MockEntityExtractor is a test double for ai.EntityExtractor.
type MockEntityExtractor struct {
	// ExtractEntitiesFunc is called by ExtractEntities if set.
	// If nil, every capitalized word is reported as an organization.
	ExtractEntitiesFunc func(ctx context.Context, text string) ([]ai.Entity, error)

	mu        sync.Mutex
	callCount int
}

// NewMockEntityExtractor creates a mock extractor with default behavior.
func NewMockEntityExtractor() *MockEntityExtractor {
	return &MockEntityExtractor{}
}

// ExtractEntities extracts simple mock entities from text.
func (m *MockEntityExtractor) ExtractEntities(ctx context.Context, text string) ([]ai.Entity, error) {
	m.mu.Lock()
	m.callCount++
	fn := m.ExtractEntitiesFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, text)
	}

	entities := make([]ai.Entity, 0)
	for _, word := range strings.Fields(text) {
		word = strings.Trim(word, ".,!?;:\"'()[]{}")
		if word == "" || word[0] < 'A' || word[0] > 'Z' {
			continue
		}
		entities = append(entities, ai.Entity{Text: word, Label: ai.LabelOrganization})
	}
	return entities, nil
}

// CallCount returns the number of times ExtractEntities was called.
func (m *MockEntityExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
