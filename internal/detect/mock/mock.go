// Package mock provides a mock implementation of the detection provider for testing.
package mock

import (
	"context"
	"sync"

	"github.com/kozaktomas/photo-ranker/internal/detect"
)

// MockProvider is a configurable in-memory detect.Provider.
type MockProvider struct {
	mu sync.Mutex

	// DetectFunc computes detections for image data. When nil, DetectFaces
	// returns no faces.
	DetectFunc func(imageData []byte) ([]detect.Detection, error)

	// Happiness is returned by HappinessScore for every crop.
	Happiness float64

	// Error injection
	HappinessError error
	PingError      error

	// Call counters
	DetectCalls  int
	EmotionCalls int
	PingCalls    int

	// LastCrop records the most recent face crop passed to HappinessScore.
	LastCrop []byte
}

// NewMockProvider creates a mock provider with no faces and zero happiness.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// DetectFaces returns the configured detections.
func (m *MockProvider) DetectFaces(_ context.Context, imageData []byte) ([]detect.Detection, error) {
	m.mu.Lock()
	m.DetectCalls++
	fn := m.DetectFunc
	m.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(imageData)
}

// HappinessScore returns the configured happiness score.
func (m *MockProvider) HappinessScore(_ context.Context, faceCrop []byte) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmotionCalls++
	m.LastCrop = faceCrop
	if m.HappinessError != nil {
		return 0, m.HappinessError
	}
	return m.Happiness, nil
}

// Ping returns the configured ping error.
func (m *MockProvider) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PingCalls++
	return m.PingError
}

// Counts returns the detect and emotion call counts.
func (m *MockProvider) Counts() (detectCalls, emotionCalls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.DetectCalls, m.EmotionCalls
}
