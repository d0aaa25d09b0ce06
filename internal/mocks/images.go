package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockImageStore is a mock implementation of service.ImageStore
type MockImageStore struct {
	mock.Mock
}

// Save mocks the Save method
func (m *MockImageStore) Save(ctx context.Context, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, data, contentType)
	return args.String(0), args.Error(1)
}
