package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"boxstore/internal/store"
)

type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CheckSecurity(ctx context.Context, boxID, resourceID string, write bool) bool {
	args := m.Called(ctx, boxID, resourceID, write)
	return args.Bool(0)
}

func (m *MockBackend) List(ctx context.Context, boxID string, opt store.ListOptions) ([]store.Document, error) {
	args := m.Called(ctx, boxID, opt)
	if docs, ok := args.Get(0).([]store.Document); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) Get(ctx context.Context, boxID, id string) (store.Document, error) {
	args := m.Called(ctx, boxID, id)
	if doc, ok := args.Get(0).(store.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) Save(ctx context.Context, boxID, id string, doc store.Document) (store.Document, error) {
	args := m.Called(ctx, boxID, id, doc)
	if out, ok := args.Get(0).(store.Document); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) Update(ctx context.Context, boxID, id string, patch store.Document) (store.Document, error) {
	args := m.Called(ctx, boxID, id, patch)
	if out, ok := args.Get(0).(store.Document); ok {
		return out, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBackend) Delete(ctx context.Context, boxID, id string) (int, error) {
	args := m.Called(ctx, boxID, id)
	return args.Int(0), args.Error(1)
}
