package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"boxstore/internal/filestore"
)

type MockDriver struct {
	mock.Mock
}

func (m *MockDriver) CheckSecurity(ctx context.Context, boxID, fileID string, write bool) bool {
	args := m.Called(ctx, boxID, fileID, write)
	return args.Bool(0)
}

func (m *MockDriver) Save(ctx context.Context, boxID string, r io.Reader, contentType string, size int64) (filestore.FileInfo, error) {
	args := m.Called(ctx, boxID, r, contentType, size)
	return args.Get(0).(filestore.FileInfo), args.Error(1)
}

func (m *MockDriver) Get(ctx context.Context, boxID, id string) (*filestore.File, error) {
	args := m.Called(ctx, boxID, id)
	if f, ok := args.Get(0).(*filestore.File); ok {
		return f, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDriver) List(ctx context.Context, boxID string) ([]filestore.FileInfo, error) {
	args := m.Called(ctx, boxID)
	if infos, ok := args.Get(0).([]filestore.FileInfo); ok {
		return infos, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDriver) Delete(ctx context.Context, boxID, id string) (int, error) {
	args := m.Called(ctx, boxID, id)
	return args.Int(0), args.Error(1)
}
