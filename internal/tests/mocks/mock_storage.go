package mocks

import (
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/myysophia/filehub-backend/internal/storage"
)

// MockProvider 模拟存储后端
type MockProvider struct {
	mock.Mock
}

// GetName 获取存储后端名称
func (m *MockProvider) GetName() string {
	args := m.Called()
	return args.String(0)
}

// GetType 获取存储后端类型
func (m *MockProvider) GetType() string {
	args := m.Called()
	return args.String(0)
}

// GetBucketName 获取存储桶名称
func (m *MockProvider) GetBucketName() string {
	args := m.Called()
	return args.String(0)
}

// Store 写入对象
func (m *MockProvider) Store(file io.Reader, objectKey string) (*storage.StoreResult, error) {
	args := m.Called(file, objectKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.StoreResult), args.Error(1)
}

// Delete 删除对象
func (m *MockProvider) Delete(objectKey string) error {
	args := m.Called(objectKey)
	return args.Error(0)
}

// AccessURL 生成访问URL
func (m *MockProvider) AccessURL(objectKey string, expiration time.Duration, public bool) (string, error) {
	args := m.Called(objectKey, expiration, public)
	return args.String(0), args.Error(1)
}

// Object 获取对象内容
func (m *MockProvider) Object(objectKey string) (io.ReadCloser, error) {
	args := m.Called(objectKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// MockFactory 模拟存储工厂
type MockFactory struct {
	mock.Mock
}

// GetProvider 按存储类型获取后端
func (m *MockFactory) GetProvider(providerType string) (storage.Provider, error) {
	args := m.Called(providerType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(storage.Provider), args.Error(1)
}

// GetDefaultProvider 获取默认后端
func (m *MockFactory) GetDefaultProvider() (storage.Provider, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(storage.Provider), args.Error(1)
}

// ClearCache 清除缓存
func (m *MockFactory) ClearCache() {
	m.Called()
}
