package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/myysophia/filehub-backend/internal/db/models"
	"github.com/myysophia/filehub-backend/internal/db/repository"
)

// MockFileStore 模拟文件元数据仓库
type MockFileStore struct {
	mock.Mock
}

// Create 创建文件记录
func (m *MockFileStore) Create(file *models.File) error {
	args := m.Called(file)
	return args.Error(0)
}

// Update 更新文件记录
func (m *MockFileStore) Update(id uint, updates map[string]interface{}) error {
	args := m.Called(id, updates)
	return args.Error(0)
}

// Delete 删除文件记录
func (m *MockFileStore) Delete(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

// DeleteBatch 批量删除文件记录
func (m *MockFileStore) DeleteBatch(ids []uint) (int64, error) {
	args := m.Called(ids)
	return args.Get(0).(int64), args.Error(1)
}

// FindByID 按ID查询文件记录
func (m *MockFileStore) FindByID(id uint) (*models.File, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.File), args.Error(1)
}

// List 按条件查询文件列表
func (m *MockFileStore) List(filter repository.ListFilter) ([]models.File, int64, error) {
	args := m.Called(filter)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.File), args.Get(1).(int64), args.Error(2)
}

// AggregateStats 聚合统计
func (m *MockFileStore) AggregateStats(ownerID *uint, recentWindow time.Duration) (*repository.StorageStats, error) {
	args := m.Called(ownerID, recentWindow)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.StorageStats), args.Error(1)
}

// MockCategoryStore 模拟分类仓库
type MockCategoryStore struct {
	mock.Mock
}

// FindByID 按ID查询分类
func (m *MockCategoryStore) FindByID(id uint) (*models.Category, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Category), args.Error(1)
}

// ListAll 查询全部分类
func (m *MockCategoryStore) ListAll() ([]models.Category, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Category), args.Error(1)
}
