package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/myysophia/filehub-backend/internal/db/models"
	"github.com/myysophia/filehub-backend/internal/policy"
	"github.com/myysophia/filehub-backend/internal/storage"
	"github.com/myysophia/filehub-backend/internal/tests/mocks"
)

func intPtr(v int) *int    { return &v }
func uintPtr(v uint) *uint { return &v }

var testIdentity = Identity{UserID: 1, Username: "tester", IP: "127.0.0.1"}

func newTestService(factory storage.Factory, files FileStore, categories CategoryStore) *UploadService {
	return NewUploadService(factory, files, categories, policy.NewStore())
}

func pngInput(name string, size int64) UploadInput {
	return UploadInput{
		Filename:    name,
		Size:        size,
		ContentType: "image/png",
		Reader:      strings.NewReader("fake png bytes"),
	}
}

// 配置一个可以成功完成 Store 的模拟后端
func okProvider() *mocks.MockProvider {
	provider := &mocks.MockProvider{}
	provider.On("GetType").Return(storage.ProviderLocal)
	provider.On("Store", mock.Anything, mock.Anything).Return(&storage.StoreResult{
		ObjectKey: "tester/20260830/obj.png",
		Bucket:    "data/uploads",
		AccessURL: "/static/tester/20260830/obj.png",
	}, nil)
	return provider
}

func TestUploadOne_Success(t *testing.T) {
	provider := okProvider()
	factory := &mocks.MockFactory{}
	factory.On("GetDefaultProvider").Return(provider, nil)

	files := &mocks.MockFileStore{}
	files.On("Create", mock.AnythingOfType("*models.File")).Run(func(args mock.Arguments) {
		args.Get(0).(*models.File).ID = 42
	}).Return(nil)

	svc := newTestService(factory, files, &mocks.MockCategoryStore{})

	resp, err := svc.UploadOne(testIdentity, pngInput("photo.png", 5*1024*1024), UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, uint(42), resp.ID)
	assert.Equal(t, "photo.png", resp.Filename)
	assert.Equal(t, storage.ProviderLocal, resp.Provider)
	assert.Equal(t, int64(5*1024*1024), resp.Size)
	assert.NotEmpty(t, resp.AccessURL)

	// 成功上报前元数据必须已经写入
	files.AssertCalled(t, "Create", mock.AnythingOfType("*models.File"))
}

func TestUploadOne_RejectHasNoSideEffects(t *testing.T) {
	factory := &mocks.MockFactory{}
	files := &mocks.MockFileStore{}

	svc := newTestService(factory, files, &mocks.MockCategoryStore{})

	// 无扩展名的0字节文件在校验层拒绝
	_, err := svc.UploadOne(testIdentity, UploadInput{
		Filename:    "README",
		Size:        0,
		ContentType: "text/plain",
		Reader:      strings.NewReader(""),
	}, UploadOptions{})

	var reject *RejectError
	require.ErrorAs(t, err, &reject)
	assert.Contains(t, reject.Reason, "缺少扩展名")

	// 拒绝时不触碰存储和持久化
	factory.AssertNotCalled(t, "GetProvider", mock.Anything)
	factory.AssertNotCalled(t, "GetDefaultProvider")
	files.AssertNotCalled(t, "Create", mock.Anything)
}

func TestUploadOne_CategoryNotFound(t *testing.T) {
	categories := &mocks.MockCategoryStore{}
	categories.On("FindByID", uint(9)).Return(nil, gorm.ErrRecordNotFound)

	svc := newTestService(&mocks.MockFactory{}, &mocks.MockFileStore{}, categories)

	_, err := svc.UploadOne(testIdentity, pngInput("a.png", 1), UploadOptions{CategoryID: uintPtr(9)})
	assert.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestUploadOne_ProviderFailureSkipsPersistence(t *testing.T) {
	provider := &mocks.MockProvider{}
	provider.On("GetType").Return(storage.ProviderLocal)
	provider.On("Store", mock.Anything, mock.Anything).Return(nil, errors.New("磁盘已满"))

	factory := &mocks.MockFactory{}
	factory.On("GetDefaultProvider").Return(provider, nil)
	files := &mocks.MockFileStore{}

	svc := newTestService(factory, files, &mocks.MockCategoryStore{})

	_, err := svc.UploadOne(testIdentity, pngInput("a.png", 1), UploadOptions{})
	var providerErr *ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, storage.ProviderLocal, providerErr.Provider)

	files.AssertNotCalled(t, "Create", mock.Anything)
}

func TestUploadOne_CompensatingDeleteOnPersistenceFailure(t *testing.T) {
	persistErr := errors.New("数据库连接中断")

	provider := okProvider()
	provider.On("Delete", "tester/20260830/obj.png").Return(nil)

	factory := &mocks.MockFactory{}
	factory.On("GetDefaultProvider").Return(provider, nil)

	files := &mocks.MockFileStore{}
	files.On("Create", mock.AnythingOfType("*models.File")).Return(persistErr)

	svc := newTestService(factory, files, &mocks.MockCategoryStore{})

	_, err := svc.UploadOne(testIdentity, pngInput("a.png", 1), UploadOptions{})
	// 回滚不掩盖原始错误
	assert.ErrorIs(t, err, persistErr)
	provider.AssertCalled(t, "Delete", "tester/20260830/obj.png")
}

func TestUploadOne_RollbackFailureStillReturnsOriginalError(t *testing.T) {
	persistErr := errors.New("数据库连接中断")

	provider := okProvider()
	provider.On("Delete", mock.Anything).Return(errors.New("回滚也失败"))

	factory := &mocks.MockFactory{}
	factory.On("GetDefaultProvider").Return(provider, nil)

	files := &mocks.MockFileStore{}
	files.On("Create", mock.AnythingOfType("*models.File")).Return(persistErr)

	svc := newTestService(factory, files, &mocks.MockCategoryStore{})

	_, err := svc.UploadOne(testIdentity, pngInput("a.png", 1), UploadOptions{})
	assert.ErrorIs(t, err, persistErr)
}

func TestUploadMany_PartialBatchIndependence(t *testing.T) {
	provider := okProvider()
	factory := &mocks.MockFactory{}
	factory.On("GetDefaultProvider").Return(provider, nil)

	files := &mocks.MockFileStore{}
	files.On("Create", mock.AnythingOfType("*models.File")).Return(nil)

	svc := newTestService(factory, files, &mocks.MockCategoryStore{})

	inputs := []UploadInput{
		pngInput("a.png", 100),
		{Filename: "noext", Size: 100, ContentType: "text/plain", Reader: strings.NewReader("x")},
		pngInput("c.png", 100),
	}

	out := svc.UploadMany(testIdentity, inputs, UploadOptions{})
	assert.Len(t, out.Succeeded, 2)
	require.Len(t, out.Failed, 1)
	assert.Equal(t, "noext", out.Failed[0].Filename)

	// 校验失败的文件不触发任何存储调用
	provider.AssertNumberOfCalls(t, "Store", 2)
}

func TestUploadMany_BatchLevelRejection(t *testing.T) {
	store := policy.NewStoreWithOverride(&policy.Override{
		Limits: &policy.LimitsOverride{MaxBatchCount: intPtr(1)},
	})
	factory := &mocks.MockFactory{}
	svc := NewUploadService(factory, &mocks.MockFileStore{}, &mocks.MockCategoryStore{}, store)

	out := svc.UploadMany(testIdentity, []UploadInput{
		pngInput("a.png", 1),
		pngInput("b.png", 1),
	}, UploadOptions{})

	assert.Empty(t, out.Succeeded)
	assert.Len(t, out.Failed, 2)
	factory.AssertNotCalled(t, "GetDefaultProvider")
}

func TestUploadMany_ConcurrencyCapEnforced(t *testing.T) {
	store := policy.NewStoreWithOverride(&policy.Override{
		Limits: &policy.LimitsOverride{MaxConcurrentUploads: intPtr(1)},
	})

	provider := okProvider()
	factory := &mocks.MockFactory{}
	factory.On("GetDefaultProvider").Return(provider, nil)

	files := &mocks.MockFileStore{}
	files.On("Create", mock.AnythingOfType("*models.File")).Return(nil)

	svc := NewUploadService(factory, files, &mocks.MockCategoryStore{}, store)

	out := svc.UploadMany(testIdentity, []UploadInput{
		pngInput("a.png", 1),
		pngInput("b.png", 1),
		pngInput("c.png", 1),
	}, UploadOptions{})

	assert.Len(t, out.Succeeded, 3)
	assert.Empty(t, out.Failed)
}

func TestDeleteOne(t *testing.T) {
	file := &models.File{
		Model:     models.Model{ID: 1},
		Provider:  storage.ProviderLocal,
		ObjectKey: "tester/a.png",
	}

	provider := &mocks.MockProvider{}
	provider.On("Delete", "tester/a.png").Return(nil)

	factory := &mocks.MockFactory{}
	factory.On("GetProvider", storage.ProviderLocal).Return(provider, nil)

	files := &mocks.MockFileStore{}
	files.On("FindByID", uint(1)).Return(file, nil)
	files.On("Delete", uint(1)).Return(nil)

	svc := newTestService(factory, files, &mocks.MockCategoryStore{})

	require.NoError(t, svc.DeleteOne(1))
	provider.AssertCalled(t, "Delete", "tester/a.png")
	files.AssertCalled(t, "Delete", uint(1))
}

func TestDeleteOne_NotFound(t *testing.T) {
	files := &mocks.MockFileStore{}
	files.On("FindByID", uint(7)).Return(nil, gorm.ErrRecordNotFound)

	svc := newTestService(&mocks.MockFactory{}, files, &mocks.MockCategoryStore{})
	assert.ErrorIs(t, svc.DeleteOne(7), ErrFileNotFound)
}

func TestDeleteMany_ProviderErrorDoesNotBlockOthers(t *testing.T) {
	provider := &mocks.MockProvider{}
	factory := &mocks.MockFactory{}
	factory.On("GetProvider", storage.ProviderLocal).Return(provider, nil)

	files := &mocks.MockFileStore{}
	for id := uint(1); id <= 5; id++ {
		files.On("FindByID", id).Return(&models.File{
			Model:     models.Model{ID: id},
			Provider:  storage.ProviderLocal,
			ObjectKey: objectKeyFor(id),
		}, nil)
	}

	// 第3个对象的提供方删除失败
	provider.On("Delete", objectKeyFor(3)).Return(errors.New("权限不足"))
	for _, id := range []uint{1, 2, 4, 5} {
		provider.On("Delete", objectKeyFor(id)).Return(nil)
	}

	files.On("DeleteBatch", []uint{1, 2, 4, 5}).Return(int64(4), nil)

	svc := newTestService(factory, files, &mocks.MockCategoryStore{})

	out := svc.DeleteMany([]uint{1, 2, 3, 4, 5})
	assert.Equal(t, int64(4), out.Deleted)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, uint(3), out.Errors[0].ID)
	assert.Contains(t, out.Errors[0].Reason, "权限不足")
}

func objectKeyFor(id uint) string {
	return "tester/obj-" + string(rune('0'+id)) + ".png"
}

func TestAccessURL_UsesPolicyDefaultExpiry(t *testing.T) {
	file := &models.File{
		Model:     models.Model{ID: 1},
		Provider:  storage.ProviderLocal,
		ObjectKey: "tester/a.png",
		IsPublic:  false,
	}

	defaults := policy.Defaults()
	defaultExpire := defaults.AccessURLExpire()

	provider := &mocks.MockProvider{}
	provider.On("AccessURL", "tester/a.png", defaultExpire, false).Return("http://signed", nil)

	factory := &mocks.MockFactory{}
	factory.On("GetProvider", storage.ProviderLocal).Return(provider, nil)

	files := &mocks.MockFileStore{}
	files.On("FindByID", uint(1)).Return(file, nil)

	svc := newTestService(factory, files, &mocks.MockCategoryStore{})

	url, err := svc.AccessURL(1, 0)
	require.NoError(t, err)
	assert.Equal(t, "http://signed", url)

	// 显式有效期直接透传
	provider.On("AccessURL", "tester/a.png", time.Minute, false).Return("http://short", nil)
	url, err = svc.AccessURL(1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "http://short", url)
}
