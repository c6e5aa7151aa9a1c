package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"time"

	"github.com/myysophia/filehub-backend/internal/db/models"
	"github.com/myysophia/filehub-backend/internal/db/repository"
	"github.com/myysophia/filehub-backend/internal/logger"
	"github.com/myysophia/filehub-backend/internal/policy"
	"github.com/myysophia/filehub-backend/internal/storage"
	"github.com/myysophia/filehub-backend/internal/utils"
	"github.com/myysophia/filehub-backend/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
)

// FileStore 文件元数据持久化协作方
type FileStore interface {
	Create(file *models.File) error
	Update(id uint, updates map[string]interface{}) error
	Delete(id uint) error
	DeleteBatch(ids []uint) (int64, error)
	FindByID(id uint) (*models.File, error)
	List(filter repository.ListFilter) ([]models.File, int64, error)
	AggregateStats(ownerID *uint, recentWindow time.Duration) (*repository.StorageStats, error)
}

// CategoryStore 文件分类协作方，本服务只读
type CategoryStore interface {
	FindByID(id uint) (*models.Category, error)
	ListAll() ([]models.Category, error)
}

// ChecksumEnqueuer 异步校验和计算入口
type ChecksumEnqueuer interface {
	Enqueue(file *models.File) error
}

// Identity 已认证的上传者身份，由认证边界解析后传入
type Identity struct {
	UserID   uint
	Username string
	IP       string
}

// UploadInput 单个待上传文件
type UploadInput struct {
	Filename    string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// UploadOptions 上传选项
type UploadOptions struct {
	Provider   string // 空值使用默认后端
	CategoryID *uint
	Public     bool
	Tags       []string
	Metadata   map[string]string
}

// FileResponse 面向客户端的上传结果
type FileResponse struct {
	ID           uint      `json:"id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	Provider     string    `json:"provider"`
	AccessURL    string    `json:"access_url"`
	CategoryName string    `json:"category,omitempty"`
	IsPublic     bool      `json:"is_public"`
	Tags         []string  `json:"tags,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UploadFailure 批量上传中单个文件的失败信息
type UploadFailure struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// BatchUploadResult 批量上传结果，部分成功是正常结果
type BatchUploadResult struct {
	Succeeded []*FileResponse `json:"succeeded"`
	Failed    []UploadFailure `json:"failed"`
}

// DeleteFailure 批量删除中单个ID的失败信息
type DeleteFailure struct {
	ID     uint   `json:"id"`
	Reason string `json:"reason"`
}

// BatchDeleteResult 批量删除结果
type BatchDeleteResult struct {
	Deleted int64           `json:"deleted"`
	Errors  []DeleteFailure `json:"errors,omitempty"`
}

// UploadService 上传编排服务
// 串联校验管道、存储后端和元数据仓库：
// 校验通过后先写存储再写元数据，元数据失败时尽力回滚存储对象
type UploadService struct {
	factory    storage.Factory
	files      FileStore
	categories CategoryStore
	policy     *policy.Store
	pipeline   *validation.Pipeline
	checksum   ChecksumEnqueuer
}

// NewUploadService 创建上传编排服务
func NewUploadService(factory storage.Factory, files FileStore, categories CategoryStore, policyStore *policy.Store) *UploadService {
	return &UploadService{
		factory:    factory,
		files:      files,
		categories: categories,
		policy:     policyStore,
		pipeline:   validation.NewPipeline(policyStore),
	}
}

// SetChecksumEnqueuer 挂接异步校验和计算
func (s *UploadService) SetChecksumEnqueuer(enqueuer ChecksumEnqueuer) {
	s.checksum = enqueuer
}

// UploadOne 上传单个文件
// 校验拒绝时不产生任何存储或持久化副作用
func (s *UploadService) UploadOne(identity Identity, in UploadInput, opts UploadOptions) (*FileResponse, error) {
	category, err := s.resolveCategory(opts.CategoryID)
	if err != nil {
		return nil, err
	}

	result := s.pipeline.ValidateFile(validation.Candidate{
		Filename:    in.Filename,
		Size:        in.Size,
		ContentType: in.ContentType,
		Category:    category,
	})
	if !result.Allowed {
		return nil, &RejectError{Rule: result.Rule, Reason: result.Reason}
	}

	return s.storeAndPersist(identity, in, opts, category)
}

// UploadMany 批量上传
// 每个文件独立尝试并发执行，单个失败不影响其他文件
func (s *UploadService) UploadMany(identity Identity, inputs []UploadInput, opts UploadOptions) *BatchUploadResult {
	out := &BatchUploadResult{}

	category, err := s.resolveCategory(opts.CategoryID)
	if err != nil {
		for _, in := range inputs {
			out.Failed = append(out.Failed, UploadFailure{Filename: in.Filename, Reason: err.Error()})
		}
		return out
	}

	candidates := make([]validation.Candidate, len(inputs))
	for i, in := range inputs {
		candidates[i] = validation.Candidate{
			Filename:    in.Filename,
			Size:        in.Size,
			ContentType: in.ContentType,
			Category:    category,
		}
	}

	// 批级检查失败时整批拒绝，不做单文件校验
	batchResult, fileResults := s.pipeline.ValidateBatch(candidates)
	if !batchResult.Allowed {
		for _, in := range inputs {
			out.Failed = append(out.Failed, UploadFailure{Filename: in.Filename, Reason: batchResult.Reason})
		}
		return out
	}

	limits := s.policy.Resolve().Limits
	var sem *semaphore.Weighted
	if limits.MaxConcurrentUploads > 0 {
		sem = semaphore.NewWeighted(int64(limits.MaxConcurrentUploads))
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for i := range inputs {
		// 校验失败的文件直接记为失败，不触发存储调用
		if !fileResults[i].Allowed {
			out.Failed = append(out.Failed, UploadFailure{
				Filename: inputs[i].Filename,
				Reason:   fileResults[i].Reason,
			})
			continue
		}

		wg.Add(1)
		go func(in UploadInput) {
			defer wg.Done()

			if sem != nil {
				if err := sem.Acquire(context.Background(), 1); err != nil {
					mu.Lock()
					out.Failed = append(out.Failed, UploadFailure{Filename: in.Filename, Reason: err.Error()})
					mu.Unlock()
					return
				}
				defer sem.Release(1)
			}

			resp, err := s.storeAndPersist(identity, in, opts, category)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				out.Failed = append(out.Failed, UploadFailure{Filename: in.Filename, Reason: err.Error()})
				return
			}
			out.Succeeded = append(out.Succeeded, resp)
		}(inputs[i])
	}

	wg.Wait()
	return out
}

// DeleteOne 删除单个文件及其元数据
func (s *UploadService) DeleteOne(id uint) error {
	file, err := s.files.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrFileNotFound
		}
		return err
	}

	provider, err := s.factory.GetProvider(file.Provider)
	if err != nil {
		return err
	}

	if err := provider.Delete(file.ObjectKey); err != nil {
		return &ProviderError{Provider: file.Provider, Err: err}
	}

	return s.files.Delete(id)
}

// DeleteMany 批量删除
// 逐个尝试并收集错误，提供方删除失败不阻断其余ID的元数据批量删除
func (s *UploadService) DeleteMany(ids []uint) *BatchDeleteResult {
	out := &BatchDeleteResult{}

	var deletable []uint
	for _, id := range ids {
		file, err := s.files.FindByID(id)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				reason = ErrFileNotFound.Error()
			}
			out.Errors = append(out.Errors, DeleteFailure{ID: id, Reason: reason})
			continue
		}

		provider, err := s.factory.GetProvider(file.Provider)
		if err != nil {
			out.Errors = append(out.Errors, DeleteFailure{ID: id, Reason: err.Error()})
			continue
		}

		if err := provider.Delete(file.ObjectKey); err != nil {
			out.Errors = append(out.Errors, DeleteFailure{ID: id, Reason: err.Error()})
			continue
		}

		deletable = append(deletable, id)
	}

	deleted, err := s.files.DeleteBatch(deletable)
	if err != nil {
		logger.Error("批量删除文件记录失败", zap.Uints("ids", deletable), zap.Error(err))
		for _, id := range deletable {
			out.Errors = append(out.Errors, DeleteFailure{ID: id, Reason: err.Error()})
		}
		return out
	}
	out.Deleted = deleted
	return out
}

// AccessURL 为指定文件签发访问URL
// expiration 为零值时使用策略配置的有效期
func (s *UploadService) AccessURL(id uint, expiration time.Duration) (string, error) {
	file, err := s.files.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrFileNotFound
		}
		return "", err
	}

	provider, err := s.factory.GetProvider(file.Provider)
	if err != nil {
		return "", err
	}

	if expiration <= 0 {
		p := s.policy.Resolve()
		expiration = p.AccessURLExpire()
	}

	url, err := provider.AccessURL(file.ObjectKey, expiration, file.IsPublic)
	if err != nil {
		return "", &ProviderError{Provider: file.Provider, Err: err}
	}
	return url, nil
}

// List 按条件查询文件列表
func (s *UploadService) List(filter repository.ListFilter) ([]models.File, int64, error) {
	return s.files.List(filter)
}

// Stats 聚合统计
func (s *UploadService) Stats(ownerID *uint) (*repository.StorageStats, error) {
	p := s.policy.Resolve()
	window := time.Duration(p.Timing.RecentStatsHours) * time.Hour
	return s.files.AggregateStats(ownerID, window)
}

// resolveCategory 解析分类引用，无法解析的引用是配置错误
func (s *UploadService) resolveCategory(categoryID *uint) (*models.Category, error) {
	if categoryID == nil {
		return nil, nil
	}
	category, err := s.categories.FindByID(*categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("查询文件分类失败: %w", err)
	}
	return category, nil
}

// storeAndPersist 执行存储写入与元数据持久化
// 顺序保证：存储写入成功后才写元数据，元数据写入成功后才向调用方报告成功
func (s *UploadService) storeAndPersist(identity Identity, in UploadInput, opts UploadOptions, category *models.Category) (*FileResponse, error) {
	providerType := opts.Provider
	var provider storage.Provider
	var err error
	if providerType == "" {
		provider, err = s.factory.GetDefaultProvider()
	} else {
		provider, err = s.factory.GetProvider(providerType)
	}
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(in.Filename)
	objectKey := utils.GenerateObjectKey(identity.Username, ext)

	start := time.Now()
	result, err := provider.Store(in.Reader, objectKey)
	if err != nil {
		return nil, &ProviderError{Provider: provider.GetType(), Err: err}
	}

	p := s.policy.Resolve()
	if p.Monitoring.LogUploads {
		elapsed := time.Since(start)
		fields := []zap.Field{
			zap.String("filename", in.Filename),
			zap.String("provider", provider.GetType()),
			zap.Int64("size", in.Size),
			zap.Duration("elapsed", elapsed),
		}
		if p.Monitoring.SlowUploadThreshold > 0 && elapsed > time.Duration(p.Monitoring.SlowUploadThreshold)*time.Second {
			logger.Warn("慢上传", fields...)
		} else {
			logger.Info("文件上传完成", fields...)
		}
	}

	file := &models.File{
		OriginalFilename: in.Filename,
		StorageFilename:  objectKey,
		ContentType:      in.ContentType,
		FileSize:         in.Size,
		Provider:         provider.GetType(),
		Bucket:           result.Bucket,
		ObjectKey:        result.ObjectKey,
		OwnerID:          identity.UserID,
		CategoryID:       opts.CategoryID,
		IsPublic:         opts.Public,
		Tags:             opts.Tags,
		Metadata:         opts.Metadata,
		MD5Status:        models.MD5StatusPending,
		UploadIP:         identity.IP,
	}

	if err := s.files.Create(file); err != nil {
		// 尽力回滚已写入的存储对象，回滚失败只记录日志，不掩盖原始错误
		if delErr := provider.Delete(result.ObjectKey); delErr != nil {
			logger.Error("回滚存储对象失败",
				zap.String("objectKey", result.ObjectKey),
				zap.String("provider", provider.GetType()),
				zap.Error(delErr))
		}
		return nil, err
	}

	if s.checksum != nil && p.Features.ChecksumAsync {
		if err := s.checksum.Enqueue(file); err != nil {
			logger.Warn("校验和计算入队失败", zap.Uint("fileID", file.ID), zap.Error(err))
		}
	}

	file.Category = category
	return s.toResponse(file, result.AccessURL), nil
}

// toResponse 把持久化记录映射为客户端响应，不暴露存储后端原始响应
func (s *UploadService) toResponse(file *models.File, accessURL string) *FileResponse {
	resp := &FileResponse{
		ID:          file.ID,
		Filename:    file.OriginalFilename,
		ContentType: file.ContentType,
		Size:        file.FileSize,
		Provider:    file.Provider,
		AccessURL:   accessURL,
		IsPublic:    file.IsPublic,
		Tags:        file.Tags,
		CreatedAt:   file.CreatedAt,
		UpdatedAt:   file.UpdatedAt,
	}
	if file.Category != nil {
		resp.CategoryName = file.Category.Name
	}
	return resp
}
