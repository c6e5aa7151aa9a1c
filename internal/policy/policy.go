package policy

import (
	"sync"
	"time"
)

// Features 功能开关
type Features struct {
	PublicSharing  bool `json:"public_sharing" mapstructure:"public_sharing"`
	BatchUpload    bool `json:"batch_upload" mapstructure:"batch_upload"`
	BatchDelete    bool `json:"batch_delete" mapstructure:"batch_delete"`
	ChecksumAsync  bool `json:"checksum_async" mapstructure:"checksum_async"`
	ProgressStream bool `json:"progress_stream" mapstructure:"progress_stream"`
}

// Limits 性能与容量限制
type Limits struct {
	MaxFileSize          int64 `json:"max_file_size" mapstructure:"max_file_size"`                   // 单文件最大字节数
	MaxBatchCount        int   `json:"max_batch_count" mapstructure:"max_batch_count"`               // 单批最大文件数
	MaxBatchBytes        int64 `json:"max_batch_bytes" mapstructure:"max_batch_bytes"`               // 单批最大总字节数
	MaxConcurrentUploads int   `json:"max_concurrent_uploads" mapstructure:"max_concurrent_uploads"` // 0 表示不限制
	RetryCount           int   `json:"retry_count" mapstructure:"retry_count"`                       // 供外层调用方使用的重试次数
}

// Timing 时间参数（秒）
type Timing struct {
	UploadTimeout    int `json:"upload_timeout" mapstructure:"upload_timeout"`
	RetryBackoff     int `json:"retry_backoff" mapstructure:"retry_backoff"`
	AccessURLExpire  int `json:"access_url_expire" mapstructure:"access_url_expire"`
	ProgressLinger   int `json:"progress_linger" mapstructure:"progress_linger"`
	RecentStatsHours int `json:"recent_stats_hours" mapstructure:"recent_stats_hours"`
}

// UI 前端展示限制
type UI struct {
	PageSize           int `json:"page_size" mapstructure:"page_size"`
	MaxVisibleAttempts int `json:"max_visible_attempts" mapstructure:"max_visible_attempts"`
}

// FileTypes 文件类型策略
type FileTypes struct {
	AllowedMIMETypes []string `json:"allowed_mime_types" mapstructure:"allowed_mime_types"`
}

// Monitoring 监控开关
type Monitoring struct {
	LogUploads          bool `json:"log_uploads" mapstructure:"log_uploads"`
	SlowUploadThreshold int  `json:"slow_upload_threshold" mapstructure:"slow_upload_threshold"` // 秒
}

// Policy 上传策略的合并视图
type Policy struct {
	Features   Features   `json:"features" mapstructure:"features"`
	Limits     Limits     `json:"limits" mapstructure:"limits"`
	Timing     Timing     `json:"timing" mapstructure:"timing"`
	UI         UI         `json:"ui" mapstructure:"ui"`
	FileTypes  FileTypes  `json:"file_types" mapstructure:"file_types"`
	Monitoring Monitoring `json:"monitoring" mapstructure:"monitoring"`
}

// Override 覆盖层，按顶层分组整组覆盖
// nil 表示该分组不覆盖，沿用默认值
type Override struct {
	Features   *FeaturesOverride   `json:"features,omitempty" mapstructure:"features"`
	Limits     *LimitsOverride     `json:"limits,omitempty" mapstructure:"limits"`
	Timing     *TimingOverride     `json:"timing,omitempty" mapstructure:"timing"`
	UI         *UIOverride         `json:"ui,omitempty" mapstructure:"ui"`
	FileTypes  *FileTypesOverride  `json:"file_types,omitempty" mapstructure:"file_types"`
	Monitoring *MonitoringOverride `json:"monitoring,omitempty" mapstructure:"monitoring"`
}

// FeaturesOverride 各字段 nil 表示沿用默认值
type FeaturesOverride struct {
	PublicSharing  *bool `json:"public_sharing,omitempty" mapstructure:"public_sharing"`
	BatchUpload    *bool `json:"batch_upload,omitempty" mapstructure:"batch_upload"`
	BatchDelete    *bool `json:"batch_delete,omitempty" mapstructure:"batch_delete"`
	ChecksumAsync  *bool `json:"checksum_async,omitempty" mapstructure:"checksum_async"`
	ProgressStream *bool `json:"progress_stream,omitempty" mapstructure:"progress_stream"`
}

type LimitsOverride struct {
	MaxFileSize          *int64 `json:"max_file_size,omitempty" mapstructure:"max_file_size"`
	MaxBatchCount        *int   `json:"max_batch_count,omitempty" mapstructure:"max_batch_count"`
	MaxBatchBytes        *int64 `json:"max_batch_bytes,omitempty" mapstructure:"max_batch_bytes"`
	MaxConcurrentUploads *int   `json:"max_concurrent_uploads,omitempty" mapstructure:"max_concurrent_uploads"`
	RetryCount           *int   `json:"retry_count,omitempty" mapstructure:"retry_count"`
}

type TimingOverride struct {
	UploadTimeout    *int `json:"upload_timeout,omitempty" mapstructure:"upload_timeout"`
	RetryBackoff     *int `json:"retry_backoff,omitempty" mapstructure:"retry_backoff"`
	AccessURLExpire  *int `json:"access_url_expire,omitempty" mapstructure:"access_url_expire"`
	ProgressLinger   *int `json:"progress_linger,omitempty" mapstructure:"progress_linger"`
	RecentStatsHours *int `json:"recent_stats_hours,omitempty" mapstructure:"recent_stats_hours"`
}

type UIOverride struct {
	PageSize           *int `json:"page_size,omitempty" mapstructure:"page_size"`
	MaxVisibleAttempts *int `json:"max_visible_attempts,omitempty" mapstructure:"max_visible_attempts"`
}

// FileTypesOverride 数组整体替换，不做逐项合并
type FileTypesOverride struct {
	AllowedMIMETypes []string `json:"allowed_mime_types,omitempty" mapstructure:"allowed_mime_types"`
}

type MonitoringOverride struct {
	LogUploads          *bool `json:"log_uploads,omitempty" mapstructure:"log_uploads"`
	SlowUploadThreshold *int  `json:"slow_upload_threshold,omitempty" mapstructure:"slow_upload_threshold"`
}

// Defaults 内置默认策略
func Defaults() Policy {
	return Policy{
		Features: Features{
			PublicSharing:  true,
			BatchUpload:    true,
			BatchDelete:    true,
			ChecksumAsync:  true,
			ProgressStream: true,
		},
		Limits: Limits{
			MaxFileSize:          100 * 1024 * 1024, // 100MB
			MaxBatchCount:        20,
			MaxBatchBytes:        500 * 1024 * 1024,
			MaxConcurrentUploads: 0, // 默认不限制
			RetryCount:           3,
		},
		Timing: Timing{
			UploadTimeout:    300,
			RetryBackoff:     2,
			AccessURLExpire:  24 * 3600,
			ProgressLinger:   5,
			RecentStatsHours: 24,
		},
		UI: UI{
			PageSize:           10,
			MaxVisibleAttempts: 50,
		},
		FileTypes: FileTypes{
			AllowedMIMETypes: []string{"image/*", "video/*", "audio/*", "text/*", "application/*"},
		},
		Monitoring: Monitoring{
			LogUploads:          true,
			SlowUploadThreshold: 30,
		},
	}
}

// Store 策略存储，默认值加覆盖层，读取时合并
// 覆盖层预期在进程启动时设置一次，并发覆盖需要调用方自行串行化
type Store struct {
	mu       sync.RWMutex
	base     Policy
	override *Override
}

// NewStore 创建策略存储
func NewStore() *Store {
	return &Store{base: Defaults()}
}

// NewStoreWithOverride 创建策略存储并应用覆盖层
func NewStoreWithOverride(o *Override) *Store {
	s := NewStore()
	s.SetOverride(o)
	return s
}

// SetOverride 整体替换覆盖层
func (s *Store) SetOverride(o *Override) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = o
}

// Reset 恢复为内置默认策略
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.override = nil
}

// Resolve 返回默认值与覆盖层合并后的策略视图
func (s *Store) Resolve() Policy {
	s.mu.RLock()
	o := s.override
	s.mu.RUnlock()

	p := s.base
	if o == nil {
		return p
	}

	if o.Features != nil {
		mergeBool(&p.Features.PublicSharing, o.Features.PublicSharing)
		mergeBool(&p.Features.BatchUpload, o.Features.BatchUpload)
		mergeBool(&p.Features.BatchDelete, o.Features.BatchDelete)
		mergeBool(&p.Features.ChecksumAsync, o.Features.ChecksumAsync)
		mergeBool(&p.Features.ProgressStream, o.Features.ProgressStream)
	}
	if o.Limits != nil {
		mergeInt64(&p.Limits.MaxFileSize, o.Limits.MaxFileSize)
		mergeInt(&p.Limits.MaxBatchCount, o.Limits.MaxBatchCount)
		mergeInt64(&p.Limits.MaxBatchBytes, o.Limits.MaxBatchBytes)
		mergeInt(&p.Limits.MaxConcurrentUploads, o.Limits.MaxConcurrentUploads)
		mergeInt(&p.Limits.RetryCount, o.Limits.RetryCount)
	}
	if o.Timing != nil {
		mergeInt(&p.Timing.UploadTimeout, o.Timing.UploadTimeout)
		mergeInt(&p.Timing.RetryBackoff, o.Timing.RetryBackoff)
		mergeInt(&p.Timing.AccessURLExpire, o.Timing.AccessURLExpire)
		mergeInt(&p.Timing.ProgressLinger, o.Timing.ProgressLinger)
		mergeInt(&p.Timing.RecentStatsHours, o.Timing.RecentStatsHours)
	}
	if o.UI != nil {
		mergeInt(&p.UI.PageSize, o.UI.PageSize)
		mergeInt(&p.UI.MaxVisibleAttempts, o.UI.MaxVisibleAttempts)
	}
	if o.FileTypes != nil && o.FileTypes.AllowedMIMETypes != nil {
		// 数组整体替换
		p.FileTypes.AllowedMIMETypes = append([]string(nil), o.FileTypes.AllowedMIMETypes...)
	}
	if o.Monitoring != nil {
		mergeBool(&p.Monitoring.LogUploads, o.Monitoring.LogUploads)
		mergeInt(&p.Monitoring.SlowUploadThreshold, o.Monitoring.SlowUploadThreshold)
	}

	return p
}

// IsFeatureEnabled 按名称查询功能开关
func (s *Store) IsFeatureEnabled(name string) bool {
	p := s.Resolve()
	switch name {
	case "public_sharing":
		return p.Features.PublicSharing
	case "batch_upload":
		return p.Features.BatchUpload
	case "batch_delete":
		return p.Features.BatchDelete
	case "checksum_async":
		return p.Features.ChecksumAsync
	case "progress_stream":
		return p.Features.ProgressStream
	default:
		return false
	}
}

// Validate 检查策略有效性，仅供调用方参考，Store 本身不拒绝无效覆盖
func Validate(p Policy) bool {
	if p.Limits.RetryCount < 0 {
		return false
	}
	if p.Limits.MaxFileSize <= 0 {
		return false
	}
	if len(p.FileTypes.AllowedMIMETypes) == 0 {
		return false
	}
	return true
}

// UploadTimeout 上传超时时间
func (p *Policy) UploadTimeout() time.Duration {
	return time.Duration(p.Timing.UploadTimeout) * time.Second
}

// AccessURLExpire 访问 URL 有效时间
func (p *Policy) AccessURLExpire() time.Duration {
	return time.Duration(p.Timing.AccessURLExpire) * time.Second
}

func mergeBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func mergeInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func mergeInt64(dst *int64, src *int64) {
	if src != nil {
		*dst = *src
	}
}
