package storage

import (
	"io"
	"time"
)

// 存储类型枚举
const (
	ProviderLocal     = "LOCAL"
	ProviderAWSS3     = "AWS_S3"
	ProviderAliyunOSS = "ALIYUN_OSS"
	ProviderCDN       = "CDN_R2"
)

// StoreResult 存储写入结果
type StoreResult struct {
	ObjectKey string            `json:"object_key"`
	Bucket    string            `json:"bucket"`
	AccessURL string            `json:"access_url"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Provider 存储后端接口
type Provider interface {
	// GetName 获取存储后端名称
	GetName() string

	// GetType 获取存储后端类型
	GetType() string

	// GetBucketName 获取存储桶名称
	GetBucketName() string

	// Store 写入对象并返回对象键与访问URL
	Store(file io.Reader, objectKey string) (*StoreResult, error)

	// Delete 删除对象，对不存在的对象键不报错
	Delete(objectKey string) error

	// AccessURL 生成对象访问URL
	// public 为 true 时返回稳定URL，否则返回限时URL
	AccessURL(objectKey string, expiration time.Duration, public bool) (string, error)

	// Object 获取对象内容
	Object(objectKey string) (io.ReadCloser, error)
}

// Factory 存储后端工厂
type Factory interface {
	// GetProvider 按存储类型获取后端
	GetProvider(providerType string) (Provider, error)

	// GetDefaultProvider 获取默认后端
	GetDefaultProvider() (Provider, error)

	// ClearCache 清除缓存
	ClearCache()
}
