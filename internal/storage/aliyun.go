package storage

import (
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/myysophia/filehub-backend/internal/config"
	"github.com/myysophia/filehub-backend/internal/logger"
	"go.uber.org/zap"
)

// AliyunOSSProvider 阿里云OSS存储后端
type AliyunOSSProvider struct {
	client     *oss.Client
	bucket     *oss.Bucket
	config     *config.AliyunOSSConfig
	bucketName string
	uploadDir  string
}

// NewAliyunOSSProvider 创建阿里云OSS存储后端
func NewAliyunOSSProvider(cfg *config.AliyunOSSConfig) (*AliyunOSSProvider, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("初始化阿里云OSS客户端失败: %w", err)
	}

	bucket, err := client.Bucket(cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("获取阿里云OSS Bucket失败: %w", err)
	}

	return &AliyunOSSProvider{
		client:     client,
		bucket:     bucket,
		config:     cfg,
		bucketName: cfg.Bucket,
		uploadDir:  cfg.UploadDir,
	}, nil
}

// GetName 获取存储后端名称
func (p *AliyunOSSProvider) GetName() string {
	return "阿里云OSS"
}

// GetType 获取存储后端类型
func (p *AliyunOSSProvider) GetType() string {
	return ProviderAliyunOSS
}

// GetBucketName 获取存储桶名称
func (p *AliyunOSSProvider) GetBucketName() string {
	return p.bucketName
}

// getObjectKey 获取对象键
func (p *AliyunOSSProvider) getObjectKey(filename string) string {
	return path.Join(p.uploadDir, filename)
}

// Store 上传对象
func (p *AliyunOSSProvider) Store(file io.Reader, objectKey string) (*StoreResult, error) {
	fullObjectKey := p.getObjectKey(objectKey)

	if err := p.bucket.PutObject(fullObjectKey, file); err != nil {
		logger.Error("阿里云OSS上传文件失败", zap.String("objectKey", fullObjectKey), zap.Error(err))
		return nil, fmt.Errorf("上传文件到阿里云OSS失败: %w", err)
	}

	// 返回可访问的URL
	signedURL, err := p.bucket.SignURL(fullObjectKey, oss.HTTPGet, int64(p.config.GetURLExpiration().Seconds()))
	if err != nil {
		logger.Error("生成阿里云OSS下载URL失败", zap.String("objectKey", fullObjectKey), zap.Error(err))
		return nil, fmt.Errorf("生成阿里云OSS下载URL失败: %w", err)
	}

	return &StoreResult{
		ObjectKey: fullObjectKey,
		Bucket:    p.bucketName,
		AccessURL: signedURL,
	}, nil
}

// Delete 删除对象
// OSS 对不存在的对象键也返回成功，天然幂等
func (p *AliyunOSSProvider) Delete(objectKey string) error {
	if err := p.bucket.DeleteObject(objectKey); err != nil {
		logger.Error("删除阿里云OSS对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return fmt.Errorf("删除阿里云OSS对象失败: %w", err)
	}
	return nil
}

// AccessURL 生成访问URL
func (p *AliyunOSSProvider) AccessURL(objectKey string, expiration time.Duration, public bool) (string, error) {
	if public {
		return fmt.Sprintf("https://%s.%s/%s", p.bucketName, p.config.Endpoint, objectKey), nil
	}

	signedURL, err := p.bucket.SignURL(objectKey, oss.HTTPGet, int64(expiration.Seconds()))
	if err != nil {
		logger.Error("生成阿里云OSS下载URL失败", zap.String("objectKey", objectKey), zap.Error(err))
		return "", fmt.Errorf("生成阿里云OSS下载URL失败: %w", err)
	}
	return signedURL, nil
}

// Object 获取对象内容
func (p *AliyunOSSProvider) Object(objectKey string) (io.ReadCloser, error) {
	body, err := p.bucket.GetObject(objectKey)
	if err != nil {
		logger.Error("获取阿里云OSS对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, fmt.Errorf("获取阿里云OSS对象失败: %w", err)
	}
	return body, nil
}
