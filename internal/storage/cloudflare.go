package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/myysophia/filehub-backend/internal/config"
	"github.com/myysophia/filehub-backend/internal/logger"
	"go.uber.org/zap"
)

// CloudflareR2Provider Cloudflare R2存储后端（CDN回源），走S3兼容API
type CloudflareR2Provider struct {
	client     *s3.Client
	config     *config.CloudflareR2Config
	bucketName string
	uploadDir  string
}

// NewCloudflareR2Provider 创建Cloudflare R2存储后端
func NewCloudflareR2Provider(cfg *config.CloudflareR2Config) (*CloudflareR2Provider, error) {
	// 创建AWS凭证
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)

	// 构造R2端点
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	// 创建AWS配置
	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.TODO(),
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(creds),
		awsconfig.WithEndpointResolverWithOptions(
			aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:               endpoint,
						SigningRegion:     "auto",
						HostnameImmutable: true,
					}, nil
				},
			),
		),
	)
	if err != nil {
		logger.Error("创建R2配置失败", zap.Error(err))
		return nil, fmt.Errorf("创建R2配置失败: %w", err)
	}

	// 创建S3客户端
	client := s3.NewFromConfig(awsCfg)

	return &CloudflareR2Provider{
		client:     client,
		config:     cfg,
		bucketName: cfg.Bucket,
		uploadDir:  cfg.UploadDir,
	}, nil
}

// GetName 获取存储后端名称
func (p *CloudflareR2Provider) GetName() string {
	return "CloudFlare R2"
}

// GetType 获取存储后端类型
func (p *CloudflareR2Provider) GetType() string {
	return ProviderCDN
}

// GetBucketName 获取存储桶名称
func (p *CloudflareR2Provider) GetBucketName() string {
	return p.bucketName
}

// getObjectKey 获取对象键
func (p *CloudflareR2Provider) getObjectKey(filename string) string {
	return path.Join(p.uploadDir, filename)
}

// Store 上传对象
func (p *CloudflareR2Provider) Store(file io.Reader, objectKey string) (*StoreResult, error) {
	fullObjectKey := p.getObjectKey(objectKey)

	_, err := p.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(fullObjectKey),
		Body:   file,
	})
	if err != nil {
		logger.Error("CloudFlare R2上传文件失败", zap.String("objectKey", fullObjectKey), zap.Error(err))
		return nil, fmt.Errorf("上传文件到CloudFlare R2失败: %w", err)
	}

	accessURL, err := p.presignURL(fullObjectKey, p.config.GetURLExpiration())
	if err != nil {
		return nil, err
	}

	return &StoreResult{
		ObjectKey: fullObjectKey,
		Bucket:    p.bucketName,
		AccessURL: accessURL,
	}, nil
}

// Delete 删除对象
func (p *CloudflareR2Provider) Delete(objectKey string) error {
	_, err := p.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		logger.Error("删除CloudFlare R2对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return fmt.Errorf("删除CloudFlare R2对象失败: %w", err)
	}
	return nil
}

// AccessURL 生成访问URL
func (p *CloudflareR2Provider) AccessURL(objectKey string, expiration time.Duration, public bool) (string, error) {
	if public {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s/%s", p.config.AccountID, p.bucketName, objectKey), nil
	}
	return p.presignURL(objectKey, expiration)
}

// Object 获取对象内容
func (p *CloudflareR2Provider) Object(objectKey string) (io.ReadCloser, error) {
	resp, err := p.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		logger.Error("获取CloudFlare R2对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, fmt.Errorf("获取CloudFlare R2对象失败: %w", err)
	}
	return resp.Body, nil
}

// presignURL 生成预签名URL
func (p *CloudflareR2Provider) presignURL(objectKey string, expiration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(p.client)
	presignResult, err := presignClient.PresignGetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(objectKey),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiration
	})
	if err != nil {
		logger.Error("生成CloudFlare R2下载URL失败", zap.String("objectKey", objectKey), zap.Error(err))
		return "", fmt.Errorf("生成CloudFlare R2下载URL失败: %w", err)
	}
	return presignResult.URL, nil
}
