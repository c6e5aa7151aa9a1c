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

// AWSS3Provider AWS S3存储后端
type AWSS3Provider struct {
	client     *s3.Client
	config     *config.AWSS3Config
	bucketName string
	uploadDir  string
}

// NewAWSS3Provider 创建AWS S3存储后端
func NewAWSS3Provider(cfg *config.AWSS3Config) (*AWSS3Provider, error) {
	// 创建AWS凭证
	creds := credentials.NewStaticCredentialsProvider(
		cfg.AccessKeyID,
		cfg.SecretAccessKey,
		"",
	)

	// 创建AWS配置
	awsCfg, err := awsconfig.LoadDefaultConfig(
		context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		logger.Error("创建AWS配置失败", zap.Error(err))
		return nil, fmt.Errorf("创建AWS配置失败: %w", err)
	}

	// 创建S3客户端
	client := s3.NewFromConfig(awsCfg)

	return &AWSS3Provider{
		client:     client,
		config:     cfg,
		bucketName: cfg.Bucket,
		uploadDir:  cfg.UploadDir,
	}, nil
}

// GetName 获取存储后端名称
func (p *AWSS3Provider) GetName() string {
	return "AWS S3"
}

// GetType 获取存储后端类型
func (p *AWSS3Provider) GetType() string {
	return ProviderAWSS3
}

// GetBucketName 获取存储桶名称
func (p *AWSS3Provider) GetBucketName() string {
	return p.bucketName
}

// getObjectKey 获取对象键
func (p *AWSS3Provider) getObjectKey(filename string) string {
	return path.Join(p.uploadDir, filename)
}

// Store 上传对象
func (p *AWSS3Provider) Store(file io.Reader, objectKey string) (*StoreResult, error) {
	fullObjectKey := p.getObjectKey(objectKey)

	// 上传文件
	_, err := p.client.PutObject(context.Background(), &s3.PutObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(fullObjectKey),
		Body:   file,
	})
	if err != nil {
		logger.Error("AWS S3上传文件失败", zap.String("objectKey", fullObjectKey), zap.Error(err))
		return nil, fmt.Errorf("上传文件到AWS S3失败: %w", err)
	}

	// 生成预签名URL
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
// S3 对不存在的对象键也返回成功，天然幂等
func (p *AWSS3Provider) Delete(objectKey string) error {
	_, err := p.client.DeleteObject(context.Background(), &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		logger.Error("删除AWS S3对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return fmt.Errorf("删除AWS S3对象失败: %w", err)
	}
	return nil
}

// AccessURL 生成访问URL
func (p *AWSS3Provider) AccessURL(objectKey string, expiration time.Duration, public bool) (string, error) {
	if public {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucketName, p.config.Region, objectKey), nil
	}
	return p.presignURL(objectKey, expiration)
}

// Object 获取对象内容
func (p *AWSS3Provider) Object(objectKey string) (io.ReadCloser, error) {
	resp, err := p.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		logger.Error("获取AWS S3对象失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, fmt.Errorf("获取AWS S3对象失败: %w", err)
	}
	return resp.Body, nil
}

// presignURL 生成预签名URL
func (p *AWSS3Provider) presignURL(objectKey string, expiration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(p.client)
	presignResult, err := presignClient.PresignGetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(objectKey),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiration
	})
	if err != nil {
		logger.Error("生成AWS S3下载URL失败", zap.String("objectKey", objectKey), zap.Error(err))
		return "", fmt.Errorf("生成AWS S3下载URL失败: %w", err)
	}
	return presignResult.URL, nil
}
