package storage

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/myysophia/filehub-backend/internal/config"
	"github.com/myysophia/filehub-backend/internal/logger"
	"go.uber.org/zap"
)

// LocalProvider 本地文件系统存储
type LocalProvider struct {
	baseDir   string
	baseURL   string
	uploadDir string
}

// NewLocalProvider 创建本地文件系统存储
func NewLocalProvider(cfg *config.LocalConfig) (*LocalProvider, error) {
	baseDir := cfg.BaseDir
	if baseDir == "" {
		baseDir = "data/uploads"
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建本地存储目录失败: %w", err)
	}

	return &LocalProvider{
		baseDir:   baseDir,
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		uploadDir: cfg.UploadDir,
	}, nil
}

// GetName 获取存储后端名称
func (p *LocalProvider) GetName() string {
	return "本地存储"
}

// GetType 获取存储后端类型
func (p *LocalProvider) GetType() string {
	return ProviderLocal
}

// GetBucketName 获取存储桶名称，本地存储返回根目录
func (p *LocalProvider) GetBucketName() string {
	return p.baseDir
}

// getObjectKey 获取对象键
func (p *LocalProvider) getObjectKey(filename string) string {
	return path.Join(p.uploadDir, filename)
}

// fullPath 对象键对应的磁盘路径
func (p *LocalProvider) fullPath(objectKey string) string {
	return filepath.Join(p.baseDir, filepath.FromSlash(objectKey))
}

// Store 写入文件到本地磁盘
func (p *LocalProvider) Store(file io.Reader, objectKey string) (*StoreResult, error) {
	fullObjectKey := p.getObjectKey(objectKey)
	target := p.fullPath(fullObjectKey)

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		logger.Error("创建本地存储子目录失败", zap.String("objectKey", fullObjectKey), zap.Error(err))
		return nil, fmt.Errorf("创建本地存储子目录失败: %w", err)
	}

	dst, err := os.Create(target)
	if err != nil {
		logger.Error("创建本地文件失败", zap.String("objectKey", fullObjectKey), zap.Error(err))
		return nil, fmt.Errorf("创建本地文件失败: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		// 写入失败时清理残留文件
		_ = os.Remove(target)
		logger.Error("写入本地文件失败", zap.String("objectKey", fullObjectKey), zap.Error(err))
		return nil, fmt.Errorf("写入本地文件失败: %w", err)
	}

	return &StoreResult{
		ObjectKey: fullObjectKey,
		Bucket:    p.baseDir,
		AccessURL: p.stableURL(fullObjectKey),
	}, nil
}

// Delete 删除本地文件，文件不存在时不报错
func (p *LocalProvider) Delete(objectKey string) error {
	err := os.Remove(p.fullPath(objectKey))
	if err != nil && !os.IsNotExist(err) {
		logger.Error("删除本地文件失败", zap.String("objectKey", objectKey), zap.Error(err))
		return fmt.Errorf("删除本地文件失败: %w", err)
	}
	return nil
}

// AccessURL 生成访问URL
// 本地存储由应用静态路由提供服务，公开与私有均返回稳定URL
func (p *LocalProvider) AccessURL(objectKey string, expiration time.Duration, public bool) (string, error) {
	return p.stableURL(objectKey), nil
}

// Object 获取文件内容
func (p *LocalProvider) Object(objectKey string) (io.ReadCloser, error) {
	f, err := os.Open(p.fullPath(objectKey))
	if err != nil {
		logger.Error("读取本地文件失败", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, fmt.Errorf("读取本地文件失败: %w", err)
	}
	return f, nil
}

// stableURL 应用静态路由下的稳定URL
func (p *LocalProvider) stableURL(objectKey string) string {
	escaped := url.PathEscape(objectKey)
	// PathEscape 会转义路径分隔符，这里还原
	escaped = strings.ReplaceAll(escaped, "%2F", "/")
	if p.baseURL == "" {
		return "/static/" + escaped
	}
	return p.baseURL + "/" + escaped
}
