package storage

import (
	"fmt"
	"sync"

	"github.com/myysophia/filehub-backend/internal/config"
	"github.com/myysophia/filehub-backend/internal/logger"
	"go.uber.org/zap"
)

// DefaultFactory 默认存储后端工厂
type DefaultFactory struct {
	storageConfig *config.StorageConfig
	providerCache map[string]Provider
	lock          sync.RWMutex
}

// NewFactory 创建存储后端工厂
func NewFactory(storageConfig *config.StorageConfig) *DefaultFactory {
	return &DefaultFactory{
		storageConfig: storageConfig,
		providerCache: make(map[string]Provider),
	}
}

// GetProvider 按存储类型获取后端
// 未知的存储类型是配置错误，不做静默回退
func (f *DefaultFactory) GetProvider(providerType string) (Provider, error) {
	// 先从缓存中获取
	f.lock.RLock()
	provider, ok := f.providerCache[providerType]
	f.lock.RUnlock()
	if ok {
		return provider, nil
	}

	f.lock.Lock()
	defer f.lock.Unlock()

	// 再次检查，防止在获取锁的过程中被其他协程创建
	provider, ok = f.providerCache[providerType]
	if ok {
		return provider, nil
	}

	var err error
	switch providerType {
	case ProviderLocal:
		provider, err = NewLocalProvider(&f.storageConfig.Local)
	case ProviderAWSS3:
		provider, err = NewAWSS3Provider(&f.storageConfig.AWSS3)
	case ProviderAliyunOSS:
		provider, err = NewAliyunOSSProvider(&f.storageConfig.AliyunOSS)
	case ProviderCDN:
		provider, err = NewCloudflareR2Provider(&f.storageConfig.CloudflareR2)
	default:
		return nil, fmt.Errorf("不支持的存储类型: %s", providerType)
	}

	if err != nil {
		logger.Error("创建存储后端失败", zap.String("providerType", providerType), zap.Error(err))
		return nil, err
	}

	f.providerCache[providerType] = provider
	return provider, nil
}

// GetDefaultProvider 获取默认后端，未配置时使用本地存储
func (f *DefaultFactory) GetDefaultProvider() (Provider, error) {
	providerType := f.storageConfig.Default
	if providerType == "" {
		providerType = ProviderLocal
	}
	return f.GetProvider(providerType)
}

// ClearCache 清除缓存
func (f *DefaultFactory) ClearCache() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.providerCache = make(map[string]Provider)
}
