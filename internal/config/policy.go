package config

import (
	"fmt"
	"path/filepath"

	"github.com/myysophia/filehub-backend/internal/policy"
	"github.com/spf13/viper"
)

// LoadPolicyOverride 加载上传策略覆盖配置
// 查找 configPath 目录下的 policy.yaml，文件不存在时返回 nil（使用内置默认策略）
// 同样支持 policy.<env>.yaml 环境覆盖
func LoadPolicyOverride(configPath string, env string) (*policy.Override, error) {
	if env == "" {
		env = "dev"
	}

	policyFile := filepath.Join(configPath, "policy.yaml")
	if !fileExists(policyFile) {
		return nil, nil
	}

	v := viper.New()
	v.SetConfigFile(policyFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取策略配置文件失败: %w", err)
	}

	envFile := filepath.Join(configPath, fmt.Sprintf("policy.%s.yaml", env))
	if fileExists(envFile) {
		envViper := viper.New()
		envViper.SetConfigFile(envFile)

		if err := envViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取环境策略配置文件失败: %w", err)
		}

		if err := v.MergeConfigMap(envViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("合并环境策略配置失败: %w", err)
		}
	}

	override := &policy.Override{}
	if err := v.Unmarshal(override); err != nil {
		return nil, fmt.Errorf("解析策略配置文件失败: %w", err)
	}

	return override, nil
}
