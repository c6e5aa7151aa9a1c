package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	JWT      JWTConfig
	Database DatabaseConfig
	Log      LogConfig
	Storage  StorageConfig
}

type AppConfig struct {
	Name          string
	Env           string
	Host          string
	Port          int
	ReadTimeout   int    `mapstructure:"read_timeout"`
	WriteTimeout  int    `mapstructure:"write_timeout"`
	IdleTimeout   int    `mapstructure:"idle_timeout"`
	UploadTempDir string `mapstructure:"upload_temp_dir"`
	Workers       int    `mapstructure:"workers"` // MD5计算的工作协程数量
}

type JWTConfig struct {
	SecretKey string `mapstructure:"secret_key"`
	ExpiresIn int    `mapstructure:"expires_in"`
	Issuer    string
}

type DatabaseConfig struct {
	Driver          string
	Host            string
	Port            int
	Username        string
	Password        string
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type LogConfig struct {
	Level    string
	Format   string
	Output   string
	FilePath string `mapstructure:"file_path"`
}

// StorageConfig 各存储后端的连接配置
type StorageConfig struct {
	Default      string             `mapstructure:"default"`
	Local        LocalConfig        `mapstructure:"local"`
	AWSS3        AWSS3Config        `mapstructure:"aws_s3"`
	AliyunOSS    AliyunOSSConfig    `mapstructure:"aliyun_oss"`
	CloudflareR2 CloudflareR2Config `mapstructure:"cloudflare_r2"`
}

// LocalConfig 本地文件系统存储配置
type LocalConfig struct {
	BaseDir   string `mapstructure:"base_dir"`
	BaseURL   string `mapstructure:"base_url"`
	UploadDir string `mapstructure:"upload_dir"`
}

type AWSS3Config struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string
	Bucket          string
	UploadDir       string `mapstructure:"upload_dir"`
	URLExpireTime   int    `mapstructure:"url_expire_time"`
}

type AliyunOSSConfig struct {
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Endpoint        string
	Bucket          string
	Region          string
	UploadDir       string `mapstructure:"upload_dir"`
	URLExpireTime   int    `mapstructure:"url_expire_time"`
}

type CloudflareR2Config struct {
	AccountID       string `mapstructure:"account_id"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string
	UploadDir       string `mapstructure:"upload_dir"`
	URLExpireTime   int    `mapstructure:"url_expire_time"`
}

// LoadConfig 根据环境加载配置文件
// 支持传入目录（会自动寻找目录下的 app.yaml）或者特定配置文件路径
// env 参数可选："dev", "test", "prod"，默认为 "dev"
func LoadConfig(configPath string, env string) (*Config, error) {
	if env == "" {
		env = "dev" // 默认使用开发环境
	}

	v := viper.New()

	// 尝试多个可能的配置路径
	configPaths := []string{
		configPath,      // 原始传入路径
		"./configs",     // 相对于运行目录
		"../configs",    // 上一级目录
		"../../configs", // 上两级目录
	}

	configFound := false
	for _, path := range configPaths {
		if isDir(path) {
			baseConfigFile := filepath.Join(path, "app.yaml")
			if fileExists(baseConfigFile) {
				v.AddConfigPath(path)
				v.SetConfigName("app")
				configFound = true
				break
			}
		} else if fileExists(path) {
			v.SetConfigFile(path)
			configFound = true
			break
		}
	}

	if !configFound {
		return nil, fmt.Errorf("无法找到配置文件，已尝试路径: %v", configPaths)
	}

	v.AutomaticEnv()

	// 读取基本配置
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取基本配置文件失败: %w", err)
	}

	// 读取环境特定配置并合并
	configDir := filepath.Dir(v.ConfigFileUsed())
	envConfigFile := fmt.Sprintf("%s/app.%s.yaml", configDir, env)
	if fileExists(envConfigFile) {
		envViper := viper.New()
		envViper.SetConfigFile(envConfigFile)

		if err := envViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取环境配置文件失败: %w", err)
		}

		if err := v.MergeConfigMap(envViper.AllSettings()); err != nil {
			return nil, fmt.Errorf("合并环境配置失败: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 加载存储后端配置
	storageConfigFile := filepath.Join(configDir, "storage.yaml")
	if fileExists(storageConfigFile) {
		storageViper := viper.New()
		storageViper.SetConfigFile(storageConfigFile)

		if err := storageViper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取存储配置文件失败: %w", err)
		}

		// 尝试加载环境特定的存储配置
		storageEnvConfigFile := fmt.Sprintf("%s/storage.%s.yaml", configDir, env)
		if fileExists(storageEnvConfigFile) {
			storageEnvViper := viper.New()
			storageEnvViper.SetConfigFile(storageEnvConfigFile)

			if err := storageEnvViper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("读取环境存储配置文件失败: %w", err)
			}

			if err := storageViper.MergeConfigMap(storageEnvViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("合并环境存储配置失败: %w", err)
			}
		}

		if err := storageViper.Unmarshal(&config.Storage); err != nil {
			return nil, fmt.Errorf("解析存储配置文件失败: %w", err)
		}
	}

	return config, nil
}

// 检查是否是目录
func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// 检查文件是否存在
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode)
}

// GetConnMaxLifetime 获取数据库连接最大生命周期
func (c *DatabaseConfig) GetConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetime) * time.Second
}

// GetJWTExpiration 获取 JWT 过期时间
func (c *JWTConfig) GetJWTExpiration() time.Duration {
	return time.Duration(c.ExpiresIn) * time.Second
}

// GetURLExpiration 获取对象存储 URL 过期时间
func (c *AWSS3Config) GetURLExpiration() time.Duration {
	return time.Duration(c.URLExpireTime) * time.Second
}

func (c *AliyunOSSConfig) GetURLExpiration() time.Duration {
	return time.Duration(c.URLExpireTime) * time.Second
}

func (c *CloudflareR2Config) GetURLExpiration() time.Duration {
	return time.Duration(c.URLExpireTime) * time.Second
}
