package config

import (
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	LDAP     LDAPConfig     `mapstructure:"ldap"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// 目录服务(Active Directory)连接配置
type LDAPConfig struct {
	Enabled      bool     `mapstructure:"enabled"`
	Server       string   `mapstructure:"server"`
	Port         int      `mapstructure:"port"`
	BaseDN       string   `mapstructure:"base_dn"`
	BindDN       string   `mapstructure:"bind_dn"`
	BindPassword string   `mapstructure:"bind_password"`
	UserFilter   string   `mapstructure:"user_filter"` // 例如 "(sAMAccountName=%s)"
	AdminGroups  []string `mapstructure:"admin_groups"`
	SkipVerify   bool     `mapstructure:"skip_verify"` // 跳过LDAPS证书校验(仅开发环境)
}

type StorageConfig struct {
	Root        string `mapstructure:"root"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Production bool   `mapstructure:"production"`
}

var GlobalConfig Config

func Init() error {
	return load("config")
}

// 测试用的配置文件
func InitTest() error {
	return load("config.test")
}

func load(name string) error {
	// 获取项目根目录
	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(filepath.Dir(filepath.Dir(b)))

	viper.SetConfigName(name)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(filepath.Join(basepath, "config"))

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if GlobalConfig.LDAP.UserFilter == "" {
		GlobalConfig.LDAP.UserFilter = "(sAMAccountName=%s)"
	}
	if GlobalConfig.Storage.MaxFileSize <= 0 {
		GlobalConfig.Storage.MaxFileSize = 500 * 1024 * 1024 // 默认500MB
	}

	return nil
}
