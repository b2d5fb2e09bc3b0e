package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if parsed, err := time.ParseDuration(raw); err == nil {
		*d = Duration(parsed)
		return nil
	}

	if intVal, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// Config 是 TOML 文件映射的整体结构，单实例服务不再分组。
type Config struct {
	ListenPort    int    `mapstructure:"ListenPort"`
	LogLevel      string `mapstructure:"LogLevel"`
	LogFilePath   string `mapstructure:"LogFilePath"`
	LogMaxSize    int    `mapstructure:"LogMaxSize"`
	LogMaxBackups int    `mapstructure:"LogMaxBackups"`
	LogCompress   bool   `mapstructure:"LogCompress"`

	// CachePath 为媒体缓存目录，DefaultAsset 是缓存失败时的兜底文件名。
	CachePath    string   `mapstructure:"CachePath"`
	DefaultAsset string   `mapstructure:"DefaultAsset"`
	AssetTimeout Duration `mapstructure:"AssetTimeout"`

	// SessionsPath 保存每个账号的持久化会话 blob，一个账号一个文件。
	SessionsPath string `mapstructure:"SessionsPath"`

	// 远端账号 API 的访问参数；DelayMin/DelayMax 是请求间的随机限速区间。
	RemoteBaseURL string   `mapstructure:"RemoteBaseURL"`
	RemoteTimeout Duration `mapstructure:"RemoteTimeout"`
	DelayMin      Duration `mapstructure:"DelayMin"`
	DelayMax      Duration `mapstructure:"DelayMax"`
}
