package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 路径统一转绝对路径，避免工作目录变化导致缓存/会话漂移。
	absCache, err := filepath.Abs(cfg.CachePath)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.CachePath = absCache

	absSessions, err := filepath.Abs(cfg.SessionsPath)
	if err != nil {
		return nil, fmt.Errorf("无法解析会话目录: %w", err)
	}
	cfg.SessionsPath = absSessions

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 8000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 50)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("CachePath", "./cache")
	v.SetDefault("DefaultAsset", "default.png")
	v.SetDefault("AssetTimeout", "5s")
	v.SetDefault("SessionsPath", "./sessions")
	v.SetDefault("RemoteTimeout", "30s")
	v.SetDefault("DelayMin", "1s")
	v.SetDefault("DelayMax", "3s")
}

func applyDefaults(c *Config) {
	if c.ListenPort == 0 {
		c.ListenPort = 8000
	}
	if c.DefaultAsset == "" {
		c.DefaultAsset = "default.png"
	}
	if c.AssetTimeout.DurationValue() == 0 {
		c.AssetTimeout = Duration(5 * time.Second)
	}
	if c.RemoteTimeout.DurationValue() == 0 {
		c.RemoteTimeout = Duration(30 * time.Second)
	}
	if c.DelayMin.DurationValue() == 0 && c.DelayMax.DurationValue() == 0 {
		c.DelayMin = Duration(time.Second)
		c.DelayMax = Duration(3 * time.Second)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
