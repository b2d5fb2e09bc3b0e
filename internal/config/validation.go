package config

import (
	"errors"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	if c.ListenPort <= 0 || c.ListenPort > 65535 {
		return newFieldError("ListenPort", "必须在 1-65535")
	}
	if c.CachePath == "" {
		return newFieldError("CachePath", "不能为空")
	}
	if c.SessionsPath == "" {
		return newFieldError("SessionsPath", "不能为空")
	}
	if c.DefaultAsset == "" || strings.ContainsAny(c.DefaultAsset, `/\`) {
		return newFieldError("DefaultAsset", "必须是不含路径分隔符的文件名")
	}
	if c.AssetTimeout.DurationValue() <= 0 {
		return newFieldError("AssetTimeout", "必须大于 0")
	}
	if c.RemoteTimeout.DurationValue() <= 0 {
		return newFieldError("RemoteTimeout", "必须大于 0")
	}
	if c.DelayMin.DurationValue() < 0 || c.DelayMax.DurationValue() < 0 {
		return newFieldError("DelayMin/DelayMax", "不能为负数")
	}
	if c.DelayMax.DurationValue() < c.DelayMin.DurationValue() {
		return newFieldError("DelayMax", "不能小于 DelayMin")
	}

	if err := validateRemoteBaseURL(c.RemoteBaseURL); err != nil {
		return err
	}

	return nil
}

func validateRemoteBaseURL(raw string) error {
	if raw == "" {
		return newFieldError("RemoteBaseURL", "不能为空")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return newFieldError("RemoteBaseURL", "不是合法的 URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return newFieldError("RemoteBaseURL", "仅支持 http/https")
	}
	if parsed.Host == "" {
		return newFieldError("RemoteBaseURL", "缺少主机名")
	}
	return nil
}
