package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// OpFields 提供 identity/operation 字段，供账号操作日志复用。
func OpFields(identity, operation string) logrus.Fields {
	return logrus.Fields{
		"identity":  identity,
		"operation": operation,
	}
}

// CacheFields 提供缓存键与来源 URL 字段，供缓存命中/回源日志复用。
func CacheFields(key, sourceURL string, hit bool) logrus.Fields {
	return logrus.Fields{
		"cache_key": key,
		"source":    sourceURL,
		"cache_hit": hit,
	}
}
