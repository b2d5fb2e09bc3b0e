package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		ListenPort:    8000,
		LogLevel:      "info",
		CachePath:     "./cache",
		DefaultAsset:  "default.png",
		AssetTimeout:  Duration(5 * time.Second),
		SessionsPath:  "./sessions",
		RemoteBaseURL: "https://api.example.com",
		RemoteTimeout: Duration(30 * time.Second),
		DelayMin:      Duration(time.Second),
		DelayMax:      Duration(3 * time.Second),
	}
}
