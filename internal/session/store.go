// Package session 管理每个账号登录态的磁盘持久化：一个账号一个 blob 文件，
// 内容对本包完全不透明（格式归远端客户端所有），本包只负责生命周期。
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound 表示该账号没有持久化会话，属于正常状态而非错误。
var ErrNotFound = errors.New("session blob not found")

// Store 以 identity 为键保存会话 blob，写入采用临时文件 + rename。
type Store struct {
	dir string
}

// NewStore 确保会话目录存在并返回 Store。
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("sessions dir required")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve sessions dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Load 读取账号的会话 blob；不存在时返回 ErrNotFound。
func (s *Store) Load(identity string) ([]byte, error) {
	path, err := s.path(identity)
	if err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return blob, nil
}

// Save 原子化写入会话 blob，覆盖任何旧内容。
func (s *Store) Save(identity string, blob []byte) error {
	path, err := s.path(identity)
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(s.dir, ".session-*")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()

	_, writeErr := tempFile.Write(blob)
	closeErr := tempFile.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tempName)
		return writeErr
	}

	if err := os.Rename(tempName, path); err != nil {
		os.Remove(tempName)
		return err
	}
	return nil
}

// Drop 删除账号的持久化会话；文件不存在视为成功。
func (s *Store) Drop(identity string) error {
	path, err := s.path(identity)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// path 校验 identity 不能携带路径语义，防止逃出会话目录。
func (s *Store) path(identity string) (string, error) {
	if identity == "" {
		return "", errors.New("identity required")
	}
	if strings.ContainsAny(identity, `/\`) || identity == "." || identity == ".." {
		return "", fmt.Errorf("invalid identity: %q", identity)
	}
	return filepath.Join(s.dir, identity+".json"), nil
}
