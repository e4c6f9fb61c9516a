// Package storage はストアフロントクライアントの永続KVストア。
// ブラウザのlocalStorage相当（固定キーでget/set/delete、リロード後も残る）。
package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// キーが存在しないときの統一エラー
var ErrKeyNotFound = errors.New("key not found")

// Store は固定キーのget/set/deleteを約束する。
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// FileStore はキーごとに1ファイルで保存する実装。
type FileStore struct {
	dir string
}

// NewFileStore は保存先ディレクトリを作ってFileStoreを返す。
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) Get(key string) ([]byte, error) {
	b, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// 書き込みは一時ファイル経由で置き換える（書きかけのファイルを残さない）
func (s *FileStore) Set(key string, value []byte) error {
	tmp := s.path(key) + ".tmp"
	if err := os.WriteFile(tmp, value, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(key))
}

func (s *FileStore) Delete(key string) error {
	err := os.Remove(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// キーをそのままファイル名にする（パス区切りだけ潰す）
func (s *FileStore) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_").Replace(key)
	return filepath.Join(s.dir, safe)
}
