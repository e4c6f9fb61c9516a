package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore はRedisをバックエンドにするStore実装。
// 端末をまたいでカートを引き継ぎたい場合に使う。
type RedisStore struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisStore は接続済みクライアントを包んで返す。
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, ctx: context.Background()}
}

func (s *RedisStore) Get(key string) ([]byte, error) {
	b, err := s.client.Get(s.ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *RedisStore) Set(key string, value []byte) error {
	//有効期限なし（明示的にクリアされるまで残す）
	return s.client.Set(s.ctx, key, value, 0).Err()
}

func (s *RedisStore) Delete(key string) error {
	return s.client.Del(s.ctx, key).Err()
}
