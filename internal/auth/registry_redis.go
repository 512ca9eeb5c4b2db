package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// sessionRecord はRedisに保存するセッション情報です。
type sessionRecord struct {
	UserID   int64     `json:"userId"`
	IssuedAt time.Time `json:"issuedAt"`
}

// RedisRegistry はRedisによる Registry の実装です。
// プロセス再起動をまたいでセッションを維持したい場合に使用します。
type RedisRegistry struct {
	rdb *redis.Client
}

// NewRedisRegistry は RedisRegistry を作成します。
func NewRedisRegistry(rdb *redis.Client) *RedisRegistry {
	return &RedisRegistry{rdb: rdb}
}

// Put はセッションを登録します。TTLはRedisのキー失効に任せます。
func (r *RedisRegistry) Put(ctx context.Context, sid string, userID int64, ttl time.Duration) error {
	if sid == "" {
		return fmt.Errorf("sid is required")
	}

	payload, err := json.Marshal(sessionRecord{
		UserID:   userID,
		IssuedAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return r.rdb.Set(ctx, sessionKey(sid), payload, ttl).Err()
}

// Resolve はセッションIDからユーザーIDを引きます。
func (r *RedisRegistry) Resolve(ctx context.Context, sid string) (int64, bool, error) {
	if sid == "" {
		return 0, false, nil
	}

	data, err := r.rdb.Get(ctx, sessionKey(sid)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return 0, false, nil
		}
		return 0, false, err
	}

	var record sessionRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return 0, false, err
	}
	return record.UserID, true, nil
}

// Revoke はセッションを失効させます。
func (r *RedisRegistry) Revoke(ctx context.Context, sid string) error {
	return r.rdb.Del(ctx, sessionKey(sid)).Err()
}

func sessionKey(sid string) string {
	return sessionKeyPrefix + sid
}
