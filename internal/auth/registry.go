package auth

import (
	"context"
	"sync"
	"time"
)

// Registry はセッションIDとユーザーIDの対応をサーバー側で保持します。
// クッキーの署名だけではログアウト後のトークン再利用を防げないため、
// 失効はこのレジストリからの削除で行います。
type Registry interface {
	// Put はセッションを登録します。ttl 経過後は解決できなくなります。
	Put(ctx context.Context, sid string, userID int64, ttl time.Duration) error

	// Resolve はセッションIDからユーザーIDを引きます。
	// 未登録・失効済みの場合は (0, false, nil) を返します。
	Resolve(ctx context.Context, sid string) (int64, bool, error)

	// Revoke はセッションを失効させます。存在しない場合も成功します。
	Revoke(ctx context.Context, sid string) error
}

type memorySession struct {
	userID    int64
	expiresAt time.Time
}

// MemoryRegistry はプロセス内メモリによる Registry の実装です。
// 単一プロセス運用（開発・テスト）向けで、再起動で全セッションが失効します。
type MemoryRegistry struct {
	mu       sync.Mutex
	sessions map[string]memorySession
}

// NewMemoryRegistry は MemoryRegistry を作成します。
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		sessions: make(map[string]memorySession),
	}
}

// Put はセッションを登録します。
func (r *MemoryRegistry) Put(_ context.Context, sid string, userID int64, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sid] = memorySession{
		userID:    userID,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Resolve はセッションIDからユーザーIDを引きます。
func (r *MemoryRegistry) Resolve(_ context.Context, sid string) (int64, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sid]
	if !ok {
		return 0, false, nil
	}
	if time.Now().After(session.expiresAt) {
		delete(r.sessions, sid)
		return 0, false, nil
	}
	return session.userID, true, nil
}

// Revoke はセッションを失効させます。
func (r *MemoryRegistry) Revoke(_ context.Context, sid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sid)
	return nil
}
