package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/mattn/go-sqlite3"
)

// ErrDuplicateUsername は同名ユーザーが既に存在する場合に返されます。
var ErrDuplicateUsername = errors.New("username already taken")

// PasswordHasher は平文パスワードから保存用ハッシュを生成します。
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// Users はユーザー資格情報のリポジトリです。
// 更新・削除の操作は意図的に公開していません。
type Users struct {
	store  *Store
	hasher PasswordHasher
}

// NewUsers は Users を作成します。
func NewUsers(store *Store, hasher PasswordHasher) *Users {
	return &Users{
		store:  store,
		hasher: hasher,
	}
}

// Register はパスワードをハッシュ化して新規ユーザーを登録します。
// ユーザー名が既に使われている場合は ErrDuplicateUsername を返します。
// 重複判定はUNIQUE制約に任せるため、事前SELECTによる競合窓はありません。
func (u *Users) Register(ctx context.Context, username, password string) (*User, error) {
	hash, err := u.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	query, args, err := sq.Insert("user").
		Columns("username", "password_hash").
		Values(username, hash).
		ToSql()
	if err != nil {
		return nil, err
	}

	result, err := u.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &User{
		ID:           id,
		Username:     username,
		PasswordHash: hash,
	}, nil
}

// FindByUsername はユーザー名でユーザーを検索します。
// 該当なしの場合は (nil, nil) を返します。
func (u *Users) FindByUsername(ctx context.Context, username string) (*User, error) {
	query, args, err := sq.Select("id", "username", "password_hash").
		From("user").
		Where(sq.Eq{"username": username}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := u.store.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	return &user, nil
}
