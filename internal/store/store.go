// Package store はSQLiteによる永続化レイヤーを提供します。
package store

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// User は登録済みユーザーの1行を表します。
// username は作成後に変更されず、削除経路も存在しません。
type User struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
}

// Task はToDo項目の1行を表します。
// 所有者 (UserID) は作成時に固定され、以後変更されません。
type Task struct {
	Sno         int64     `db:"sno"`
	Title       string    `db:"title"`
	Desc        string    `db:"desc"`
	DateCreated time.Time `db:"date_created"`
	UserID      int64     `db:"user_id"`
}

// Store はSQLiteデータベースへの接続を保持します。
type Store struct {
	db *sqlx.DB
}

// Open は指定パスのSQLiteデータベースを開き、スキーマを適用します。
// ファイルが存在しない場合は作成されます。何度呼んでも安全です。
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLiteは同時書き込みが1本のみのため接続を絞る
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close はデータベース接続を閉じます。
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// applyPragmas はSQLiteの動作設定を適用します。
func applyPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}
