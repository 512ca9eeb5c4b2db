package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// ErrNotFound はタスクが存在しないか、呼び出し元の所有でない場合に返されます。
// 「存在しない」と「他人の所有」を呼び出し側が区別できないよう、あえて1つのエラーに畳んでいます。
var ErrNotFound = errors.New("task not found")

// taskColumns は todo テーブルのSELECT対象カラムです。
// desc はSQLの予約語のため引用符付きで扱います。
var taskColumns = []string{"sno", "title", `"desc"`, "date_created", "user_id"}

// Tasks はToDo項目のリポジトリです。すべての読み書きは所有者IDで絞り込まれます。
type Tasks struct {
	store *Store
}

// NewTasks は Tasks を作成します。
func NewTasks(store *Store) *Tasks {
	return &Tasks{store: store}
}

// Create は新しいタスクを作成します。date_created は現在時刻(UTC)で固定されます。
func (t *Tasks) Create(ctx context.Context, ownerID int64, title, desc string) (*Task, error) {
	now := time.Now().UTC()

	query, args, err := sq.Insert("todo").
		Columns("title", `"desc"`, "date_created", "user_id").
		Values(title, desc, now, ownerID).
		ToSql()
	if err != nil {
		return nil, err
	}

	result, err := t.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	sno, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &Task{
		Sno:         sno,
		Title:       title,
		Desc:        desc,
		DateCreated: now,
		UserID:      ownerID,
	}, nil
}

// ListByOwner は指定ユーザーのタスクを作成順 (sno昇順) で返します。
func (t *Tasks) ListByOwner(ctx context.Context, ownerID int64) ([]Task, error) {
	query, args, err := sq.Select(taskColumns...).
		From("todo").
		Where(sq.Eq{"user_id": ownerID}).
		OrderBy("sno ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	tasks := []Task{}
	if err := t.store.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// Get はタスクを1件取得します。行が存在しない場合だけでなく、
// 所有者が一致しない場合も (nil, nil) を返します。
func (t *Tasks) Get(ctx context.Context, sno, ownerID int64) (*Task, error) {
	query, args, err := sq.Select(taskColumns...).
		From("todo").
		Where(sq.Eq{"sno": sno, "user_id": ownerID}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var task Task
	if err := t.store.db.GetContext(ctx, &task, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query task: %w", err)
	}

	return &task, nil
}

// Update はタイトルと説明を上書きします。sno・所有者・作成日時は変わりません。
// 所有する行が見つからない場合は ErrNotFound を返します。
func (t *Tasks) Update(ctx context.Context, sno, ownerID int64, title, desc string) error {
	query, args, err := sq.Update("todo").
		Set("title", title).
		Set(`"desc"`, desc).
		Where(sq.Eq{"sno": sno, "user_id": ownerID}).
		ToSql()
	if err != nil {
		return err
	}

	result, err := t.store.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete はタスクを削除します。所有する行が存在しない場合は何もせず成功します。
func (t *Tasks) Delete(ctx context.Context, sno, ownerID int64) error {
	query, args, err := sq.Delete("todo").
		Where(sq.Eq{"sno": sno, "user_id": ownerID}).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := t.store.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	return nil
}

// Search はタイトルまたは説明に対する大文字小文字を区別しない部分一致検索です。
// 空のクエリは全件ではなく空の結果を返します（従来挙動の維持）。
func (t *Tasks) Search(ctx context.Context, ownerID int64, query string) ([]Task, error) {
	if query == "" {
		return []Task{}, nil
	}

	pattern := "%" + escapeLike(query) + "%"
	stmt, args, err := sq.Select(taskColumns...).
		From("todo").
		Where(sq.Eq{"user_id": ownerID}).
		Where(sq.Or{
			sq.Expr(`lower(title) LIKE lower(?) ESCAPE '\'`, pattern),
			sq.Expr(`lower("desc") LIKE lower(?) ESCAPE '\'`, pattern),
		}).
		OrderBy("sno ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	tasks := []Task{}
	if err := t.store.db.SelectContext(ctx, &tasks, stmt, args...); err != nil {
		return nil, fmt.Errorf("failed to search tasks: %w", err)
	}

	return tasks, nil
}

// escapeLike はLIKEパターンのメタ文字をエスケープします。
func escapeLike(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	)
	return replacer.Replace(s)
}
