// Package view はハンドラーが組み立てたビューモデルを応答として描画します。
// マークアップの生成は本体の契約外のため、既定実装はJSONで返します。
package view

import "time"

// TaskVM は1件のタスクの表示用モデルです。
type TaskVM struct {
	Sno         int64     `json:"sno"`
	Title       string    `json:"title"`
	Desc        string    `json:"desc"`
	DateCreated time.Time `json:"dateCreated"`
}

// FormVM はログイン・登録フォームの表示用モデルです。
// Errors はフィールド名をキーとするエラーメッセージです。
type FormVM struct {
	Username string            `json:"username"`
	Errors   map[string]string `json:"errors,omitempty"`
}

// DashboardVM はダッシュボードの表示用モデルです。
type DashboardVM struct {
	Tasks  []TaskVM          `json:"tasks"`
	Query  string            `json:"query,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// EditVM はタスク編集フォームの表示用モデルです。
type EditVM struct {
	Task   TaskVM            `json:"task"`
	Errors map[string]string `json:"errors,omitempty"`
}
