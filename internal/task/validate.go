// Package task はToDo項目に関するHTTPハンドラーを提供します。
package task

import (
	"strings"
	"unicode/utf8"
)

const (
	titleMaxLen = 200
	descMaxLen  = 500
)

// validateForm はタスクフォームの入力を検証し、
// フィールド名をキーとするエラーを返します。問題がなければ nil です。
func validateForm(title, desc string) map[string]string {
	fieldErrors := make(map[string]string)

	if strings.TrimSpace(title) == "" {
		fieldErrors["title"] = "タイトルを入力してください"
	} else if utf8.RuneCountInString(title) > titleMaxLen {
		fieldErrors["title"] = "タイトルは200文字以内で入力してください"
	}

	if strings.TrimSpace(desc) == "" {
		fieldErrors["desc"] = "説明を入力してください"
	} else if utf8.RuneCountInString(desc) > descMaxLen {
		fieldErrors["desc"] = "説明は500文字以内で入力してください"
	}

	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}
