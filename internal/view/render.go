package view

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Renderer はビューモデルを受け取って応答を組み立てる境界インターフェースです。
// HTMLレンダラーへの差し替えは、このインターフェースの実装追加で行います。
type Renderer interface {
	Landing(c *gin.Context)
	LoginForm(c *gin.Context, status int, vm FormVM)
	RegisterForm(c *gin.Context, status int, vm FormVM)
	Dashboard(c *gin.Context, status int, vm DashboardVM)
	EditForm(c *gin.Context, status int, vm EditVM)
}

// JSONRenderer は各ビューをJSONとして描画します。
type JSONRenderer struct{}

// NewJSONRenderer は JSONRenderer を作成します。
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{}
}

// Landing はトップページを描画します。
func (r *JSONRenderer) Landing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"view":    "home",
		"service": "taskboard",
	})
}

// LoginForm はログインフォームを描画します。
func (r *JSONRenderer) LoginForm(c *gin.Context, status int, vm FormVM) {
	c.JSON(status, gin.H{
		"view":     "login",
		"username": vm.Username,
		"errors":   vm.Errors,
	})
}

// RegisterForm は登録フォームを描画します。
func (r *JSONRenderer) RegisterForm(c *gin.Context, status int, vm FormVM) {
	c.JSON(status, gin.H{
		"view":     "register",
		"username": vm.Username,
		"errors":   vm.Errors,
	})
}

// Dashboard はタスク一覧を描画します。
func (r *JSONRenderer) Dashboard(c *gin.Context, status int, vm DashboardVM) {
	c.JSON(status, gin.H{
		"view":   "dashboard",
		"tasks":  vm.Tasks,
		"query":  vm.Query,
		"errors": vm.Errors,
	})
}

// EditForm はタスク編集フォームを描画します。
func (r *JSONRenderer) EditForm(c *gin.Context, status int, vm EditVM) {
	c.JSON(status, gin.H{
		"view":   "update",
		"task":   vm.Task,
		"errors": vm.Errors,
	})
}
