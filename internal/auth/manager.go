package auth

import (
	"errors"
	"log"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yourusername/taskboard/internal/store"
	"github.com/yourusername/taskboard/internal/view"
)

const (
	SessionCookieName  = "tb_session"
	sessionKeySID      = "sid"
	sessionKeyIssuedAt = "issued_at"
)

const (
	usernameMinLen = 3
	usernameMaxLen = 20
	passwordMinLen = 3
	passwordMaxLen = 20
)

// ContextUserKey は、ハンドラー間でログイン済みユーザーIDを共有するためのキーです。
const ContextUserKey = "auth.user_id"

// invalidCredentialsMessage はログイン失敗時の共通メッセージです。
// ユーザー名の存在有無を推測されないよう、原因を区別しません。
const invalidCredentialsMessage = "ユーザー名またはパスワードが正しくありません"

// Manager は認証処理とセッション状態をまとめた構造体です。
type Manager struct {
	users    *store.Users
	hasher   PasswordHasher
	registry Registry
	ttl      time.Duration
	render   view.Renderer
}

// NewManager は認証マネージャーを作成します。
func NewManager(users *store.Users, hasher PasswordHasher, registry Registry, ttl time.Duration, render view.Renderer) *Manager {
	return &Manager{
		users:    users,
		hasher:   hasher,
		registry: registry,
		ttl:      ttl,
		render:   render,
	}
}

// SessionMaxAgeSeconds はクッキーの MaxAge に利用する秒数を返します。
func (m *Manager) SessionMaxAgeSeconds() int {
	return int(m.ttl.Seconds())
}

// Login は GET/POST /login のハンドラーです。
// GETはフォームを描画し、POSTは資格情報を検証してダッシュボードへリダイレクトします。
func (m *Manager) Login(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		m.render.LoginForm(c, http.StatusOK, view.FormVM{})
		return
	}

	username := c.PostForm("username")
	password := c.PostForm("password")

	if fieldErrors := validateCredentials(username, password); len(fieldErrors) > 0 {
		m.render.LoginForm(c, http.StatusBadRequest, view.FormVM{
			Username: username,
			Errors:   fieldErrors,
		})
		return
	}

	user, err := m.users.FindByUsername(c.Request.Context(), username)
	if err != nil {
		m.serverError(c, err)
		return
	}

	// 未知のユーザーとパスワード不一致は同一の応答にする
	if user == nil || !m.hasher.Check(password, user.PasswordHash) {
		m.render.LoginForm(c, http.StatusUnauthorized, view.FormVM{
			Username: username,
			Errors:   map[string]string{"credentials": invalidCredentialsMessage},
		})
		return
	}

	sid := uuid.NewString()
	if err := m.registry.Put(c.Request.Context(), sid, user.ID, m.ttl); err != nil {
		m.serverError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(sessionKeySID, sid)
	session.Set(sessionKeyIssuedAt, time.Now().Unix())
	if err := session.Save(); err != nil {
		m.serverError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Register は GET/POST /register のハンドラーです。
// ユーザー名重複時はフィールドエラー付きでフォームを再描画します。
func (m *Manager) Register(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		m.render.RegisterForm(c, http.StatusOK, view.FormVM{})
		return
	}

	username := c.PostForm("username")
	password := c.PostForm("password")

	if fieldErrors := validateCredentials(username, password); len(fieldErrors) > 0 {
		m.render.RegisterForm(c, http.StatusBadRequest, view.FormVM{
			Username: username,
			Errors:   fieldErrors,
		})
		return
	}

	if _, err := m.users.Register(c.Request.Context(), username, password); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			m.render.RegisterForm(c, http.StatusConflict, view.FormVM{
				Username: username,
				Errors: map[string]string{
					"username": "そのユーザー名は既に使われています。別の名前を選んでください",
				},
			})
			return
		}
		m.serverError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/login")
}

// Logout は GET/POST /logout のハンドラーです。
// レジストリから失効させるため、同じクッキーを再送してもAnonymous扱いになります。
func (m *Manager) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if sid, ok := session.Get(sessionKeySID).(string); ok && sid != "" {
		if err := m.registry.Revoke(c.Request.Context(), sid); err != nil {
			m.serverError(c, err)
			return
		}
	}

	session.Clear()
	if err := session.Save(); err != nil {
		m.serverError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/login")
}

// CurrentUser はリクエストからログイン済みユーザーIDを解決します。
// セッションなし・失効済み・レジストリ障害のいずれも (0, false) に畳みます。
func (m *Manager) CurrentUser(c *gin.Context) (int64, bool) {
	if id, ok := c.Get(ContextUserKey); ok {
		if userID, ok := id.(int64); ok {
			return userID, true
		}
	}

	session := sessions.Default(c)
	sid, ok := session.Get(sessionKeySID).(string)
	if !ok || sid == "" {
		return 0, false
	}

	userID, found, err := m.registry.Resolve(c.Request.Context(), sid)
	if err != nil {
		log.Printf("session resolve failed: %v", err)
		return 0, false
	}
	if !found {
		return 0, false
	}

	c.Set(ContextUserKey, userID)
	return userID, true
}

// RequireLogin はセッションを検証するミドルウェアを返します。
// 未ログインの場合はハンドラーを実行せずログイン画面へリダイレクトします。
func (m *Manager) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := m.CurrentUser(c); !ok {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (m *Manager) serverError(c *gin.Context, err error) {
	log.Printf("auth handler error: %v", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "処理中にエラーが発生しました",
	})
}

// validateCredentials はユーザー名とパスワードの形式を検証し、
// フィールド名をキーとするエラーを返します。
func validateCredentials(username, password string) map[string]string {
	fieldErrors := make(map[string]string)

	if n := utf8.RuneCountInString(username); n < usernameMinLen || n > usernameMaxLen {
		fieldErrors["username"] = "ユーザー名は3〜20文字で入力してください"
	}
	if n := utf8.RuneCountInString(password); n < passwordMinLen || n > passwordMaxLen {
		fieldErrors["password"] = "パスワードは3〜20文字で入力してください"
	}

	if len(fieldErrors) == 0 {
		return nil
	}
	return fieldErrors
}
