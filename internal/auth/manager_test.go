package auth

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/taskboard/internal/store"
	"github.com/yourusername/taskboard/internal/view"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hasher := NewBcryptHasher(bcrypt.MinCost)
	users := store.NewUsers(db, hasher)
	manager := NewManager(users, hasher, NewMemoryRegistry(), time.Hour, view.NewJSONRenderer())

	router := gin.New()
	router.Use(sessions.Sessions(SessionCookieName, cookie.NewStore([]byte("test-secret"))))
	router.GET("/login", manager.Login)
	router.POST("/login", manager.Login)
	router.GET("/register", manager.Register)
	router.POST("/register", manager.Register)
	router.GET("/logout", manager.RequireLogin(), manager.Logout)
	router.GET("/dashboard", manager.RequireLogin(), func(c *gin.Context) {
		userID, _ := manager.CurrentUser(c)
		c.JSON(http.StatusOK, gin.H{"userId": userID})
	})

	return router, manager
}

func postForm(router *gin.Engine, path string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func getPath(router *gin.Engine, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerUser(t *testing.T, router *gin.Engine, username, password string) {
	t.Helper()
	rec := postForm(router, "/register", url.Values{
		"username": {username},
		"password": {password},
	}, nil)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("register failed: status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestLoginSuccessRedirectsToDashboard(t *testing.T) {
	router, _ := newTestRouter(t)
	registerUser(t, router, "alice", "secret1")

	rec := postForm(router, "/login", url.Values{
		"username": {"alice"},
		"password": {"secret1"},
	}, nil)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/dashboard" {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatal("expected a session cookie")
	}
}

func TestLoginFailureIsUndifferentiated(t *testing.T) {
	router, _ := newTestRouter(t)
	registerUser(t, router, "alice", "secret1")

	wrongPassword := postForm(router, "/login", url.Values{
		"username": {"alice"},
		"password": {"nope123"},
	}, nil)
	unknownUser := postForm(router, "/login", url.Values{
		"username": {"machine"},
		"password": {"nope123"},
	}, nil)

	if wrongPassword.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: unexpected status %d", wrongPassword.Code)
	}
	if unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("unknown user: unexpected status %d", unknownUser.Code)
	}

	// ユーザー名以外の差が応答に現れないこと
	wrongBody := strings.Replace(wrongPassword.Body.String(), "alice", "X", 1)
	unknownBody := strings.Replace(unknownUser.Body.String(), "machine", "X", 1)
	if wrongBody != unknownBody {
		t.Fatalf("failure responses differ:\n%s\n%s", wrongBody, unknownBody)
	}

	// 失敗時にセッションが発行されないこと
	for _, c := range wrongPassword.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value != "" && c.MaxAge >= 0 {
			t.Fatalf("session cookie issued on failed login: %+v", c)
		}
	}
}

func TestLoginValidationFailure(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := postForm(router, "/login", url.Values{
		"username": {"ab"},
		"password": {"x"},
	}, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRegisterDuplicateRendersFieldError(t *testing.T) {
	router, _ := newTestRouter(t)
	registerUser(t, router, "alice", "secret1")

	rec := postForm(router, "/register", url.Values{
		"username": {"alice"},
		"password": {"other12"},
	}, nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("unexpected status: %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "username") {
		t.Fatalf("expected a username field error, got: %s", rec.Body.String())
	}
}

func TestRequireLoginRedirectsAnonymous(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := getPath(router, "/dashboard", nil)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
}

func TestLogoutRevokesReplayedCookie(t *testing.T) {
	router, _ := newTestRouter(t)
	registerUser(t, router, "alice", "secret1")

	login := postForm(router, "/login", url.Values{
		"username": {"alice"},
		"password": {"secret1"},
	}, nil)
	if login.Code != http.StatusSeeOther {
		t.Fatalf("login failed: %d", login.Code)
	}
	sessionCookies := login.Result().Cookies()

	// ログイン済みならダッシュボードに入れる
	if rec := getPath(router, "/dashboard", sessionCookies); rec.Code != http.StatusOK {
		t.Fatalf("dashboard before logout: %d", rec.Code)
	}

	if rec := getPath(router, "/logout", sessionCookies); rec.Code != http.StatusSeeOther {
		t.Fatalf("logout failed: %d", rec.Code)
	}

	// 失効後に同じクッキーを再送してもAnonymous扱いになる
	rec := getPath(router, "/dashboard", sessionCookies)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("replayed cookie still accepted: %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Fatalf("unexpected redirect target: %s", loc)
	}
}
