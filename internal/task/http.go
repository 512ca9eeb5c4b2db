package task

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/taskboard/internal/store"
	"github.com/yourusername/taskboard/internal/view"
)

// Service はハンドラーが必要とするタスク操作です。*store.Tasks が実装します。
type Service interface {
	Create(ctx context.Context, ownerID int64, title, desc string) (*store.Task, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]store.Task, error)
	Get(ctx context.Context, sno, ownerID int64) (*store.Task, error)
	Update(ctx context.Context, sno, ownerID int64, title, desc string) error
	Delete(ctx context.Context, sno, ownerID int64) error
	Search(ctx context.Context, ownerID int64, query string) ([]store.Task, error)
}

// Identity はリクエストから呼び出し元ユーザーIDを解決します。
// 未ログインの場合は (0, false) を返し、決して失敗しません。
type Identity func(c *gin.Context) (int64, bool)

// Handlers はタスク関連ルートのハンドラー群です。
type Handlers struct {
	tasks    Service
	identity Identity
	render   view.Renderer
}

// NewHandlers は Handlers を作成します。
func NewHandlers(tasks Service, identity Identity, render view.Renderer) *Handlers {
	return &Handlers{
		tasks:    tasks,
		identity: identity,
		render:   render,
	}
}

// Home は GET / のハンドラーです。
func (h *Handlers) Home(c *gin.Context) {
	h.render.Landing(c)
}

// Dashboard は GET/POST /dashboard のハンドラーです。
func (h *Handlers) Dashboard(c *gin.Context) {
	ownerID, ok := h.identity(c)
	if !ok {
		h.denyAnonymous(c)
		return
	}

	tasks, err := h.tasks.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.serverError(c, err)
		return
	}

	h.render.Dashboard(c, http.StatusOK, view.DashboardVM{Tasks: toTaskVMs(tasks)})
}

// CreateTask は GET/POST /tasks のハンドラーです。
// POSTで作成し、GET/POST共に自分のタスク一覧を描画します。
// 注意: このルートにはログインゲートが適用されていません（現行挙動の維持）。
// 匿名の呼び出しはここでの身元解決が失敗し、明示的に拒否されます。
func (h *Handlers) CreateTask(c *gin.Context) {
	ownerID, ok := h.identity(c)
	if !ok {
		h.denyAnonymous(c)
		return
	}

	if c.Request.Method == http.MethodPost {
		title := c.PostForm("title")
		desc := c.PostForm("desc")

		if fieldErrors := validateForm(title, desc); fieldErrors != nil {
			tasks, err := h.tasks.ListByOwner(c.Request.Context(), ownerID)
			if err != nil {
				h.serverError(c, err)
				return
			}
			h.render.Dashboard(c, http.StatusBadRequest, view.DashboardVM{
				Tasks:  toTaskVMs(tasks),
				Errors: fieldErrors,
			})
			return
		}

		if _, err := h.tasks.Create(c.Request.Context(), ownerID, title, desc); err != nil {
			h.serverError(c, err)
			return
		}
	}

	tasks, err := h.tasks.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.serverError(c, err)
		return
	}

	h.render.Dashboard(c, http.StatusOK, view.DashboardVM{Tasks: toTaskVMs(tasks)})
}

// Edit は GET/POST /update/:sno のハンドラーです。
// 所有していないタスク（存在しないタスクを含む）は一覧へリダイレクトします。
func (h *Handlers) Edit(c *gin.Context) {
	ownerID, ok := h.identity(c)
	if !ok {
		h.denyAnonymous(c)
		return
	}

	sno, err := strconv.ParseInt(c.Param("sno"), 10, 64)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/tasks")
		return
	}

	if c.Request.Method != http.MethodPost {
		existing, err := h.tasks.Get(c.Request.Context(), sno, ownerID)
		if err != nil {
			h.serverError(c, err)
			return
		}
		if existing == nil {
			c.Redirect(http.StatusSeeOther, "/tasks")
			return
		}
		h.render.EditForm(c, http.StatusOK, view.EditVM{Task: toTaskVM(*existing)})
		return
	}

	title := c.PostForm("title")
	desc := c.PostForm("desc")

	if fieldErrors := validateForm(title, desc); fieldErrors != nil {
		existing, err := h.tasks.Get(c.Request.Context(), sno, ownerID)
		if err != nil {
			h.serverError(c, err)
			return
		}
		if existing == nil {
			c.Redirect(http.StatusSeeOther, "/tasks")
			return
		}
		h.render.EditForm(c, http.StatusBadRequest, view.EditVM{
			Task:   toTaskVM(*existing),
			Errors: fieldErrors,
		})
		return
	}

	if err := h.tasks.Update(c.Request.Context(), sno, ownerID, title, desc); err != nil {
		// 所有していない場合も更新対象なしとして扱い、一覧へ戻す
		if errors.Is(err, store.ErrNotFound) {
			c.Redirect(http.StatusSeeOther, "/tasks")
			return
		}
		h.serverError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/tasks")
}

// Delete は GET /delete/:sno のハンドラーです。
// 所有していないタスクの削除は何もせず成功扱いです。
func (h *Handlers) Delete(c *gin.Context) {
	ownerID, ok := h.identity(c)
	if !ok {
		h.denyAnonymous(c)
		return
	}

	sno, err := strconv.ParseInt(c.Param("sno"), 10, 64)
	if err != nil {
		c.Redirect(http.StatusSeeOther, "/tasks")
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), sno, ownerID); err != nil {
		h.serverError(c, err)
		return
	}

	c.Redirect(http.StatusSeeOther, "/tasks")
}

// Search は GET /search のハンドラーです。
// 空のクエリは全件ではなく空の結果を描画します。
func (h *Handlers) Search(c *gin.Context) {
	ownerID, ok := h.identity(c)
	if !ok {
		h.denyAnonymous(c)
		return
	}

	query := c.Query("query")
	results, err := h.tasks.Search(c.Request.Context(), ownerID, query)
	if err != nil {
		h.serverError(c, err)
		return
	}

	h.render.Dashboard(c, http.StatusOK, view.DashboardVM{
		Tasks: toTaskVMs(results),
		Query: query,
	})
}

func (h *Handlers) denyAnonymous(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":    "UNAUTHORIZED",
		"message": "ログインが必要です",
	})
}

func (h *Handlers) serverError(c *gin.Context, err error) {
	log.Printf("task handler error: %v", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"code":    "INTERNAL_ERROR",
		"message": "処理中にエラーが発生しました",
	})
}

func toTaskVM(t store.Task) view.TaskVM {
	return view.TaskVM{
		Sno:         t.Sno,
		Title:       t.Title,
		Desc:        t.Desc,
		DateCreated: t.DateCreated,
	}
}

func toTaskVMs(tasks []store.Task) []view.TaskVM {
	vms := make([]view.TaskVM, 0, len(tasks))
	for _, t := range tasks {
		vms = append(vms, toTaskVM(t))
	}
	return vms
}
