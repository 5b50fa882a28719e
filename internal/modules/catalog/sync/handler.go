package sync

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/plughub/core/internal/models"
	"github.com/plughub/core/internal/pkg/pagination"
	"github.com/plughub/core/internal/pkg/response"
	"github.com/plughub/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const taskTypeSync = "channel-sync"

// Handler triggers and inspects sync passes over HTTP. Triggers go through the
// task queue so concurrent requests collapse into one running pass.
type Handler struct {
	svc     *Service
	taskSvc *taskqueue.Service
	db      *gorm.DB
	logger  *zap.Logger
}

func NewHandler(svc *Service, taskSvc *taskqueue.Service, db *gorm.DB, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, taskSvc: taskSvc, db: db, logger: logger.Named("ChannelSync")}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, adminMW gin.HandlerFunc) {
	g := rg.Group("/sync", adminMW)
	g.POST("", h.trigger)
	g.GET("/tasks/:taskId", h.taskStatus)
	g.GET("/runs", h.listRuns)
}

// POST /sync — enqueue a sync pass. Returns the existing task when one is
// already pending or running.
func (h *Handler) trigger(c *gin.Context) {
	ctx := c.Request.Context()
	task, err := h.taskSvc.Enqueue(ctx, taskTypeSync, nil, taskTypeSync, "")
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task.Status != taskqueue.TaskPending {
		response.OK(c, task)
		return
	}

	go h.runTask(task.ID)
	response.Created(c, task)
}

func (h *Handler) runTask(taskID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	_ = h.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskRunning, nil, "")
	counters, err := h.svc.Sync(ctx, "manual")
	if err != nil {
		h.logger.Error("sync task failed", zap.String("task_id", taskID), zap.Error(err))
		_ = h.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskFailed, counters, err.Error())
		return
	}
	_ = h.taskSvc.UpdateStatus(ctx, taskID, taskqueue.TaskCompleted, counters, "")
}

// GET /sync/tasks/:taskId
func (h *Handler) taskStatus(c *gin.Context) {
	task, err := h.taskSvc.GetByID(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}

// GET /sync/runs — paginated run history, newest first.
func (h *Handler) listRuns(c *gin.Context) {
	q := pagination.FromContext(c)
	tx := h.db.Model(&models.SyncRunModel{}).Order("started_at DESC")

	var runs []models.SyncRunModel
	pag, err := pagination.Paginate(tx, q, &runs)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, runs, pag)
}
