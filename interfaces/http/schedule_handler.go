package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"kreatr-scheduler/domain/dto"
	"kreatr-scheduler/domain/model"
	"kreatr-scheduler/domain/repository"
	"kreatr-scheduler/infrastructure/logger"
	"kreatr-scheduler/usecase"

	"github.com/gin-gonic/gin"
)

type IScheduleHandler interface {
	Schedule(ctx *gin.Context)
	Reschedule(ctx *gin.Context)
	Cancel(ctx *gin.Context)
	GetScheduled(ctx *gin.Context)
	GetQueueStatus(ctx *gin.Context)
	GetAttempts(ctx *gin.Context)
	GetPlatforms(ctx *gin.Context)
}

type ScheduleHandler struct {
	scheduleUsecase usecase.IScheduleUsecase
	historyRepo     repository.IDispatchHistory
	platforms       []string
}

func NewScheduleHandler(uc usecase.IScheduleUsecase, historyRepo repository.IDispatchHistory, platforms []string) IScheduleHandler {
	return &ScheduleHandler{scheduleUsecase: uc, historyRepo: historyRepo, platforms: platforms}
}

// statusFor maps usecase validation errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, usecase.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrInvalidSchedule),
		errors.Is(err, usecase.ErrInvalidPlatform),
		errors.Is(err, usecase.ErrNoActiveAccount):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func contentID(ctx *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param("contentId"), 10, 64)
	if err != nil || id <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid content id"})
		return 0, false
	}
	return id, true
}

func (h *ScheduleHandler) Schedule(ctx *gin.Context) {
	id, ok := contentID(ctx)
	if !ok {
		return
	}
	userID := ctx.GetString("user_id")
	var req dto.ScheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	content, err := h.scheduleUsecase.Schedule(ctx.Request.Context(), userID, id, req.ScheduledAt, req.Platforms)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			logger.GetLogger().WithField("content_id", id).WithField("error", err.Error()).Error("schedule request failed")
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"content": content})
}

func (h *ScheduleHandler) Reschedule(ctx *gin.Context) {
	id, ok := contentID(ctx)
	if !ok {
		return
	}
	userID := ctx.GetString("user_id")
	var req dto.RescheduleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	content, err := h.scheduleUsecase.Reschedule(ctx.Request.Context(), userID, id, req.ScheduledAt)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"content": content})
}

func (h *ScheduleHandler) Cancel(ctx *gin.Context) {
	id, ok := contentID(ctx)
	if !ok {
		return
	}
	userID := ctx.GetString("user_id")
	content, err := h.scheduleUsecase.Cancel(ctx.Request.Context(), userID, id)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"content": content})
}

func (h *ScheduleHandler) GetScheduled(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	workspaceID, err := strconv.ParseInt(ctx.Query("workspace_id"), 10, 64)
	if err != nil || workspaceID <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "workspace_id is required"})
		return
	}
	now := time.Now().UTC()
	from, to := now, now.Add(7*24*time.Hour)
	if v := ctx.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return
		}
		from = t
	}
	if v := ctx.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return
		}
		to = t
	}
	items, err := h.scheduleUsecase.GetScheduled(ctx.Request.Context(), userID, workspaceID, from, to)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	if items == nil {
		items = []*model.ContentItem{}
	}
	ctx.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *ScheduleHandler) GetQueueStatus(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	workspaceID, err := strconv.ParseInt(ctx.Query("workspace_id"), 10, 64)
	if err != nil || workspaceID <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "workspace_id is required"})
		return
	}
	qs, err := h.scheduleUsecase.GetQueueStatus(ctx.Request.Context(), userID, workspaceID)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, qs)
}

// GetAttempts exposes the append-only publish attempt audit for one item.
func (h *ScheduleHandler) GetAttempts(ctx *gin.Context) {
	id, ok := contentID(ctx)
	if !ok {
		return
	}
	if h.historyRepo == nil {
		ctx.JSON(http.StatusOK, gin.H{"content_id": id, "attempts": []*repository.DispatchAttempt{}})
		return
	}
	attempts, err := h.historyRepo.ListByContent(ctx.Request.Context(), id, 50)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if attempts == nil {
		attempts = []*repository.DispatchAttempt{}
	}
	ctx.JSON(http.StatusOK, gin.H{"content_id": id, "attempts": attempts})
}

func (h *ScheduleHandler) GetPlatforms(ctx *gin.Context) {
	caps := make([]gin.H, 0, len(h.platforms))
	for _, p := range h.platforms {
		caps = append(caps, gin.H{"platform": p, "implemented": model.ValidatePlatform(p)})
	}
	ctx.JSON(http.StatusOK, gin.H{"platforms": caps})
}
