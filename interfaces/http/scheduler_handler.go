package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"kreatr-scheduler/domain/dto"
	"kreatr-scheduler/infrastructure/logger"
	"kreatr-scheduler/usecase"

	"github.com/gin-gonic/gin"
)

type ISchedulerHandler interface {
	Process(ctx *gin.Context)
	ProcessNow(ctx *gin.Context)
	RetryFailed(ctx *gin.Context)
	Stats(ctx *gin.Context)
}

// SchedulerHandler exposes the dispatch engine. Process is hit by the external
// cron; the rest are operator endpoints behind auth.
type SchedulerHandler struct {
	dispatchUsecase usecase.IDispatchUsecase
	cronSecret      string
	env             string
	retryBatch      int
}

func NewSchedulerHandler(uc usecase.IDispatchUsecase, cronSecret, env string, retryBatch int) ISchedulerHandler {
	return &SchedulerHandler{dispatchUsecase: uc, cronSecret: cronSecret, env: env, retryBatch: retryBatch}
}

// Process runs one dispatch tick on behalf of the external cron caller.
func (h *SchedulerHandler) Process(ctx *gin.Context) {
	if h.cronSecret == "" {
		ctx.JSON(http.StatusInternalServerError, dto.ProcessResponse{
			Error:     "scheduler secret not configured",
			Timestamp: time.Now().UTC(),
		})
		return
	}
	authorization := ctx.Request.Header.Get("Authorization")
	if authorization != "Bearer "+h.cronSecret {
		ctx.JSON(http.StatusUnauthorized, dto.ProcessResponse{
			Error:     "unauthorized",
			Timestamp: time.Now().UTC(),
		})
		return
	}
	h.run(ctx)
}

// ProcessNow is the manual trigger used while developing; disabled in
// production where only the cron secret path is allowed.
func (h *SchedulerHandler) ProcessNow(ctx *gin.Context) {
	if strings.EqualFold(h.env, "production") || strings.EqualFold(h.env, "prod") {
		ctx.JSON(http.StatusForbidden, dto.ProcessResponse{
			Error:     "manual trigger disabled in production",
			Timestamp: time.Now().UTC(),
		})
		return
	}
	h.run(ctx)
}

func (h *SchedulerHandler) run(ctx *gin.Context) {
	summary, err := h.dispatchUsecase.ProcessScheduledPosts(ctx.Request.Context())
	if err != nil {
		logger.GetLogger().WithField("error", err.Error()).Error("dispatch tick failed")
		ctx.JSON(http.StatusInternalServerError, dto.ProcessResponse{
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		})
		return
	}
	ctx.JSON(http.StatusOK, dto.ProcessResponse{
		Success:   true,
		Stats:     summary,
		Timestamp: time.Now().UTC(),
	})
}

func (h *SchedulerHandler) RetryFailed(ctx *gin.Context) {
	limit := h.retryBatch
	if v := ctx.Query("batch"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	summary, err := h.dispatchUsecase.RetryFailedPosts(ctx.Request.Context(), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, dto.ProcessResponse{
			Error:     err.Error(),
			Timestamp: time.Now().UTC(),
		})
		return
	}
	ctx.JSON(http.StatusOK, dto.ProcessResponse{
		Success:   true,
		Stats:     summary,
		Timestamp: time.Now().UTC(),
	})
}

func (h *SchedulerHandler) Stats(ctx *gin.Context) {
	stats, err := h.dispatchUsecase.GetStats(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, stats)
}
