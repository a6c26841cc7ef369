package handler

import (
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"playlist-rag-api/internal/interfaces/http/dto"
	"playlist-rag-api/pkg/logger"
)

const (
	defaultRunLimit   = 20
	maxRunLimit       = 100
	sseHeartbeatEvery = 15 * time.Second
)

// IngestHandler 导入处理器
type IngestHandler struct {
	svc IngestService
}

// NewIngestHandler 创建导入处理器
func NewIngestHandler(svc IngestService) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// Start 开始导入播放列表
// @Summary 导入播放列表
// @Description 默认立即返回 202；wait=true 时阻塞到导入结束
// @Tags Ingest
// @Accept json
// @Produce json
// @Param body body dto.IngestRequest true "播放列表地址"
// @Param wait query bool false "是否等待导入完成"
// @Success 200 {object} dto.Response[dto.IngestResponse]
// @Success 202 {object} dto.Response[dto.IngestResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/ingest [post]
func (h *IngestHandler) Start(c *gin.Context) {
	var req dto.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	run, err := h.svc.Start(ctx, req.URL)
	if err != nil {
		respondError(c, err)
		return
	}

	wait, _ := strconv.ParseBool(c.Query("wait"))
	if !wait {
		dto.Accepted(c, &dto.IngestResponse{RunID: run.ID, Phase: string(run.Phase)})
		return
	}

	snap, err := h.svc.Wait(ctx, run.ID)
	if err != nil {
		// 客户端断开或等待中断时导入仍在后台继续
		logger.Warn(ctx, "stopped waiting for ingest", "run_id", run.ID, "error", err.Error())
		dto.Accepted(c, &dto.IngestResponse{RunID: run.ID, Phase: string(run.Phase)})
		return
	}
	dto.Success(c, &dto.IngestResponse{RunID: snap.RunID, Phase: string(snap.Phase), Message: snap.Message})
}

// Status 当前导入状态
// @Summary 导入状态
// @Tags Ingest
// @Produce json
// @Success 200 {object} dto.Response[dto.StatusResponse]
// @Router /v1/ingest/status [get]
func (h *IngestHandler) Status(c *gin.Context) {
	st, err := h.svc.Status(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToStatusResponse(st))
}

// Events 以 SSE 推送状态变化
// @Summary 导入状态推送
// @Tags Ingest
// @Produce text/event-stream
// @Success 200 "SSE stream"
// @Router /v1/ingest/events [get]
func (h *IngestHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	ch, cancel, err := h.svc.Watch(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(sseHeartbeatEvery)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("status", snap)
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"ts": time.Now().Unix()})
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// Runs 最近的导入记录
// @Summary 导入历史
// @Tags Ingest
// @Produce json
// @Param limit query int false "条数" default(20)
// @Success 200 {object} dto.Response[dto.RunListResponse]
// @Router /v1/ingest/runs [get]
func (h *IngestHandler) Runs(c *gin.Context) {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			dto.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.svc.Runs(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToRunListResponse(runs))
}

// Sources 已导入的视频列表
// @Summary 视频列表
// @Tags Ingest
// @Produce json
// @Success 200 {object} dto.Response[dto.SourceListResponse]
// @Router /v1/sources [get]
func (h *IngestHandler) Sources(c *gin.Context) {
	sources, err := h.svc.Sources(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToSourceListResponse(sources))
}

// Reset 删除全部导入产物与片段表
// @Summary 重置
// @Tags Ingest
// @Produce json
// @Success 200 {object} dto.Response[dto.StatusResponse]
// @Failure 409 {object} dto.ErrorResponse
// @Router /v1/reset [post]
func (h *IngestHandler) Reset(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.svc.Reset(ctx); err != nil {
		respondError(c, err)
		return
	}

	st, err := h.svc.Status(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToStatusResponse(st))
}
