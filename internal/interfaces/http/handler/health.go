package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// DependencyCheck 就绪检查项
type DependencyCheck struct {
	Name string
	// Required 为 false 时失败只标记 degraded，不影响就绪态
	Required bool
	Check    func(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	version    string
	checks     []DependencyCheck
	storeReady func(ctx context.Context) bool
}

// NewHealthHandler 创建健康检查处理器，storeReady 可为 nil
func NewHealthHandler(version string, storeReady func(ctx context.Context) bool, checks ...DependencyCheck) *HealthHandler {
	return &HealthHandler{
		version:    version,
		checks:     checks,
		storeReady: storeReady,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Store  string                     `json:"store"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: h.version,
	})
}

// Ready 就绪检查接口
// 片段表是否存在只做报告，未导入播放列表时服务仍可接收导入请求。
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]*readinessCheck, len(h.checks))
	ready := true

	for _, dep := range h.checks {
		start := time.Now()
		err := dep.Check(ctx)
		rc := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
		if err != nil {
			rc.Error = err.Error()
			if dep.Required {
				rc.Status = "error"
				ready = false
			} else {
				rc.Status = "degraded"
			}
		}
		checks[dep.Name] = rc
	}

	resp := readinessResponse{
		Status: "ok",
		Store:  "missing",
		Checks: checks,
	}
	if h.storeReady != nil && h.storeReady(ctx) {
		resp.Store = "ready"
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}
