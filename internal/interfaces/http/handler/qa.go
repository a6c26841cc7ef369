package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"playlist-rag-api/internal/interfaces/http/dto"
)

// QAHandler 问答处理器
type QAHandler struct {
	svc QAService
}

// NewQAHandler 创建问答处理器
func NewQAHandler(svc QAService) *QAHandler {
	return &QAHandler{svc: svc}
}

// Ask 基于已导入播放列表回答问题
// @Summary 问答
// @Tags QA
// @Accept json
// @Produce json
// @Param body body dto.AskRequest true "问题"
// @Success 200 {object} dto.Response[dto.AskResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/ask [post]
func (h *QAHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	answer, err := h.svc.Ask(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToAskResponse(answer))
}

// LegacyAsk 兼容旧前端的 /ask，成功时只返回 {"answer": ...}，错误仍走统一错误体
// @Summary 问答（兼容）
// @Tags QA
// @Accept json
// @Produce json
// @Param body body dto.AskRequest true "问题"
// @Success 200 {object} dto.LegacyAskResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /ask [post]
func (h *QAHandler) LegacyAsk(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	answer, err := h.svc.Ask(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.LegacyAskResponse{Answer: answer.Text})
}

// Retrieve 检索调试：返回召回片段与分数，不调用生成模型
// @Summary 检索调试
// @Tags QA
// @Accept json
// @Produce json
// @Param body body dto.AskRequest true "问题"
// @Success 200 {object} dto.Response[dto.RetrieveResponse]
// @Router /v1/retrieve [post]
func (h *QAHandler) Retrieve(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.svc.Retrieve(c.Request.Context(), req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToRetrieveResponse(result))
}
