// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"playlist-rag-api/internal/application/ingest"
	"playlist-rag-api/internal/application/retrieval"
	"playlist-rag-api/internal/domain/entity"
	"playlist-rag-api/internal/interfaces/http/dto"
	apperrors "playlist-rag-api/pkg/errors"
	"playlist-rag-api/pkg/logger"
)

// QAService 问答服务
type QAService interface {
	Ask(ctx context.Context, query string) (*retrieval.Answer, error)
	Retrieve(ctx context.Context, query string) (*retrieval.Retrieval, error)
}

// IngestService 导入服务
type IngestService interface {
	Start(ctx context.Context, playlistURL string) (*entity.IngestRun, error)
	Wait(ctx context.Context, runID string) (ingest.Snapshot, error)
	Reset(ctx context.Context) error
	Status(ctx context.Context) (*ingest.Status, error)
	Watch(ctx context.Context) (<-chan ingest.Snapshot, func(), error)
	Runs(ctx context.Context, limit int) ([]*entity.IngestRun, error)
	Sources(ctx context.Context) ([]entity.Source, error)
}

var (
	_ QAService     = (*retrieval.Answerer)(nil)
	_ IngestService = (*ingest.Coordinator)(nil)
)

// suggestions 按错误码给出的处理建议
var suggestions = map[apperrors.ErrorCode][]string{
	apperrors.CodeMissingStore:        {"POST /load-youtube with {\"url\": \"<playlist url>\"} and wait for status ready"},
	apperrors.CodeIngestInProgress:    {"GET /status to follow the running ingest"},
	apperrors.CodeUpstreamUnavailable: {"check that the model server is running and reachable"},
}

// respondError 将错误转换为统一错误响应
func respondError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", err,
			"path", c.FullPath(),
			"error_code", appErr.Code,
		)
	}

	message := appErr.Message
	if appErr.Code == apperrors.CodeUnknown {
		message = "internal server error"
	}

	dto.ErrorWithDetail(c, status, message, &dto.ErrorDetail{
		ErrorCode:   string(appErr.Code),
		Details:     appErr.Detail,
		Suggestions: suggestions[appErr.Code],
	})
}

// bindError 请求体校验失败
func bindError(c *gin.Context, err error) {
	dto.ErrorWithDetail(c, http.StatusBadRequest, "invalid request body", &dto.ErrorDetail{
		ErrorCode: string(apperrors.CodeInvalidParam),
		Details:   err.Error(),
	})
}
