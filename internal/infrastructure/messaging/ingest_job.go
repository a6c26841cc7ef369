package messaging

import (
	"context"
	"errors"
	"fmt"

	"playlist-rag-api/internal/domain/entity"
	apperrors "playlist-rag-api/pkg/errors"
	"playlist-rag-api/pkg/logger"
)

// IngestExecutor 执行已登记的导入
type IngestExecutor interface {
	Execute(ctx context.Context, run *entity.IngestRun) error
}

// NewIngestJobHandler 导入任务消息处理器。
// 锁被其他任务占用时确认并丢弃消息，其余错误交由消费者重试。
func NewIngestJobHandler(exec IngestExecutor) MessageHandler {
	return func(ctx context.Context, msg *Message) error {
		var job IngestJobMessage
		if err := msg.UnmarshalPayload(&job); err != nil {
			return fmt.Errorf("decode ingest job: %w", err)
		}
		if job.RunID == "" || job.PlaylistURL == "" {
			return errors.New("ingest job missing run_id or playlist_url")
		}

		err := exec.Execute(ctx, job.ToRun())
		if apperrors.HasCode(err, apperrors.CodeIngestInProgress) {
			logger.Warn(ctx, "ingest job skipped", "run_id", job.RunID)
			return nil
		}
		return err
	}
}
