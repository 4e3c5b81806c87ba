package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/trustguard/forensic_server/internal/pkg/oss"
	"github.com/trustguard/forensic_server/internal/pkg/queue"
	"github.com/trustguard/forensic_server/internal/repository"
)

// Archiver 消费归档队列，把已分析媒体的本地副本搬到对象存储。
// OSS 未配置时跳过上传，仅保留本地副本（由 cron 按保留期清理）。
type Archiver struct {
	historyRepo *repository.HistoryRepository
	ossClient   *oss.Client
}

func NewArchiver(historyRepo *repository.HistoryRepository, ossClient *oss.Client) *Archiver {
	return &Archiver{
		historyRepo: historyRepo,
		ossClient:   ossClient,
	}
}

// Process 处理一条归档任务
func (a *Archiver) Process(ctx context.Context, msg *queue.ArchiveMessage) error {
	if a.ossClient == nil {
		log.Printf("Job %s: OSS not configured, keeping local copy only", msg.JobID)
		return nil
	}

	if msg.MediaPath == "" {
		return nil
	}

	data, err := os.ReadFile(msg.MediaPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Job %s: media %s already gone, skipping archive", msg.JobID, msg.MediaPath)
			return nil
		}
		return fmt.Errorf("failed to read media: %w", err)
	}

	ext := filepath.Ext(msg.MediaPath)
	url, err := a.ossClient.UploadMedia(msg.JobID, data, ext)
	if err != nil {
		return fmt.Errorf("failed to archive media: %w", err)
	}

	if err := a.historyRepo.MarkArchived(msg.HistoryID, url); err != nil {
		return fmt.Errorf("failed to mark archived: %w", err)
	}

	log.Printf("Job %s: media archived to %s", msg.JobID, url)
	return nil
}
