package testutil

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/trustguard/forensic_server/internal/model"
)

// TestHistoryRecord 创建测试历史记录
func TestHistoryRecord(t *testing.T, db *gorm.DB, userID string, opts ...func(*model.HistoryRecord)) *model.HistoryRecord {
	t.Helper()

	record := &model.HistoryRecord{
		JobID:    fmt.Sprintf("job_%d", time.Now().UnixNano()),
		UserID:   userID,
		FileName: "sample.mp4",
		Label:    "REAL",
		Score:    0.12,
	}

	for _, opt := range opts {
		opt(record)
	}

	if err := db.Create(record).Error; err != nil {
		t.Fatalf("Failed to create test history record: %v", err)
	}

	return record
}

// WithJobID 设置任务 ID
func WithJobID(jobID string) func(*model.HistoryRecord) {
	return func(r *model.HistoryRecord) {
		r.JobID = jobID
	}
}

// WithLabel 设置判定结果
func WithLabel(label string, score float64) func(*model.HistoryRecord) {
	return func(r *model.HistoryRecord) {
		r.Label = label
		r.Score = score
	}
}

// WithMediaPath 设置本地媒体路径
func WithMediaPath(path string) func(*model.HistoryRecord) {
	return func(r *model.HistoryRecord) {
		r.MediaPath = path
	}
}

// WithArchive 标记为已归档
func WithArchive(url string) func(*model.HistoryRecord) {
	return func(r *model.HistoryRecord) {
		r.ArchiveURL = url
		now := time.Now()
		r.ArchivedAt = &now
	}
}

// WithCreatedAt 设置创建时间
func WithCreatedAt(ts time.Time) func(*model.HistoryRecord) {
	return func(r *model.HistoryRecord) {
		r.CreatedAt = ts
	}
}

// WithMetadata 设置结果元数据
func WithMetadata(t *testing.T, md model.ResultMetadata) func(*model.HistoryRecord) {
	return func(r *model.HistoryRecord) {
		if err := r.SetMetadata(md); err != nil {
			t.Fatalf("Failed to encode metadata: %v", err)
		}
	}
}
