package model

import (
	"encoding/json"
	"time"
)

// HistoryRecord 已完成分析的持久化记录，用于历史列表与回放
type HistoryRecord struct {
	ID         int64      `gorm:"primaryKey" json:"id"`
	JobID      string     `gorm:"size:64;not null;uniqueIndex" json:"job_id"`
	UserID     string     `gorm:"size:64;not null;index" json:"user_id"`
	FileName   string     `gorm:"size:255" json:"file_name"`
	MediaPath  string     `gorm:"size:500" json:"media_path,omitempty"`
	ArchiveURL string     `gorm:"size:500" json:"archive_url,omitempty"`
	Label      string     `gorm:"size:20;not null" json:"label"`
	Score      float64    `gorm:"not null" json:"score"`
	HeatmapURL string     `gorm:"size:500" json:"heatmap_url,omitempty"`
	Metadata   string     `gorm:"type:text" json:"-"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty"`
}

func (HistoryRecord) TableName() string {
	return "history_records"
}

// SetMetadata 序列化元数据到 JSON 列
func (h *HistoryRecord) SetMetadata(md ResultMetadata) error {
	data, err := json.Marshal(md)
	if err != nil {
		return err
	}
	h.Metadata = string(data)
	return nil
}

// GetMetadata 反序列化元数据，解析失败返回零值
func (h *HistoryRecord) GetMetadata() ResultMetadata {
	var md ResultMetadata
	if h.Metadata == "" {
		return md
	}
	if err := json.Unmarshal([]byte(h.Metadata), &md); err != nil {
		return ResultMetadata{}
	}
	return md
}

// ToResult 还原为分析结果，供历史回放使用
func (h *HistoryRecord) ToResult() *AnalysisResult {
	return &AnalysisResult{
		JobID:      h.JobID,
		Label:      h.Label,
		Score:      h.Score,
		HeatmapURL: h.HeatmapURL,
		Metadata:   h.GetMetadata(),
	}
}
