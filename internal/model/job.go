package model

import (
	"time"
)

// 任务状态，与远程取证服务的状态字符串保持一致
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Job 一次分析请求及其生命周期状态。
// 同一时刻每个用户至多一个"活跃" Job，由 controller 独占写入。
type Job struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	FileName    string    `json:"file_name"`
	MediaPath   string    `json:"media_path,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// IsTerminal 终态判定：COMPLETED 或 FAILED 结束轮询
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
