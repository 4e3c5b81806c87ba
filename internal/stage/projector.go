package stage

import (
	"sync"

	"github.com/trustguard/forensic_server/internal/model"
)

// 阶段状态
const (
	StatePending   = "pending"
	StateLoading   = "loading"
	StateCompleted = "completed"
	StateError     = "error"
)

// 固定的四阶段流水线
const (
	IDIngestion      = "ingestion"
	IDAlignment      = "alignment"
	IDClassification = "classification"
	IDReport         = "report"
)

// View 展示给用户的单个流水线阶段
type View struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"`
}

// Sequence 有序阶段序列。completed/error 为"粘滞"状态，
// 除显式 Reset（新的提交）外不会回退。
// 轮询协程写入、请求协程读取，自带锁。
type Sequence struct {
	mu     sync.Mutex
	stages []View
}

func NewSequence() *Sequence {
	s := &Sequence{}
	s.Reset()
	return s
}

// Reset 回到全 pending 的初始模板
func (s *Sequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = []View{
		{ID: IDIngestion, Name: "Media Ingestion", State: StatePending},
		{ID: IDAlignment, Name: "Biometric Alignment", State: StatePending},
		{ID: IDClassification, Name: "Classification Engine", State: StatePending},
		{ID: IDReport, Name: "Report Generation", State: StatePending},
	}
}

// Apply 按任务状态推进阶段。未知状态是前向兼容的空操作。
func (s *Sequence) Apply(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch status {
	case model.StatusProcessing:
		// 进入处理即表示媒体接收阶段已结束
		s.set(IDIngestion, StateCompleted)
		s.set(IDAlignment, StateLoading)
		s.set(IDClassification, StateLoading)
	case model.StatusCompleted:
		for i := range s.stages {
			s.stages[i].State = StateCompleted
		}
	case model.StatusFailed:
		// 已完成的阶段保持不变，其余标记为 error
		for i := range s.stages {
			if s.stages[i].State != StateCompleted {
				s.stages[i].State = StateError
			}
		}
	}
}

// set 粘滞写入：不允许离开 completed/error。调用方必须持有 s.mu。
func (s *Sequence) set(id, state string) {
	for i := range s.stages {
		if s.stages[i].ID != id {
			continue
		}
		if s.stages[i].State == StateCompleted || s.stages[i].State == StateError {
			return
		}
		s.stages[i].State = state
		return
	}
}

// Views 返回当前序列的副本
func (s *Sequence) Views() []View {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]View, len(s.stages))
	copy(out, s.stages)
	return out
}
