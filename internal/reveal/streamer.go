package reveal

import (
	"sync"
	"time"
)

// 固定的解释文本模板，与结果中的 reason 拼接
const (
	Preamble = "No significant manipulation artifacts. "
	Epilogue = " This assessment is derived from facial consistency, frequency artifacts, and cross-region agreement. The system explicitly avoids over-confident conclusions when signals conflict."
)

// Snapshot 流的当前状态快照
type Snapshot struct {
	Revealed string `json:"revealed"`
	FullText string `json:"full_text"`
	Done     bool   `json:"done"`
}

// Streamer 把解释文本逐字符"直播"出来。
// 同一时刻至多一个计时器在写入；Start/Stop 同步地拆除旧计时器，
// 保证两段文本不会交错。
type Streamer struct {
	mu       sync.Mutex
	tick     time.Duration
	fullText string
	revealed []rune
	done     bool
	stopChan chan struct{}
	notify   func(Snapshot)
}

// NewStreamer tick 为单字符间隔；notify 可为 nil，每次推进时在计时器
// 协程内调用，不得阻塞。
func NewStreamer(tick time.Duration, notify func(Snapshot)) *Streamer {
	return &Streamer{
		tick:   tick,
		notify: notify,
	}
}

// Start 针对新的 reason 重新开始披露。空 reason 等价于 Stop：
// 流被清空并保持空闲。
func (s *Streamer) Start(reason string) {
	s.mu.Lock()
	s.cancelLocked()
	s.revealed = s.revealed[:0]
	s.done = false

	if reason == "" {
		s.fullText = ""
		s.mu.Unlock()
		return
	}

	s.fullText = Preamble + reason + Epilogue
	stop := make(chan struct{})
	s.stopChan = stop
	full := []rune(s.fullText)
	s.mu.Unlock()

	go s.run(stop, full)
}

// Stop 取消进行中的披露并清空流
func (s *Streamer) Stop() {
	s.mu.Lock()
	s.cancelLocked()
	s.fullText = ""
	s.revealed = s.revealed[:0]
	s.done = false
	s.mu.Unlock()
}

// Snapshot 返回当前状态的副本
func (s *Streamer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Revealed: string(s.revealed),
		FullText: s.fullText,
		Done:     s.done,
	}
}

// cancelLocked 拆除当前计时器，调用方必须持有 s.mu
func (s *Streamer) cancelLocked() {
	if s.stopChan != nil {
		close(s.stopChan)
		s.stopChan = nil
	}
}

func (s *Streamer) run(stop chan struct{}, full []rune) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			snap, alive := s.advance(stop, full)
			if !alive {
				return
			}
			if s.notify != nil {
				s.notify(snap)
			}
			if snap.Done {
				return
			}
		}
	}
}

// advance 推进一个字符。stop 已失效（被 Start/Stop 替换）时放弃写入，
// 防止迟到的 tick 污染新流。
func (s *Streamer) advance(stop chan struct{}, full []rune) (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopChan != stop {
		return Snapshot{}, false
	}

	if len(s.revealed) < len(full) {
		s.revealed = append(s.revealed, full[len(s.revealed)])
	}
	if len(s.revealed) >= len(full) {
		s.done = true
		s.stopChan = nil
	}

	return Snapshot{
		Revealed: string(s.revealed),
		FullText: s.fullText,
		Done:     s.done,
	}, true
}
