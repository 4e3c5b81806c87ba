package controller

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/trustguard/forensic_server/internal/forensic"
	"github.com/trustguard/forensic_server/internal/model"
	"github.com/trustguard/forensic_server/internal/pkg/pubsub"
	"github.com/trustguard/forensic_server/internal/reveal"
	"github.com/trustguard/forensic_server/internal/score"
	"github.com/trustguard/forensic_server/internal/stage"
)

var ErrNoMedia = errors.New("缺少媒体文件")

// AnalysisService 远程取证服务的协作方契约，由 forensic.Client 实现
type AnalysisService interface {
	Upload(ctx context.Context, filename string, media io.Reader) (string, error)
	GetStatus(ctx context.Context, jobID string) (*forensic.StatusDocument, error)
}

// ProgressPublisher 进度广播，可为 nil（测试场景）
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, msg *pubsub.ProgressMessage) error
}

// CompleteFunc 任务到达 COMPLETED 后调用一次（持久化、归档入队）
type CompleteFunc func(job model.Job, result *model.AnalysisResult)

// Controller 管理"同一时刻至多一个活跃任务"的不变式，
// 驱动轮询直到终态。Job 与其状态转移由 Controller 独占写入；
// 阶段序列、评分视图与解释流在轮询期间也只由 Controller 推进。
type Controller struct {
	userID    string
	svc       AnalysisService
	interp    *score.Interpreter
	stages    *stage.Sequence
	streamer  *reveal.Streamer
	publisher ProgressPublisher
	onDone    CompleteFunc

	pollInterval time.Duration
	maxFailures  int

	mu           sync.Mutex
	job          *model.Job
	result       *model.AnalysisResult
	scoreView    *score.View
	generation   uint64
	cancelPoll   context.CancelFunc
	pollFailures int
}

func New(
	userID string,
	svc AnalysisService,
	interp *score.Interpreter,
	stages *stage.Sequence,
	streamer *reveal.Streamer,
	publisher ProgressPublisher,
	onDone CompleteFunc,
	pollInterval time.Duration,
	maxFailures int,
) *Controller {
	return &Controller{
		userID:       userID,
		svc:          svc,
		interp:       interp,
		stages:       stages,
		streamer:     streamer,
		publisher:    publisher,
		onDone:       onDone,
		pollInterval: pollInterval,
		maxFailures:  maxFailures,
	}
}

// Submit 提交新任务。先同步取消上一个任务的轮询与解释流并重置所有
// 派生状态，再调用上传协作方；上传失败原样上抛，面板保持可立即重试。
func (c *Controller) Submit(ctx context.Context, filename, mediaPath string, media io.Reader) (string, error) {
	if media == nil {
		return "", ErrNoMedia
	}

	// 取消必须与 Submit 同步完成，之后不允许任何过期更新落地
	c.mu.Lock()
	c.generation++
	gen := c.generation
	c.stopPollLocked()
	c.streamer.Stop()
	c.stages.Reset()
	c.job = nil
	c.result = nil
	c.scoreView = nil
	c.pollFailures = 0
	c.mu.Unlock()

	jobID, err := c.svc.Upload(ctx, filename, media)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// 上传期间又有新的提交进来，结果作废
	if gen != c.generation {
		return "", errors.New("提交已被更新的提交取代")
	}

	c.job = &model.Job{
		ID:          jobID,
		Status:      model.StatusPending,
		FileName:    filename,
		MediaPath:   mediaPath,
		SubmittedAt: time.Now(),
	}

	// 轮询挂在独立的 context 上，不随请求结束而终止
	pollCtx, cancel := context.WithCancel(context.Background())
	c.cancelPoll = cancel
	go c.pollLoop(pollCtx, gen, jobID)

	c.publishLocked(pollCtx)

	return jobID, nil
}

// CancelPolling 显式停止当前轮询（历史回放前调用）
func (c *Controller) CancelPolling() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.stopPollLocked()
}

// ShowStored 把一条已存储的结果投影到面板：阶段全部 completed，
// 重新计算评分并重启解释流。不触网，不轮询。
func (c *Controller) ShowStored(result *model.AnalysisResult) {
	c.mu.Lock()
	c.generation++
	c.stopPollLocked()

	c.job = &model.Job{
		ID:     result.JobID,
		Status: model.StatusCompleted,
	}
	c.result = result
	c.stages.Reset()
	c.stages.Apply(model.StatusCompleted)
	view := c.interp.Interpret(result.Score, result.Label)
	c.scoreView = &view
	// 解释流的启动必须与代号推进同锁，新提交才不会漏掉对它的取消
	c.streamer.Start(result.Metadata.Reason)
	c.mu.Unlock()
}

// Snapshot 返回当前任务、结果与评分视图的只读副本
func (c *Controller) Snapshot() (*model.Job, *model.AnalysisResult, *score.View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var job *model.Job
	if c.job != nil {
		j := *c.job
		job = &j
	}
	var view *score.View
	if c.scoreView != nil {
		v := *c.scoreView
		view = &v
	}
	return job, c.result, view
}

// pollLoop 固定间隔轮询。单协程内顺序执行，同一任务不会有
// 重叠的在途请求。
func (c *Controller) pollLoop(ctx context.Context, gen uint64, jobID string) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if done := c.pollOnce(ctx, gen, jobID); done {
				return
			}
		}
	}
}

// pollOnce 执行一个 tick，返回是否应停止轮询
func (c *Controller) pollOnce(ctx context.Context, gen uint64, jobID string) bool {
	doc, err := c.svc.GetStatus(ctx, jobID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		if forensic.IsTransient(err) {
			return c.recordFailure(ctx, gen, jobID, err)
		}
		// 非瞬时错误（如任务不存在）按终态失败处理
		log.Printf("Job %s: terminal poll error: %v", jobID, err)
		return c.applyFailure(ctx, gen, err.Error())
	}

	return c.applyStatus(ctx, gen, doc)
}

// recordFailure 瞬时错误静默重试，连续超限后升级为终态失败
func (c *Controller) recordFailure(ctx context.Context, gen uint64, jobID string, err error) bool {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return true
	}
	c.pollFailures++
	failures := c.pollFailures
	c.mu.Unlock()

	if failures >= c.maxFailures {
		log.Printf("Job %s: %d consecutive poll failures, giving up", jobID, failures)
		return c.applyFailure(ctx, gen, "轮询连续失败，放弃任务")
	}

	log.Printf("Job %s: transient poll failure (%d/%d): %v", jobID, failures, c.maxFailures, err)
	return false
}

// applyStatus 把一次状态响应落到本地状态。过期代的响应直接丢弃，
// 绝不写入已被取代的任务。
func (c *Controller) applyStatus(ctx context.Context, gen uint64, doc *forensic.StatusDocument) bool {
	c.mu.Lock()
	if gen != c.generation || c.job == nil {
		c.mu.Unlock()
		return true
	}

	c.pollFailures = 0
	c.job.Status = doc.Status

	var completed *model.AnalysisResult
	var completedJob model.Job

	switch doc.Status {
	case model.StatusProcessing:
		c.stages.Apply(model.StatusProcessing)
	case model.StatusCompleted:
		// 结果恰好产生一次，此后不可变
		if c.result == nil {
			c.result = doc.ToResult()
			view := c.interp.Interpret(c.result.Score, c.result.Label)
			c.scoreView = &view
			completed = c.result
			completedJob = *c.job
		}
		c.stages.Apply(model.StatusCompleted)
	case model.StatusFailed:
		c.stages.Apply(model.StatusFailed)
	default:
		// 未知状态：前向兼容的空操作
		c.mu.Unlock()
		return false
	}
	c.mu.Unlock()

	c.publish(ctx)

	if completed != nil {
		c.finishCompleted(completedJob, completed, gen)
	}

	return model.IsTerminal(doc.Status)
}

// finishCompleted 启动解释流并触发完成回调。锁被释放过，期间可能有
// 新提交插入，因此启动前必须在锁内重验代号；已被取代则整体作废。
func (c *Controller) finishCompleted(job model.Job, result *model.AnalysisResult, gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.streamer.Start(result.Metadata.Reason)
	c.mu.Unlock()

	if c.onDone != nil {
		c.onDone(job, result)
	}
}

// applyFailure 本地判定的终态失败（协议违约或重试超限）
func (c *Controller) applyFailure(ctx context.Context, gen uint64, reason string) bool {
	c.mu.Lock()
	if gen != c.generation || c.job == nil {
		c.mu.Unlock()
		return true
	}
	c.job.Status = model.StatusFailed
	c.stages.Apply(model.StatusFailed)
	c.mu.Unlock()

	c.publishError(ctx, reason)
	return true
}

func (c *Controller) stopPollLocked() {
	if c.cancelPoll != nil {
		c.cancelPoll()
		c.cancelPoll = nil
	}
}

func (c *Controller) publish(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishLocked(ctx)
}

func (c *Controller) publishLocked(ctx context.Context) {
	if c.publisher == nil || c.job == nil {
		return
	}
	msg := &pubsub.ProgressMessage{
		UserID: c.userID,
		JobID:  c.job.ID,
		Status: c.job.Status,
		Stages: c.stages.Views(),
	}
	if err := c.publisher.PublishProgress(ctx, msg); err != nil {
		log.Printf("Job %s: failed to publish progress: %v", c.job.ID, err)
	}
}

func (c *Controller) publishError(ctx context.Context, reason string) {
	if c.publisher == nil {
		return
	}
	c.mu.Lock()
	jobID := ""
	if c.job != nil {
		jobID = c.job.ID
	}
	msg := &pubsub.ProgressMessage{
		UserID: c.userID,
		JobID:  jobID,
		Status: model.StatusFailed,
		Stages: c.stages.Views(),
		Error:  reason,
	}
	c.mu.Unlock()
	if err := c.publisher.PublishProgress(ctx, msg); err != nil {
		log.Printf("Job %s: failed to publish progress: %v", jobID, err)
	}
}
