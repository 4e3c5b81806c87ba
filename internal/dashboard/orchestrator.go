package dashboard

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/trustguard/forensic_server/internal/controller"
	"github.com/trustguard/forensic_server/internal/model"
	"github.com/trustguard/forensic_server/internal/model/dto"
	"github.com/trustguard/forensic_server/internal/repository"
	"github.com/trustguard/forensic_server/internal/reveal"
	"github.com/trustguard/forensic_server/internal/score"
	"github.com/trustguard/forensic_server/internal/stage"
)

// Orchestrator 单个用户面板的组合根：唯一允许同时读取
// controller/stage/score/reveal 并把历史记录纳入视图的组件。
// 自身不做业务逻辑，只组装只读视图模型。
type Orchestrator struct {
	userID      string
	ctrl        *controller.Controller
	stages      *stage.Sequence
	streamer    *reveal.Streamer
	historyRepo *repository.HistoryRepository
}

func NewOrchestrator(
	userID string,
	ctrl *controller.Controller,
	stages *stage.Sequence,
	streamer *reveal.Streamer,
	historyRepo *repository.HistoryRepository,
) *Orchestrator {
	return &Orchestrator{
		userID:      userID,
		ctrl:        ctrl,
		stages:      stages,
		streamer:    streamer,
		historyRepo: historyRepo,
	}
}

// Submit 转发到 controller
func (o *Orchestrator) Submit(ctx context.Context, filename, mediaPath string, media io.Reader) (string, error) {
	return o.ctrl.Submit(ctx, filename, mediaPath, media)
}

// LoadHistory 回放一条已取出的历史记录：取消在途轮询后，把存储的
// 结果重新走一遍阶段投影、评分和解释流，不重新提交、不触网。
func (o *Orchestrator) LoadHistory(record *model.HistoryRecord) {
	o.ctrl.ShowStored(record.ToResult())
}

// View 组装当前时刻的只读视图模型
func (o *Orchestrator) View() *dto.DashboardView {
	job, result, scoreView := o.ctrl.Snapshot()
	snap := o.streamer.Snapshot()

	view := &dto.DashboardView{
		Stages: stageViews(o.stages.Views()),
		Explanation: dto.ExplanationView{
			Revealed: snap.Revealed,
			Done:     snap.Done,
		},
		History: o.historyItems(),
	}

	if job != nil {
		view.Job = &dto.JobView{
			ID:       job.ID,
			Status:   job.Status,
			FileName: job.FileName,
		}
		if !job.SubmittedAt.IsZero() {
			view.Job.SubmittedAt = job.SubmittedAt.Format(time.RFC3339)
		}
	}

	if result != nil {
		view.Result = &dto.ResultView{
			JobID:       result.JobID,
			Label:       result.Label,
			Score:       result.Score,
			HeatmapURL:  result.HeatmapURL,
			Reason:      result.Metadata.Reason,
			Regions:     result.Metadata.Regions,
			Uncertainty: result.Metadata.Uncertainty,
		}
	}

	if scoreView != nil {
		view.ScoreView = &dto.ScoreView{
			Percent:  scoreView.Percent,
			Category: scoreView.Category,
			Color:    scoreView.Color,
		}
	}

	return view
}

func (o *Orchestrator) historyItems() []dto.HistoryItem {
	records, err := o.historyRepo.ListByUserID(o.userID, repository.DefaultHistoryLimit)
	if err != nil {
		log.Printf("User %s: failed to load history: %v", o.userID, err)
		return []dto.HistoryItem{}
	}

	items := make([]dto.HistoryItem, len(records))
	for i, r := range records {
		items[i] = dto.HistoryItem{
			ID:         r.ID,
			JobID:      r.JobID,
			FileName:   r.FileName,
			Label:      r.Label,
			Score:      r.Score,
			ArchiveURL: r.ArchiveURL,
			CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		}
	}
	return items
}

func stageViews(views []stage.View) []dto.StageView {
	out := make([]dto.StageView, len(views))
	for i, v := range views {
		out[i] = dto.StageView{ID: v.ID, Name: v.Name, State: v.State}
	}
	return out
}

// Factory 按用户构造面板组件并接好依赖
type Factory func(userID string) *Orchestrator

// Registry 每个用户一个面板实例
type Registry struct {
	mu      sync.Mutex
	byUser  map[string]*Orchestrator
	factory Factory
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{
		byUser:  make(map[string]*Orchestrator),
		factory: factory,
	}
}

// Get 返回用户的面板，首次访问时创建
func (r *Registry) Get(userID string) *Orchestrator {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o, ok := r.byUser[userID]; ok {
		return o
	}
	o := r.factory(userID)
	r.byUser[userID] = o
	return o
}

// 便于组装：一次性创建 controller 及其拥有的派生状态组件
type Deps struct {
	Service      controller.AnalysisService
	Interpreter  *score.Interpreter
	Publisher    controller.ProgressPublisher
	HistoryRepo  *repository.HistoryRepository
	OnComplete   func(userID string, job model.Job, result *model.AnalysisResult)
	PollInterval time.Duration
	MaxFailures  int
	RevealTick   time.Duration
	RevealNotify func(userID string, snap reveal.Snapshot)
}

// NewFactory 标准装配：stage/reveal 组件归各自所有者，controller
// 在轮询期间推进它们，orchestrator 只读。
func NewFactory(deps Deps) Factory {
	return func(userID string) *Orchestrator {
		stages := stage.NewSequence()

		var notify func(reveal.Snapshot)
		if deps.RevealNotify != nil {
			notify = func(snap reveal.Snapshot) {
				deps.RevealNotify(userID, snap)
			}
		}
		streamer := reveal.NewStreamer(deps.RevealTick, notify)

		var onDone controller.CompleteFunc
		if deps.OnComplete != nil {
			onDone = func(job model.Job, result *model.AnalysisResult) {
				deps.OnComplete(userID, job, result)
			}
		}

		ctrl := controller.New(
			userID,
			deps.Service,
			deps.Interpreter,
			stages,
			streamer,
			deps.Publisher,
			onDone,
			deps.PollInterval,
			deps.MaxFailures,
		)

		return NewOrchestrator(userID, ctrl, stages, streamer, deps.HistoryRepo)
	}
}
