package dashboard

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trustguard/forensic_server/internal/forensic"
	"github.com/trustguard/forensic_server/internal/model"
	"github.com/trustguard/forensic_server/internal/repository"
	"github.com/trustguard/forensic_server/internal/score"
	"github.com/trustguard/forensic_server/internal/stage"
	"github.com/trustguard/forensic_server/internal/testutil"
)

// stubService 固定脚本的远程服务替身：上传即成，状态恒为 COMPLETED
type stubService struct {
	jobID  string
	doc    *forensic.StatusDocument
	docErr error
}

func (s *stubService) Upload(ctx context.Context, filename string, media io.Reader) (string, error) {
	return s.jobID, nil
}

func (s *stubService) GetStatus(ctx context.Context, jobID string) (*forensic.StatusDocument, error) {
	if s.docErr != nil {
		return nil, s.docErr
	}
	return s.doc, nil
}

func newTestRegistry(t *testing.T, db *gorm.DB, svc *stubService) *Registry {
	t.Helper()

	return NewRegistry(NewFactory(Deps{
		Service:      svc,
		Interpreter:  score.NewDefaultInterpreter(),
		HistoryRepo:  repository.NewHistoryRepository(db),
		PollInterval: 5 * time.Millisecond,
		MaxFailures:  3,
		RevealTick:   time.Millisecond,
	}))
}

func TestRegistry_Get(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	registry := newTestRegistry(t, db, &stubService{jobID: "job-1"})

	a := registry.Get("guest_a")
	b := registry.Get("guest_b")

	assert.NotSame(t, a, b, "each user gets an isolated dashboard")
	assert.Same(t, a, registry.Get("guest_a"), "repeat lookups return the same instance")
}

func TestOrchestrator_View_Empty(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	registry := newTestRegistry(t, db, &stubService{jobID: "job-1"})
	orch := registry.Get("guest_1")

	view := orch.View()

	assert.Nil(t, view.Job)
	assert.Nil(t, view.Result)
	assert.Nil(t, view.ScoreView)
	require.Len(t, view.Stages, 4)
	for _, s := range view.Stages {
		assert.Equal(t, stage.StatePending, s.State)
	}
	assert.Empty(t, view.Explanation.Revealed)
	assert.False(t, view.Explanation.Done)
	assert.Empty(t, view.History)
}

func TestOrchestrator_SubmitToView(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	scoreVal := 0.95
	svc := &stubService{
		jobID: "job-1",
		doc: &forensic.StatusDocument{
			JobID:  "job-1",
			Status: model.StatusCompleted,
			Score:  &scoreVal,
			Label:  model.LabelFake,
			Metadata: forensic.StatusMetadata{
				Reason: "Heavy compositing artifacts.",
			},
		},
	}

	registry := newTestRegistry(t, db, svc)
	orch := registry.Get("guest_1")

	jobID, err := orch.Submit(context.Background(), "clip.mp4", "/tmp/clip.mp4", strings.NewReader("media"))
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)

	require.Eventually(t, func() bool {
		v := orch.View()
		return v.Job != nil && v.Job.Status == model.StatusCompleted
	}, 5*time.Second, 5*time.Millisecond)

	view := orch.View()
	require.NotNil(t, view.Result)
	assert.Equal(t, model.LabelFake, view.Result.Label)
	require.NotNil(t, view.ScoreView)
	assert.Equal(t, score.CategorySynthetic, view.ScoreView.Category)
	assert.Equal(t, "clip.mp4", view.Job.FileName)

	for _, s := range view.Stages {
		assert.Equal(t, stage.StateCompleted, s.State)
	}

	// 解释流最终披露完整文本
	require.Eventually(t, func() bool {
		v := orch.View()
		return v.Explanation.Done && strings.Contains(v.Explanation.Revealed, "compositing")
	}, 5*time.Second, 5*time.Millisecond)
}

func TestOrchestrator_LoadHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	record := testutil.TestHistoryRecord(t, db, "guest_1",
		testutil.WithJobID("job-old"),
		testutil.WithLabel(model.LabelFake, 0.93),
		testutil.WithMetadata(t, model.ResultMetadata{Reason: "Stored reason."}))

	registry := newTestRegistry(t, db, &stubService{jobID: "job-new"})
	orch := registry.Get("guest_1")

	orch.LoadHistory(record)

	view := orch.View()
	require.NotNil(t, view.Job)
	assert.Equal(t, "job-old", view.Job.ID)
	assert.Equal(t, model.StatusCompleted, view.Job.Status)
	require.NotNil(t, view.Result)
	assert.Equal(t, 0.93, view.Result.Score)
	require.NotNil(t, view.ScoreView)
	assert.Equal(t, score.CategorySynthetic, view.ScoreView.Category)

	for _, s := range view.Stages {
		assert.Equal(t, stage.StateCompleted, s.State)
	}

	require.Eventually(t, func() bool {
		return strings.Contains(orch.View().Explanation.Revealed, "Stored")
	}, 5*time.Second, 5*time.Millisecond)
}

func TestOrchestrator_HistoryInView(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	testutil.TestHistoryRecord(t, db, "guest_1", testutil.WithJobID("job-a"))
	testutil.TestHistoryRecord(t, db, "guest_1", testutil.WithJobID("job-b"))
	testutil.TestHistoryRecord(t, db, "guest_2", testutil.WithJobID("job-c"))

	registry := newTestRegistry(t, db, &stubService{jobID: "job-1"})
	view := registry.Get("guest_1").View()

	require.Len(t, view.History, 2)
	for _, item := range view.History {
		assert.NotEqual(t, "job-c", item.JobID, "history is scoped per user")
	}
}

func TestOrchestrator_FailedSubmitLeavesHistoryUsable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := &stubService{
		jobID:  "job-1",
		docErr: errors.New("boom"), // 非瞬时错误，任务判定失败
	}

	registry := newTestRegistry(t, db, svc)
	orch := registry.Get("guest_1")

	_, err := orch.Submit(context.Background(), "clip.mp4", "", strings.NewReader("media"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v := orch.View()
		return v.Job != nil && v.Job.Status == model.StatusFailed
	}, 5*time.Second, 5*time.Millisecond)

	view := orch.View()
	assert.Nil(t, view.Result)
	assert.Nil(t, view.ScoreView)
}
