package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/trustguard/forensic_server/config"
	"github.com/trustguard/forensic_server/internal/api/middleware"
	"github.com/trustguard/forensic_server/internal/dashboard"
	"github.com/trustguard/forensic_server/internal/forensic"
	"github.com/trustguard/forensic_server/internal/model"
	"github.com/trustguard/forensic_server/internal/pkg/jwt"
	"github.com/trustguard/forensic_server/internal/pkg/response"
	"github.com/trustguard/forensic_server/internal/repository"
	"github.com/trustguard/forensic_server/internal/score"
	"github.com/trustguard/forensic_server/internal/testutil"
)

const testSecret = "handler-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

// stubService 远程取证服务替身：上传返回固定任务 ID，状态恒定
type stubService struct {
	jobID     string
	uploadErr error
	doc       *forensic.StatusDocument
}

func (s *stubService) Upload(ctx context.Context, filename string, media io.Reader) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	io.Copy(io.Discard, media)
	return s.jobID, nil
}

func (s *stubService) GetStatus(ctx context.Context, jobID string) (*forensic.StatusDocument, error) {
	if s.doc != nil {
		return s.doc, nil
	}
	return &forensic.StatusDocument{JobID: jobID, Status: model.StatusPending}, nil
}

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	svc      *stubService
	cfg      *config.Config
	registry *dashboard.Registry
	repo     *repository.HistoryRepository
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.JWT.ExpireHours = 24
	cfg.Upload.MaxSize = 10 << 20
	cfg.Upload.MediaDir = t.TempDir()
	cfg.Upload.AllowedExtensions = []string{".mp4", ".mov", ".jpg", ".png"}

	svc := &stubService{jobID: "job-test"}
	repo := repository.NewHistoryRepository(db)

	registry := dashboard.NewRegistry(dashboard.NewFactory(dashboard.Deps{
		Service:      svc,
		Interpreter:  score.NewDefaultInterpreter(),
		HistoryRepo:  repo,
		PollInterval: 5 * time.Millisecond,
		MaxFailures:  3,
		RevealTick:   time.Millisecond,
	}))

	analysisHandler := NewAnalysisHandler(registry, cfg)
	historyHandler := NewHistoryHandler(registry, repo)
	sessionHandler := NewSessionHandler(cfg)

	r := gin.New()
	v1 := r.Group("/api/v1")
	v1.POST("/sessions", sessionHandler.Create)

	authed := v1.Group("")
	authed.Use(middleware.Auth(testSecret))
	authed.POST("/analyses", analysisHandler.Submit)
	authed.GET("/dashboard", analysisHandler.View)
	authed.GET("/history", historyHandler.List)
	authed.POST("/history/:id/load", historyHandler.Load)

	return &testEnv{
		router:   r,
		db:       db,
		svc:      svc,
		cfg:      cfg,
		registry: registry,
		repo:     repo,
	}
}

func authToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.GenerateToken(userID, "Tester", testSecret, 1)
	require.NoError(t, err)
	return token
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func multipartBody(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}
