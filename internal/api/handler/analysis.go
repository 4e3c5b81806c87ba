package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/trustguard/forensic_server/config"
	"github.com/trustguard/forensic_server/internal/api/middleware"
	"github.com/trustguard/forensic_server/internal/controller"
	"github.com/trustguard/forensic_server/internal/dashboard"
	"github.com/trustguard/forensic_server/internal/forensic"
	"github.com/trustguard/forensic_server/internal/model/dto"
	"github.com/trustguard/forensic_server/internal/pkg/response"
)

type AnalysisHandler struct {
	registry *dashboard.Registry
	cfg      *config.Config
}

func NewAnalysisHandler(registry *dashboard.Registry, cfg *config.Config) *AnalysisHandler {
	return &AnalysisHandler{
		registry: registry,
		cfg:      cfg,
	}
}

// Submit 提交媒体进行取证分析
// POST /api/v1/analyses
func (h *AnalysisHandler) Submit(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.ParamError(c, "请上传文件")
		return
	}
	defer file.Close()

	if header.Size > h.cfg.Upload.MaxSize {
		response.ParamError(c, "文件过大")
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !h.extensionAllowed(ext) {
		response.ParamError(c, "不支持的媒体格式")
		return
	}

	// 保留本地副本：历史回放和后续归档都依赖它
	mediaPath, err := h.saveMedia(file, ext)
	if err != nil {
		response.ServerError(c, "媒体保存失败")
		return
	}

	media, err := os.Open(mediaPath)
	if err != nil {
		response.ServerError(c, "媒体保存失败")
		return
	}
	defer media.Close()

	orch := h.registry.Get(userID)
	jobID, err := orch.Submit(c.Request.Context(), header.Filename, mediaPath, media)
	if err != nil {
		// 提交失败的媒体副本没有保留价值
		os.Remove(mediaPath)

		switch {
		case errors.Is(err, controller.ErrNoMedia):
			response.ParamError(c, err.Error())
		case errors.Is(err, forensic.ErrUploadFailed):
			response.UploadError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, dto.SubmitResponse{
		JobID:  jobID,
		Status: "PENDING",
	})
}

// View 获取当前面板视图模型
// GET /api/v1/dashboard
func (h *AnalysisHandler) View(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	orch := h.registry.Get(userID)
	response.Success(c, orch.View())
}

func (h *AnalysisHandler) extensionAllowed(ext string) bool {
	for _, allowed := range h.cfg.Upload.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (h *AnalysisHandler) saveMedia(file io.Reader, ext string) (string, error) {
	if err := os.MkdirAll(h.cfg.Upload.MediaDir, 0755); err != nil {
		return "", err
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	path := filepath.Join(h.cfg.Upload.MediaDir, hex.EncodeToString(buf)+ext)

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(path)
		return "", err
	}

	return path, nil
}
