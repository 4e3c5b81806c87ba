package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/trustguard/forensic_server/internal/api/middleware"
	"github.com/trustguard/forensic_server/internal/dashboard"
	"github.com/trustguard/forensic_server/internal/pkg/response"
	"github.com/trustguard/forensic_server/internal/repository"
)

type HistoryHandler struct {
	registry    *dashboard.Registry
	historyRepo *repository.HistoryRepository
}

func NewHistoryHandler(registry *dashboard.Registry, historyRepo *repository.HistoryRepository) *HistoryHandler {
	return &HistoryHandler{
		registry:    registry,
		historyRepo: historyRepo,
	}
}

// List 获取最近的分析历史
// GET /api/v1/history
func (h *HistoryHandler) List(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	records, err := h.historyRepo.ListByUserID(userID, repository.DefaultHistoryLimit)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, records)
}

// Load 将历史记录回放到面板
// POST /api/v1/history/:id/load
func (h *HistoryHandler) Load(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	historyID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的历史记录 ID")
		return
	}

	record, err := h.historyRepo.GetByID(historyID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			response.NotFoundError(c, "历史记录不存在")
		} else {
			response.ServerError(c, "")
		}
		return
	}
	if record.UserID != userID {
		response.PermissionError(c, "无权访问该历史记录")
		return
	}

	orch := h.registry.Get(userID)
	orch.LoadHistory(record)

	response.Success(c, orch.View())
}
