package handler

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trustguard/forensic_server/config"
	"github.com/trustguard/forensic_server/internal/model/dto"
	"github.com/trustguard/forensic_server/internal/pkg/jwt"
	"github.com/trustguard/forensic_server/internal/pkg/response"
)

type SessionHandler struct {
	cfg *config.Config
}

func NewSessionHandler(cfg *config.Config) *SessionHandler {
	return &SessionHandler{cfg: cfg}
}

// Create 创建访客会话并签发令牌
// POST /api/v1/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, "参数错误: "+err.Error())
		return
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		response.ServerError(c, "")
		return
	}
	userID := "guest_" + hex.EncodeToString(buf)

	token, err := jwt.GenerateToken(userID, req.DisplayName, h.cfg.JWT.Secret, h.cfg.JWT.ExpireHours)
	if err != nil {
		response.ServerError(c, "令牌签发失败")
		return
	}

	response.Success(c, dto.SessionResponse{
		Token:       token,
		UserID:      userID,
		DisplayName: req.DisplayName,
		ExpiresAt:   time.Now().Add(time.Duration(h.cfg.JWT.ExpireHours) * time.Hour).Format(time.RFC3339),
	})
}
