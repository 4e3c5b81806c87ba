package dto

// SessionRequest 创建访客会话
type SessionRequest struct {
	DisplayName string `json:"display_name" binding:"required,min=1,max=50"`
}

// SessionResponse 会话令牌
type SessionResponse struct {
	Token       string `json:"token"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	ExpiresAt   string `json:"expires_at"`
}
