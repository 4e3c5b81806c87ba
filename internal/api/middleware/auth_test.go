package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trustguard/forensic_server/internal/pkg/jwt"
	"github.com/trustguard/forensic_server/internal/pkg/response"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func setupAuthRouter() *gin.Engine {
	r := gin.New()
	r.GET("/protected", Auth(testSecret), func(c *gin.Context) {
		userID, _ := GetUserID(c)
		c.JSON(http.StatusOK, gin.H{
			"user_id":      userID,
			"display_name": GetDisplayName(c),
		})
	})
	return r
}

func doRequest(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := setupAuthRouter()

	t.Run("valid token passes through", func(t *testing.T) {
		token, err := jwt.GenerateToken("guest_42", "Alice", testSecret, 1)
		require.NoError(t, err)

		w := doRequest(r, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "guest_42", body["user_id"])
		assert.Equal(t, "Alice", body["display_name"])
	})

	t.Run("missing header", func(t *testing.T) {
		w := doRequest(r, "")

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, response.CodeAuthFailed, resp.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		w := doRequest(r, "Token abc")

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, response.CodeAuthFailed, resp.Code)
		assert.Equal(t, "认证格式错误", resp.Message)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := doRequest(r, "Bearer garbage")

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, response.CodeAuthFailed, resp.Code)
	})

	t.Run("token signed with other secret", func(t *testing.T) {
		token, err := jwt.GenerateToken("guest_42", "Alice", "other-secret", 1)
		require.NoError(t, err)

		w := doRequest(r, "Bearer "+token)

		var resp response.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, response.CodeAuthFailed, resp.Code)
	})
}

func TestGetUserID_NoContextValue(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	id, ok := GetUserID(c)
	assert.False(t, ok)
	assert.Empty(t, id)
}
