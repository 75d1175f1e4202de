package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/whatif-grades-api/internal/models"
	appErrors "github.com/noah-isme/whatif-grades-api/pkg/errors"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
	}
	return &models.JWTClaims{UserID: "user-1"}, nil
}

func TestJWTMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", JWT(stubValidator{}), func(c *gin.Context) {
		c.String(http.StatusOK, CurrentUserID(c))
	})

	cases := []struct {
		header string
		status int
		body   string
	}{
		{header: "", status: http.StatusUnauthorized},
		{header: "Token good", status: http.StatusUnauthorized},
		{header: "Bearer bad", status: http.StatusUnauthorized},
		{header: "Bearer good", status: http.StatusOK, body: "user-1"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, tc.header)
		if tc.body != "" {
			assert.Equal(t, tc.body, w.Body.String())
		}
	}
}
