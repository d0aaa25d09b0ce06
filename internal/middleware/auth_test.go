package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/pageza/foodgram/backend/internal/mocks"
	"github.com/pageza/foodgram/backend/internal/types"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*types.TokenClaims, error) {
	if token == "good" {
		return &types.TokenClaims{UserID: 7, Username: "cook"}, nil
	}
	return nil, errors.New("bad token")
}

func setupAuthRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	router.GET("/", handlers...)
	return router
}

func doGet(router http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	router := setupAuthRouter(AuthMiddleware(stubValidator{}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bad format", "good", http.StatusUnauthorized},
		{"invalid token", "Bearer bad", http.StatusUnauthorized},
		{"valid bearer", "Bearer good", http.StatusOK},
		{"valid token scheme", "Token good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(router, tt.header)
			assert.Equal(t, tt.status, w.Code)
		})
	}

	assert.JSONEq(t, `{"user_id":7}`, doGet(router, "Bearer good").Body.String())
}

func TestOptionalAuthMiddleware(t *testing.T) {
	router := setupAuthRouter(OptionalAuthMiddleware(stubValidator{}))

	w := doGet(router, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":0}`, w.Body.String())

	assert.JSONEq(t, `{"user_id":7}`, doGet(router, "Bearer good").Body.String())
	assert.Equal(t, http.StatusUnauthorized, doGet(router, "Bearer bad").Code)
}

func TestRequireAdmin(t *testing.T) {
	admins := new(mocks.MockAdminChecker)
	admins.On("IsAdmin", mock.Anything, uint(7)).Return(false, nil).Once()
	admins.On("IsAdmin", mock.Anything, uint(7)).Return(true, nil).Once()
	router := setupAuthRouter(AuthMiddleware(stubValidator{}), RequireAdmin(admins))

	assert.Equal(t, http.StatusForbidden, doGet(router, "Bearer good").Code)
	assert.Equal(t, http.StatusOK, doGet(router, "Bearer good").Code)
	admins.AssertExpectations(t)
}

func TestRequireAdminLookupFails(t *testing.T) {
	admins := new(mocks.MockAdminChecker)
	admins.On("IsAdmin", mock.Anything, uint(7)).Return(false, errors.New("db down"))
	router := setupAuthRouter(AuthMiddleware(stubValidator{}), RequireAdmin(admins))

	assert.Equal(t, http.StatusForbidden, doGet(router, "Bearer good").Code)
}

func TestAuthMiddlewarePassesRawToken(t *testing.T) {
	validator := new(mocks.MockTokenValidator)
	validator.On("ValidateToken", "abc.def.ghi").Return(&types.TokenClaims{UserID: 3, Username: "cook"}, nil)
	router := setupAuthRouter(AuthMiddleware(validator))

	w := doGet(router, "Token abc.def.ghi")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":3}`, w.Body.String())
	validator.AssertExpectations(t)
}
