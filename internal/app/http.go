package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tutorials/api/internal/auth"
	"tutorials/api/internal/rbac"
	"tutorials/api/internal/util"
)

const (
	sessionKey   = "session"
	requestIDKey = "request_id"
)

type HTTPServer struct {
	service     *Service
	corsOrigins []string
	log         zerolog.Logger
}

func NewHTTPServer(service *Service, corsOrigins []string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigins: corsOrigins, log: service.log}
}

func (s *HTTPServer) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), cors.New(s.corsConfig()))
	router.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	})

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/api/ready", s.handleReady)

	api := router.Group("/api")
	api.Use(s.optionalSession())

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", s.handleRegisterUser)
		authRoutes.POST("/admin/register", s.handleRegisterAdmin)
		authRoutes.POST("/login", s.handleLogin)
		authRoutes.POST("/logout", s.requireSession(), s.handleLogout)
		authRoutes.GET("/me", s.requireSession(), s.handleMe)
	}

	topics := api.Group("/topics")
	{
		topics.GET("/root", s.handleRootTopics)
		topics.GET("/slug/*path", s.handleResolvePath)
		topics.GET("/:id", s.handleGetTopic)
		topics.GET("/:id/children", s.handleChildren)
		topics.GET("/:id/tree", s.handleTree)
		topics.GET("/:id/comments", s.handleListComments)
		topics.POST("/:id/comments", s.requireAction(rbac.ActionComment), s.handlePostComment)

		topics.POST("", s.requireAction(rbac.ActionWrite), s.handleCreateTopic)
		topics.PUT("/:id", s.requireAction(rbac.ActionWrite), s.handleUpdateTopic)
		topics.DELETE("/:id", s.requireAction(rbac.ActionWrite), s.handleDeleteTopic)
		topics.POST("/:id/reorder", s.requireAction(rbac.ActionWrite), s.handleReorder)
		topics.POST("/:id/content", s.requireAction(rbac.ActionWrite), s.handleAddContent)
		topics.POST("/slug/*path", s.requireAction(rbac.ActionWrite), s.handleAddContentByPath)
	}

	blocks := api.Group("/content-blocks")
	{
		blocks.GET("", s.handleListBlocks)
		blocks.GET("/:id", s.handleGetBlock)
		blocks.POST("", s.requireAction(rbac.ActionWrite), s.handleCreateBlock)
		blocks.PUT("/:id", s.requireAction(rbac.ActionWrite), s.handleUpdateBlock)
		blocks.DELETE("/:id", s.requireAction(rbac.ActionWrite), s.handleDeleteBlock)
	}

	api.POST("/comments/:id/like", s.requireAction(rbac.ActionLike), s.handleLikeComment)

	api.POST("/mcqs", s.requireAction(rbac.ActionWrite), s.handleCreateMCQ)
	api.GET("/mcqs/:id", s.handleGetMCQ)

	api.POST("/uploads/presign", s.requireAction(rbac.ActionUpload), s.handlePresign)
	api.POST("/admin/rebuild-paths", s.requireAction(rbac.ActionMaintain), s.handleRebuildPaths)

	return router
}

func (s *HTTPServer) corsConfig() cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range s.corsOrigins {
		if origin == "*" {
			config.AllowAllOrigins = true
			config.AllowOrigins = nil
			return config
		}
		config.AllowOrigins = append(config.AllowOrigins, origin)
	}
	if len(config.AllowOrigins) == 0 {
		config.AllowAllOrigins = true
	}
	return config
}

func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("")
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Header("Cache-Control", "no-store")

		started := time.Now()
		c.Next()

		event := s.log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = s.log.Error()
		}
		event.
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Int64("duration_ms", time.Since(started).Milliseconds()).
			Msg("request")
	}
}

// optionalSession attaches the caller's session when a bearer token is
// present. A token that fails verification is rejected outright rather than
// treated as anonymous.
func (s *HTTPServer) optionalSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.Request)
		if token == "" {
			c.Next()
			return
		}
		session, err := s.service.SessionFromToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
				writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", nil)
				return
			}
			s.log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Msg("session lookup failed")
			writeError(c, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
			return
		}
		c.Set(sessionKey, session)
		c.Next()
	}
}

func (s *HTTPServer) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := sessionFrom(c); !ok {
			writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		c.Next()
	}
}

func (s *HTTPServer) requireAction(action rbac.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := sessionFrom(c)
		if !ok {
			writeError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return
		}
		if !s.service.Can(session, action) {
			s.forbid(c, session, action)
			return
		}
		c.Next()
	}
}

// forbid writes a 403 Forbidden response and logs the denial
func (s *HTTPServer) forbid(c *gin.Context, session Session, action rbac.Action) {
	s.log.Warn().
		Str("request_id", c.GetString(requestIDKey)).
		Int64("user_id", session.UserID).
		Str("role", session.Role).
		Str("action", string(action)).
		Msg("permission denied")
	writeError(c, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

func sessionFrom(c *gin.Context) (Session, bool) {
	value, ok := c.Get(sessionKey)
	if !ok {
		return Session{}, false
	}
	session, ok := value.(Session)
	return session, ok
}

func (s *HTTPServer) handleReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
	}

	c.JSON(statusCode, gin.H{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

// respond writes payload with status, or the mapped error when err is set.
func (s *HTTPServer) respond(c *gin.Context, status int, payload any, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(status, payload)
}

func (s *HTTPServer) fail(c *gin.Context, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Str("request_id", c.GetString(requestIDKey)).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	writeError(c, status, code, message, details)
}

func writeError(c *gin.Context, status int, code, message string, details any) {
	response := gin.H{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	c.AbortWithStatusJSON(status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return domainError(http.StatusBadRequest, "VALIDATION_ERROR", "request body required", nil)
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return domainError(http.StatusBadRequest, "VALIDATION_ERROR", "request body required", nil)
		}
		return domainError(http.StatusBadRequest, "INVALID_JSON", fmt.Sprintf("invalid JSON body: %v", err), nil)
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Invalid id", nil)
	}
	return id, nil
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domainError(http.StatusBadRequest, "VALIDATION_ERROR", name+" must be an integer", nil)
	}
	return value, nil
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) || errors.As(storeError(err), &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
