package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) handleRegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := decodeBody(c.Request, &input); err != nil {
		s.fail(c, err)
		return
	}
	payload, err := s.service.RegisterUser(c.Request.Context(), input)
	s.respond(c, http.StatusCreated, payload, err)
}

func (s *HTTPServer) handleRegisterAdmin(c *gin.Context) {
	var input RegisterInput
	if err := decodeBody(c.Request, &input); err != nil {
		s.fail(c, err)
		return
	}
	var caller *Session
	if session, ok := sessionFrom(c); ok {
		caller = &session
	}
	payload, err := s.service.RegisterAdmin(c.Request.Context(), caller, input)
	s.respond(c, http.StatusCreated, payload, err)
}

func (s *HTTPServer) handleLogin(c *gin.Context) {
	var input LoginInput
	if err := decodeBody(c.Request, &input); err != nil {
		s.fail(c, err)
		return
	}
	payload, err := s.service.Login(c.Request.Context(), input)
	s.respond(c, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleLogout(c *gin.Context) {
	session, _ := sessionFrom(c)
	if err := s.service.Logout(c.Request.Context(), session); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *HTTPServer) handleMe(c *gin.Context) {
	session, _ := sessionFrom(c)
	c.JSON(http.StatusOK, gin.H{
		"id":       session.UserID,
		"name":     session.UserName,
		"role":     session.Role,
		"is_super": session.IsSuper,
	})
}
