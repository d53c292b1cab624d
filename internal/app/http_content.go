package app

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tutorials/api/internal/upload"
)

func (s *HTTPServer) handleListBlocks(c *gin.Context) {
	raw := strings.TrimSpace(c.Query("topic_id"))
	if raw == "" {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "topic_id query param required", nil)
		return
	}
	topicID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || topicID <= 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid topic id", nil)
		return
	}
	blocks, err := s.service.ListBlocks(c.Request.Context(), topicID)
	s.respond(c, http.StatusOK, blocks, err)
}

func (s *HTTPServer) handleGetBlock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	block, err := s.service.GetBlock(c.Request.Context(), id)
	s.respond(c, http.StatusOK, block, err)
}

func (s *HTTPServer) handleCreateBlock(c *gin.Context) {
	var input BlockInput
	if err := decodeBody(c.Request, &input); err != nil {
		s.fail(c, err)
		return
	}
	if input.TopicID <= 0 {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "topic_id is required", nil)
		return
	}
	payload, err := s.service.AddContent(c.Request.Context(), input.TopicID, input)
	s.respond(c, http.StatusCreated, payload, err)
}

func (s *HTTPServer) handleUpdateBlock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var fields map[string]json.RawMessage
	if err := decodeBody(c.Request, &fields); err != nil {
		s.fail(c, err)
		return
	}
	payload, err := s.service.UpdateBlock(c.Request.Context(), id, fields)
	s.respond(c, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleDeleteBlock(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	payload, err := s.service.DeleteBlock(c.Request.Context(), id)
	s.respond(c, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleListComments(c *gin.Context) {
	topicID, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	comments, err := s.service.ListComments(c.Request.Context(), topicID)
	s.respond(c, http.StatusOK, comments, err)
}

func (s *HTTPServer) handlePostComment(c *gin.Context) {
	topicID, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var input CommentInput
	if err := decodeBody(c.Request, &input); err != nil {
		s.fail(c, err)
		return
	}
	session, _ := sessionFrom(c)
	payload, err := s.service.PostComment(c.Request.Context(), session, topicID, input)
	s.respond(c, http.StatusCreated, payload, err)
}

func (s *HTTPServer) handleLikeComment(c *gin.Context) {
	commentID, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	session, _ := sessionFrom(c)
	payload, err := s.service.LikeComment(c.Request.Context(), session, commentID)
	s.respond(c, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleCreateMCQ(c *gin.Context) {
	var input MCQInput
	if err := decodeBody(c.Request, &input); err != nil {
		s.fail(c, err)
		return
	}
	payload, err := s.service.CreateMCQ(c.Request.Context(), input)
	s.respond(c, http.StatusCreated, payload, err)
}

func (s *HTTPServer) handleGetMCQ(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	mcq, err := s.service.GetMCQ(c.Request.Context(), id)
	s.respond(c, http.StatusOK, mcq, err)
}

func (s *HTTPServer) handlePresign(c *gin.Context) {
	var req upload.Request
	if err := decodeBody(c.Request, &req); err != nil {
		s.fail(c, err)
		return
	}
	presigned, err := s.service.PresignUpload(c.Request.Context(), req)
	s.respond(c, http.StatusOK, presigned, err)
}
