package app

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tutorials/api/internal/store"
)

func (s *HTTPServer) handleRootTopics(c *gin.Context) {
	limit, err := queryInt(c, "limit", store.DefaultRootLimit)
	if err != nil {
		s.fail(c, err)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		s.fail(c, err)
		return
	}
	includeChildCount := c.Query("includeChildCount")
	payload, err := s.service.ListRootTopics(c.Request.Context(), store.RootListOptions{
		Limit:             limit,
		Offset:            offset,
		IncludeChildCount: includeChildCount == "1" || strings.EqualFold(includeChildCount, "true"),
	})
	s.respond(c, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleGetTopic(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	payload, err := s.service.GetTopic(c.Request.Context(), id)
	s.respond(c, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleChildren(c *gin.Context) {
	parentID, err := ParseParentID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	children, err := s.service.ListChildren(c.Request.Context(), parentID)
	s.respond(c, http.StatusOK, children, err)
}

func (s *HTTPServer) handleTree(c *gin.Context) {
	parentID, err := ParseParentID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	depth, err := queryInt(c, "depth", store.DefaultSubtreeDepth)
	if err != nil {
		s.fail(c, err)
		return
	}
	nodes, err := s.service.TopicTree(c.Request.Context(), parentID, depth)
	s.respond(c, http.StatusOK, nodes, err)
}

func (s *HTTPServer) handleResolvePath(c *gin.Context) {
	payload, err := s.service.ResolvePath(c.Request.Context(), c.Param("path"))
	s.respond(c, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleCreateTopic(c *gin.Context) {
	var input CreateTopicInput
	if err := decodeBody(c.Request, &input); err != nil {
		s.fail(c, err)
		return
	}
	session, _ := sessionFrom(c)
	payload, err := s.service.CreateTopic(c.Request.Context(), session, input)
	s.respond(c, http.StatusCreated, payload, err)
}

func (s *HTTPServer) handleUpdateTopic(c *gin.Context) {
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
	payload, err := s.service.UpdateTopic(c.Request.Context(), id, fields)
	s.respond(c, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleDeleteTopic(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	payload, err := s.service.DeleteTopic(c.Request.Context(), id)
	s.respond(c, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleReorder(c *gin.Context) {
	parentID, err := ParseParentID(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var items []ReorderItemInput
	if err := decodeBody(c.Request, &items); err != nil {
		s.fail(c, domainError(http.StatusBadRequest, "VALIDATION_ERROR", "Request body must be an array of {id, order_no}", nil))
		return
	}
	payload, err := s.service.BulkReorder(c.Request.Context(), parentID, items)
	s.respond(c, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleAddContent(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		s.fail(c, err)
		return
	}
	var input BlockInput
	if err := decodeBody(c.Request, &input); err != nil {
		s.fail(c, err)
		return
	}
	payload, err := s.service.AddContent(c.Request.Context(), id, input)
	s.respond(c, http.StatusCreated, payload, err)
}

// handleAddContentByPath serves POST /api/topics/slug/<path>/content.
func (s *HTTPServer) handleAddContentByPath(c *gin.Context) {
	path, ok := strings.CutSuffix(strings.TrimRight(c.Param("path"), "/"), "/content")
	if !ok {
		writeError(c, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	var input BlockInput
	if err := decodeBody(c.Request, &input); err != nil {
		s.fail(c, err)
		return
	}
	payload, err := s.service.AddContentByPath(c.Request.Context(), path, input)
	s.respond(c, http.StatusCreated, payload, err)
}

func (s *HTTPServer) handleRebuildPaths(c *gin.Context) {
	payload, err := s.service.RebuildPaths(c.Request.Context())
	s.respond(c, http.StatusOK, payload, err)
}
