// Package server is the HTTP and websocket surface. Handlers translate
// wire requests into chat.Service calls and service errors into HTTP
// statuses; no business logic lives here.
package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/xaenox/threadhub/internal/chat"
	"github.com/xaenox/threadhub/internal/models"
	"github.com/xaenox/threadhub/internal/realtime"
	"github.com/xaenox/threadhub/internal/storage"
	"go.uber.org/zap"
)

type Server struct {
	e      *echo.Echo
	svc    *chat.Service
	hub    *realtime.Hub
	store  storage.Storage
	secret string
	logger *zap.Logger
}

func New(svc *chat.Service, hub *realtime.Hub, store storage.Storage, jwtSecret string, logger *zap.Logger) *Server {
	s := &Server{
		e:      echo.New(),
		svc:    svc,
		hub:    hub,
		store:  store,
		secret: jwtSecret,
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	g := s.e.Group("/api")
	g.GET("/threads", s.listThreads)
	g.POST("/threads", s.createThread)
	g.GET("/threads/:id/messages", s.threadMessages)
	g.POST("/threads/:id/messages", s.sendMessage)
	g.GET("/threads/:id/messages/:messageId/replies", s.replyThread)
	g.POST("/threads/:id/messages/:messageId/replies", s.sendReply)
	g.POST("/threads/:id/analyze", s.analyzeDraft)
	g.GET("/threads/:id/summary", s.threadSummary)
	g.GET("/threads/:id/members", s.listMembers)
	g.POST("/threads/:id/members", s.addMember)

	s.e.GET("/ws", s.websocket)
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

// httpError maps service errors onto statuses. Invite conflicts keep their
// exact user-facing wording.
func httpError(err error) error {
	switch {
	case errors.Is(err, chat.ErrAccessDenied):
		return echo.NewHTTPError(http.StatusForbidden, chat.ErrAccessDenied.Error())
	case errors.Is(err, chat.ErrEmptyContent), errors.Is(err, chat.ErrEmptyEmail):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrParentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrUnknownUser), errors.Is(err, chat.ErrAlreadyMember):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (s *Server) listThreads(c *echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	listings, err := s.svc.ListThreads(c.Request().Context(), user.ID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"threads":       listings,
		"currentUserId": user.ID,
	})
}

type createThreadRequest struct {
	Title             string   `json:"title"`
	ParticipantEmails []string `json:"participantEmails"`
}

func (s *Server) createThread(c *echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req createThreadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	result, err := s.svc.CreateThreadWithMembers(c.Request().Context(), user, req.Title, req.ParticipantEmails)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"threadId":      result.Thread.ID,
		"addedEmails":   result.AddedEmails,
		"missingEmails": result.MissingEmails,
	})
}

func (s *Server) threadMessages(c *echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	messages, err := s.svc.ThreadMessages(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": messages})
}

type sendMessageRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

func (s *Server) sendMessage(c *echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	msg, err := s.svc.SendMessage(c.Request().Context(), user, c.Param("id"), req.Content, models.Category(req.Category))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (s *Server) replyThread(c *echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	parent, replies, err := s.svc.ReplyThread(c.Request().Context(), user.ID, c.Param("id"), c.Param("messageId"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"parentMessage": parent,
		"replies":       replies,
	})
}

type sendReplyRequest struct {
	Content string `json:"content"`
}

func (s *Server) sendReply(c *echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req sendReplyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	msg, err := s.svc.SendReply(c.Request().Context(), user, c.Param("id"), c.Param("messageId"), req.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, msg)
}

type analyzeRequest struct {
	Draft string `json:"draft"`
}

func (s *Server) analyzeDraft(c *echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	result, err := s.svc.AnalyzeDraft(c.Request().Context(), user.ID, c.Param("id"), req.Draft)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) threadSummary(c *echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}

	filter := c.QueryParam("filter")
	if filter == "" {
		filter = models.FilterAll
	}

	var result models.SummaryResult
	if c.QueryParam("refresh") == "1" {
		result, err = s.svc.RefreshThreadSummary(c.Request().Context(), user.ID, c.Param("id"), filter)
	} else {
		result, err = s.svc.ThreadSummary(c.Request().Context(), user.ID, c.Param("id"), filter)
	}
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) listMembers(c *echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	members, err := s.svc.Members(c.Request().Context(), user.ID, c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"members": members})
}

type addMemberRequest struct {
	Email string `json:"email"`
}

func (s *Server) addMember(c *echo.Context) error {
	user, err := s.currentUser(c)
	if err != nil {
		return err
	}
	var req addMemberRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	added, err := s.svc.AddMemberByEmail(c.Request().Context(), user, c.Param("id"), req.Email)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": "Added " + added.Email + " to the chat",
	})
}

// websocket hands the connection to the push hub. Subscriptions are
// client-driven; the hub does not enforce per-channel membership, matching
// the hosted pub/sub collaborator this stands in for.
func (s *Server) websocket(c *echo.Context) error {
	if _, err := s.currentUser(c); err != nil {
		return err
	}
	s.hub.HandleConnection(c.Response(), c.Request())
	return nil
}
