// ABOUTME: Chat session and message handlers. A user message routes through
// ABOUTME: the provider registry and the reply is appended as the assistant.

package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pulsehq/pulse/internal/protocol"
	"github.com/pulsehq/pulse/internal/store"
)

// CreateSessionRequest is the request body for POST /api/sessions.
type CreateSessionRequest struct {
	Owner *string `json:"owner,omitempty"`
	Title string  `json:"title,omitempty"`
	Model string  `json:"model,omitempty"`
}

// AppendMessageRequest is the request body for POST /api/sessions/:id/messages.
// Role defaults to user; only user messages produce an assistant reply.
type AppendMessageRequest struct {
	Role     store.MessageRole `json:"role,omitempty"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// MessageExchange pairs the stored user message with the assistant reply,
// when one was produced.
type MessageExchange struct {
	Message *store.ChatMessage `json:"message"`
	Reply   *store.ChatMessage `json:"reply,omitempty"`
}

func (s *Server) handleCreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, protocol.Fail("invalid request body"))
	}

	session, err := s.store.CreateSession(store.SessionInput{
		Owner: req.Owner,
		Title: req.Title,
		Model: req.Model,
	})
	if err != nil {
		return s.storeError(c, err)
	}

	s.logger.Info("session created", "session_id", session.ID, "model", session.Model)
	return c.JSON(http.StatusCreated, protocol.OK(session))
}

func (s *Server) handleListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, protocol.OK(s.store.ListSessions()))
}

func (s *Server) handleGetSession(c echo.Context) error {
	session, err := s.store.GetSession(c.Param("id"))
	if err != nil {
		return s.storeError(c, err)
	}
	return c.JSON(http.StatusOK, protocol.OK(session))
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if !s.store.DeleteSession(id) {
		return c.JSON(http.StatusNotFound, protocol.Fail(store.ErrSessionNotFound.Error()))
	}

	s.logger.Info("session deleted", "session_id", id)
	return c.JSON(http.StatusOK, protocol.OK(map[string]string{"id": id}))
}

func (s *Server) handleAppendMessage(c echo.Context) error {
	var req AppendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, protocol.Fail("invalid request body"))
	}
	if req.Role == "" {
		req.Role = store.RoleUser
	}

	sessionID := c.Param("id")
	session, err := s.store.GetSession(sessionID)
	if err != nil {
		return s.storeError(c, err)
	}

	msg, err := s.store.AppendMessage(sessionID, store.MessageInput{
		Role:     req.Role,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		return s.storeError(c, err)
	}

	exchange := MessageExchange{Message: msg}
	if req.Role == store.RoleUser {
		exchange.Reply = s.produceReply(c, session, req.Content)
	}

	return c.JSON(http.StatusCreated, protocol.OK(exchange))
}

// produceReply routes the user message to the provider matching the
// session's model and stores the result as an assistant message. A missing
// provider or a provider error is logged and leaves the exchange without a
// reply; the user message is already persisted.
func (s *Server) produceReply(c echo.Context, session *store.ChatSession, content string) *store.ChatMessage {
	provider, err := s.registry.Lookup(session.Model)
	if err != nil {
		s.logger.Warn("no provider for session model", "session_id", session.ID, "model", session.Model)
		return nil
	}

	replyText, err := provider.Respond(c.Request().Context(), session, content)
	if err != nil {
		s.logger.Error("provider failed", "provider", provider.Name(), "session_id", session.ID, "error", err)
		return nil
	}

	reply, err := s.store.AppendMessage(session.ID, store.MessageInput{
		Role:    store.RoleAssistant,
		Content: replyText,
		Model:   session.Model,
	})
	if err != nil {
		s.logger.Error("storing assistant reply", "session_id", session.ID, "error", err)
		return nil
	}
	return reply
}
