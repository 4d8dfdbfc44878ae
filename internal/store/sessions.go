// ABOUTME: Chat session and message operations on the store.
// ABOUTME: Appending a message always refreshes the parent session's UpdatedAt.

package store

import "github.com/google/uuid"

// SessionInput carries the caller-supplied fields for CreateSession.
type SessionInput struct {
	Owner *string
	Title string
	Model string
}

// CreateSession adds a new, empty chat session.
func (s *Store) CreateSession(input SessionInput) (*ChatSession, error) {
	if input.Title == "" {
		input.Title = "New chat"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now()
	session := &ChatSession{
		ID:        uuid.New().String(),
		Owner:     input.Owner,
		Title:     input.Title,
		Model:     input.Model,
		Messages:  []ChatMessage{},
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	s.sessions[session.ID] = session
	s.sessionOrder = append(s.sessionOrder, session.ID)
	return session.clone(), nil
}

// GetSession returns a copy of the session, or ErrSessionNotFound.
func (s *Store) GetSession(id string) (*ChatSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session.clone(), nil
}

// ListSessions returns copies of all sessions in insertion order.
func (s *Store) ListSessions() []*ChatSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]*ChatSession, 0, len(s.sessionOrder))
	for _, id := range s.sessionOrder {
		sessions = append(sessions, s.sessions[id].clone())
	}
	return sessions
}

// DeleteSession removes a session. Returns true if something was removed.
func (s *Store) DeleteSession(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	for i, existing := range s.sessionOrder {
		if existing == id {
			s.sessionOrder = append(s.sessionOrder[:i], s.sessionOrder[i+1:]...)
			break
		}
	}
	return true
}

// MessageInput carries the caller-supplied fields for AppendMessage.
type MessageInput struct {
	Role     MessageRole
	Content  string
	Model    string
	Metadata map[string]string
}

// AppendMessage validates and appends a message to a session. The parent
// session's UpdatedAt is always refreshed.
func (s *Store) AppendMessage(sessionID string, input MessageInput) (*ChatMessage, error) {
	if !input.Role.Valid() {
		return nil, ErrInvalidRole
	}
	if input.Content == "" {
		return nil, ErrEmptyContent
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	msg := ChatMessage{
		ID:        uuid.New().String(),
		Role:      input.Role,
		Content:   input.Content,
		Timestamp: s.now(),
		Model:     input.Model,
		Metadata:  input.Metadata,
	}
	session.Messages = append(session.Messages, msg)
	session.UpdatedAt = msg.Timestamp

	return &msg, nil
}
