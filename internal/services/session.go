package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

// SessionService owns the conversation sessions and their transcripts.
type SessionService struct {
	store storage.Store
}

// NewSessionService creates a new session service instance
func NewSessionService(store storage.Store) *SessionService {
	return &SessionService{store: store}
}

// Create starts a new session with a generated ID.
func (s *SessionService) Create() (*models.Session, error) {
	session := &models.Session{
		SessionID: uuid.NewString(),
		IsActive:  true,
		Stage:     models.StageInitial,
	}
	if _, err := s.store.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	log.Printf("[SERVICE] Session created: %s", session.SessionID)
	return session, nil
}

// GetOrCreate loads the session, creating it when the ID is unknown so
// a client can keep chatting on a self-chosen session ID.
func (s *SessionService) GetOrCreate(sessionID string) (*models.Session, error) {
	session, err := s.store.GetSession(sessionID)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	session = &models.Session{
		SessionID: sessionID,
		IsActive:  true,
		Stage:     models.StageInitial,
	}
	if _, err := s.store.CreateSession(session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	log.Printf("[SERVICE] Session created: %s", session.SessionID)
	return session, nil
}

// Get loads an existing session.
func (s *SessionService) Get(sessionID string) (*models.Session, error) {
	return s.store.GetSession(sessionID)
}

// Update persists session changes.
func (s *SessionService) Update(session *models.Session) error {
	return s.store.UpdateSession(session)
}

// BindCustomer pins the verified customer snapshot onto the session and
// moves it into the verification stage when still in initial.
func (s *SessionService) BindCustomer(session *models.Session, customer *CustomerData) error {
	data, err := json.Marshal(customer)
	if err != nil {
		return fmt.Errorf("failed to encode customer data: %w", err)
	}
	session.CustomerID = customer.CustomerID
	session.CustomerData = string(data)
	if session.Stage == models.StageInitial {
		if err := session.AdvanceTo(models.StageVerification); err != nil {
			return err
		}
	}
	return s.store.UpdateSession(session)
}

// Customer decodes the customer snapshot pinned on the session, nil
// when identity has not been verified yet.
func (s *SessionService) Customer(session *models.Session) (*CustomerData, error) {
	if session.CustomerData == "" {
		return nil, nil
	}
	var customer CustomerData
	if err := json.Unmarshal([]byte(session.CustomerData), &customer); err != nil {
		return nil, fmt.Errorf("failed to decode customer data: %w", err)
	}
	return &customer, nil
}

// AppendMessage records one transcript entry.
func (s *SessionService) AppendMessage(sessionID, role, content, agentType string) error {
	_, err := s.store.CreateConversation(&models.Conversation{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		AgentType: agentType,
	})
	return err
}

// History returns the transcript in chronological order. A limit of 0
// returns everything.
func (s *SessionService) History(sessionID string, limit int) ([]*models.Conversation, error) {
	return s.store.GetConversations(sessionID, limit)
}

// Deactivate marks the session inactive, keeping the transcript.
func (s *SessionService) Deactivate(sessionID string) error {
	session, err := s.store.GetSession(sessionID)
	if err != nil {
		return err
	}
	session.IsActive = false
	return s.store.UpdateSession(session)
}
