package models

import (
	"gorm.io/gorm"
)

// Conversation is one append-only message in a session's transcript.
// Ordering by CreatedAt is the canonical replay order.
type Conversation struct {
	gorm.Model
	SessionID string `json:"session_id" gorm:"index"`
	Role      string `json:"role"` // "user" or "assistant"
	Content   string `json:"content"`
	AgentType string `json:"agent_type"` // which agent produced the reply, e.g. "master"
}
