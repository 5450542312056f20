package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Stage is a conversation stage. Sessions only move forward through the
// verification checkpoints; backward or skipping moves are rejected.
type Stage string

const (
	StageInitial      Stage = "initial"
	StageVerification Stage = "verification"
	StageUnderwriting Stage = "underwriting"
	StageSanction     Stage = "sanction"
)

// stageTransitions is the allowed forward-transition table.
var stageTransitions = map[Stage][]Stage{
	StageInitial:      {StageVerification},
	StageVerification: {StageUnderwriting},
	StageUnderwriting: {StageSanction},
	StageSanction:     {},
}

// Valid reports whether s is one of the four known stages.
func (s Stage) Valid() bool {
	switch s {
	case StageInitial, StageVerification, StageUnderwriting, StageSanction:
		return true
	}
	return false
}

// CanTransition reports whether a session may move from s to next.
// Staying on the same stage is always allowed.
func (s Stage) CanTransition(next Stage) bool {
	if s == next {
		return true
	}
	for _, allowed := range stageTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Session stores the durable state of one conversation.
type Session struct {
	gorm.Model
	SessionID    string  `json:"session_id" gorm:"uniqueIndex"`
	IsActive     bool    `json:"is_active" gorm:"default:true"`
	CustomerID   string  `json:"customer_id"` // empty until identity verified
	LoanAmount   float64 `json:"loan_amount"`
	TenureMonths int     `json:"tenure_months"`
	Stage        Stage   `json:"conversation_stage" gorm:"default:initial"`
	CustomerData string  `json:"customer_data"` // JSON snapshot taken at verification time
}

// AdvanceTo moves the session to the given stage, enforcing the
// forward-only transition table.
func (s *Session) AdvanceTo(next Stage) error {
	if !next.Valid() {
		return fmt.Errorf("unknown conversation stage: %q", next)
	}
	if !s.Stage.CanTransition(next) {
		return fmt.Errorf("invalid stage transition: %s -> %s", s.Stage, next)
	}
	s.Stage = next
	return nil
}
