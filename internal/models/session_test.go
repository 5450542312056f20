package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStageValid(t *testing.T) {
	for _, stage := range []Stage{StageInitial, StageVerification, StageUnderwriting, StageSanction} {
		assert.True(t, stage.Valid(), string(stage))
	}
	assert.False(t, Stage("closed").Valid())
	assert.False(t, Stage("").Valid())
}

func TestStageTransitions(t *testing.T) {
	allowed := map[Stage]Stage{
		StageInitial:      StageVerification,
		StageVerification: StageUnderwriting,
		StageUnderwriting: StageSanction,
	}

	stages := []Stage{StageInitial, StageVerification, StageUnderwriting, StageSanction}
	for _, from := range stages {
		for _, to := range stages {
			got := from.CanTransition(to)
			want := from == to || allowed[from] == to
			assert.Equal(t, want, got, "%s -> %s", from, to)
		}
	}
}

func TestAdvanceTo(t *testing.T) {
	session := &Session{SessionID: "s1", Stage: StageInitial}

	assert.NoError(t, session.AdvanceTo(StageVerification))
	assert.Equal(t, StageVerification, session.Stage)

	// skipping ahead is rejected and leaves the stage untouched
	err := session.AdvanceTo(StageSanction)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid stage transition")
	assert.Equal(t, StageVerification, session.Stage)

	// moving backwards is rejected too
	assert.Error(t, session.AdvanceTo(StageInitial))

	assert.NoError(t, session.AdvanceTo(StageUnderwriting))
	assert.NoError(t, session.AdvanceTo(StageSanction))

	// terminal stage only allows staying put
	assert.NoError(t, session.AdvanceTo(StageSanction))
	assert.Error(t, session.AdvanceTo(StageUnderwriting))
}

func TestAdvanceToUnknownStage(t *testing.T) {
	session := &Session{SessionID: "s1", Stage: StageInitial}
	err := session.AdvanceTo(Stage("archived"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown conversation stage")
}

func TestDocumentTypeByKey(t *testing.T) {
	dt, ok := DocumentTypeByKey("identity_proof")
	assert.True(t, ok)
	assert.Equal(t, "Identity Proof", dt.Name)
	assert.True(t, dt.Mandatory)

	dt, ok = DocumentTypeByKey("salary_slip")
	assert.True(t, ok)
	assert.False(t, dt.Mandatory)

	_, ok = DocumentTypeByKey("pan_card")
	assert.False(t, ok)
}

func TestDocumentTypeKeys(t *testing.T) {
	assert.Equal(t, []string{
		"identity_proof",
		"address_proof",
		"bank_statement",
		"salary_slip",
		"employment_certificate",
	}, DocumentTypeKeys())
}
