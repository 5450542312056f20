package jobs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

func TestCleanupRemovesOrphansAndExpiredOTPs(t *testing.T) {
	store := storage.NewMemoryStore()

	// orphan: never received a message
	_, err := store.CreateSession(&models.Session{SessionID: "orphan", IsActive: true})
	require.NoError(t, err)

	// live: has a transcript
	_, err = store.CreateSession(&models.Session{SessionID: "live", IsActive: true})
	require.NoError(t, err)
	_, err = store.CreateConversation(&models.Conversation{SessionID: "live", Role: "user", Content: "hi"})
	require.NoError(t, err)

	_, err = store.CreateOTP(&models.OTP{
		Phone:     "9876543210",
		Code:      "111222",
		Purpose:   "phone_verification",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	job := NewCleanupJob(store, time.Hour)
	job.runOnce()

	_, err = store.GetSession("orphan")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = store.GetSession("live")
	assert.NoError(t, err)

	_, err = store.GetActiveOTP("9876543210", "phone_verification")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
