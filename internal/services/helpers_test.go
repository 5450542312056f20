package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

func floatPtr(v float64) *float64 { return &v }

func timePtr(v time.Time) *time.Time { return &v }

// seedCustomer stores a CRM record plus its KYC record and returns the
// customer ID (the normalized phone number).
func seedCustomer(t *testing.T, store storage.Store, name, phone, pan string, creditScore int, limit float64, salary *float64) string {
	t.Helper()

	dob := time.Date(1990, 5, 15, 0, 0, 0, 0, time.UTC)
	_, err := store.CreateCustomer(&models.Customer{
		Name:             name,
		Phone:            phone,
		DOB:              timePtr(dob),
		City:             "Mumbai",
		Email:            name + "@example.com",
		Salary:           salary,
		PreApprovedLimit: limit,
	})
	require.NoError(t, err)

	_, err = store.CreateKYC(&models.KYC{
		Name:        name,
		PAN:         pan,
		CreditScore: creditScore,
		Phone:       phone,
		Address:     "42 Marine Drive, Mumbai",
		DOB:         timePtr(dob),
	})
	require.NoError(t, err)

	return phone
}

func seedSession(t *testing.T, store storage.Store, sessionID string, stage models.Stage) *models.Session {
	t.Helper()

	session := &models.Session{
		SessionID: sessionID,
		IsActive:  true,
		Stage:     stage,
	}
	_, err := store.CreateSession(session)
	require.NoError(t, err)
	return session
}
