package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

type recordingNotifier struct {
	phone string
	code  string
	err   error
}

func (r *recordingNotifier) SendOTP(phone, code string) error {
	r.phone = phone
	r.code = code
	return r.err
}

func TestValidPANFormat(t *testing.T) {
	valid := []string{"ABCDE1234F", "ZZZZZ0000A"}
	for _, pan := range valid {
		assert.True(t, ValidPANFormat(pan), pan)
	}

	invalid := []string{
		"ABCDE1234",   // too short
		"ABCDE1234FF", // too long
		"ABCD51234F",  // digit in the letter block
		"ABCDEA234F",  // letter in the digit block
		"ABCDE12345",  // digit in the final position
		"abcde1234f",  // lowercase
		"",
	}
	for _, pan := range invalid {
		assert.False(t, ValidPANFormat(pan), pan)
	}
}

func TestVerifyPAN(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCustomer(t, store, "Ravi Kumar", "9876543210", "ABCDE1234F", 750, 500000, floatPtr(80000))
	svc := NewIdentityService(store, NewCustomerService(store), nil)

	t.Run("wrong length", func(t *testing.T) {
		result, err := svc.VerifyPAN("ABC123")
		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Contains(t, result.Message, "10 characters")
	})

	t.Run("bad format", func(t *testing.T) {
		result, err := svc.VerifyPAN("1234567890")
		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Contains(t, result.Message, "5 letters, 4 digits, 1 letter")
	})

	t.Run("unknown PAN", func(t *testing.T) {
		result, err := svc.VerifyPAN("ZZZZZ9999Z")
		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Equal(t, "PAN not found in our database", result.Message)
	})

	t.Run("known PAN", func(t *testing.T) {
		result, err := svc.VerifyPAN("abcde1234f") // case-insensitive
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, "9876543210", result.CustomerID)
		assert.Equal(t, "Ravi Kumar", result.CustomerName)
		require.NotNil(t, result.Customer)
		assert.Equal(t, 750, result.Customer.CreditScore)
	})
}

func TestVerifyPhoneTestMode(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCustomer(t, store, "Ravi Kumar", "9876543210", "ABCDE1234F", 750, 500000, nil)
	svc := NewIdentityService(store, NewCustomerService(store), nil)

	result, err := svc.VerifyPhone("+91 98765 43210")
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Equal(t, TestOTP, result.OTP)
	assert.Contains(t, result.Message, "(for testing)")

	otp, err := store.GetActiveOTP("9876543210", "phone_verification")
	require.NoError(t, err)
	assert.Equal(t, TestOTP, otp.Code)
}

func TestVerifyPhoneWithNotifier(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCustomer(t, store, "Ravi Kumar", "9876543210", "ABCDE1234F", 750, 500000, nil)
	notifier := &recordingNotifier{}
	svc := NewIdentityService(store, NewCustomerService(store), notifier)

	result, err := svc.VerifyPhone("9876543210")
	require.NoError(t, err)

	assert.True(t, result.Verified)
	assert.Empty(t, result.OTP, "real codes never leak into the response")
	assert.Equal(t, "9876543210", notifier.phone)
	assert.Len(t, notifier.code, 6)
}

func TestVerifyPhoneUnknownNumber(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewIdentityService(store, NewCustomerService(store), nil)

	result, err := svc.VerifyPhone("9999999999")
	require.NoError(t, err)

	assert.False(t, result.Verified)
	assert.Contains(t, result.Message, "not found in our database")
}

func TestVerifyOTPFlow(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCustomer(t, store, "Ravi Kumar", "9876543210", "ABCDE1234F", 750, 500000, nil)
	svc := NewIdentityService(store, NewCustomerService(store), nil)

	_, err := svc.VerifyPhone("9876543210")
	require.NoError(t, err)

	t.Run("wrong code", func(t *testing.T) {
		result, err := svc.VerifyOTP("9876543210", "000000")
		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Contains(t, result.Message, "Invalid OTP")
	})

	t.Run("correct code", func(t *testing.T) {
		result, err := svc.VerifyOTP("9876543210", TestOTP)
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Equal(t, "9876543210", result.CustomerID)
		require.NotNil(t, result.Customer)
	})

	t.Run("code is single use", func(t *testing.T) {
		// the code was consumed, but in test mode the fixed code is still
		// accepted when no active OTP exists
		result, err := svc.VerifyOTP("9876543210", TestOTP)
		require.NoError(t, err)
		assert.True(t, result.Verified)

		result, err = svc.VerifyOTP("9876543210", "654321")
		require.NoError(t, err)
		assert.False(t, result.Verified)
	})
}

func TestVerifyOTPExpired(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCustomer(t, store, "Ravi Kumar", "9876543210", "ABCDE1234F", 750, 500000, nil)
	notifier := &recordingNotifier{}
	svc := NewIdentityService(store, NewCustomerService(store), notifier)

	_, err := store.CreateOTP(&models.OTP{
		Phone:     "9876543210",
		Code:      "111222",
		Purpose:   "phone_verification",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	// the expired record is invisible, and with a notifier wired in the
	// fixed test code is not accepted either
	result, err := svc.VerifyOTP("9876543210", "111222")
	require.NoError(t, err)
	assert.False(t, result.Verified)

	result, err = svc.VerifyOTP("9876543210", TestOTP)
	require.NoError(t, err)
	assert.False(t, result.Verified)
}

func TestVerifyKYCDetails(t *testing.T) {
	store := storage.NewMemoryStore()
	seedCustomer(t, store, "Ravi Kumar", "9876543210", "ABCDE1234F", 750, 500000, nil)
	svc := NewIdentityService(store, NewCustomerService(store), nil)

	t.Run("all three match", func(t *testing.T) {
		result, err := svc.VerifyKYCDetails("Ravi Kumar", "1990-05-15", "42 Marine Drive, Mumbai", "ABCDE1234F")
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Contains(t, result.Message, "name, dob, address")
	})

	t.Run("two of three match", func(t *testing.T) {
		result, err := svc.VerifyKYCDetails("ravi kumar", "1990-05-15", "somewhere else", "ABCDE1234F")
		require.NoError(t, err)
		assert.True(t, result.Verified)
		assert.Contains(t, result.Message, "name, dob")
	})

	t.Run("one of three matches", func(t *testing.T) {
		result, err := svc.VerifyKYCDetails("Ravi Kumar", "1991-01-01", "somewhere else", "ABCDE1234F")
		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Contains(t, result.Message, "Only 1 field(s) matched: name")
	})

	t.Run("nothing matches", func(t *testing.T) {
		result, err := svc.VerifyKYCDetails("Someone Else", "1991-01-01", "somewhere else", "ABCDE1234F")
		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Contains(t, result.Message, "Only 0 field(s) matched: none")
	})

	t.Run("unknown PAN", func(t *testing.T) {
		result, err := svc.VerifyKYCDetails("Ravi Kumar", "1990-05-15", "42 Marine Drive, Mumbai", "ZZZZZ9999Z")
		require.NoError(t, err)
		assert.False(t, result.Verified)
		assert.Equal(t, "PAN not found in our records", result.Message)
	})
}

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"9876543210":     "9876543210",
		"+919876543210":  "9876543210",
		"919876543210":   "9876543210",
		"+91 98765-432 ": "98765432",
		" 98765 43210 ":  "9876543210",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePhone(in), in)
	}

	assert.Equal(t, "+919876543210", FormatPhoneForDisplay("919876543210"))
}
