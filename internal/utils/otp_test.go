package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecureOTP(t *testing.T) {
	otp, err := GenerateSecureOTP()
	require.NoError(t, err)
	require.Len(t, otp, 6)
	for _, r := range otp {
		assert.True(t, r >= '0' && r <= '9', "OTP must be all digits, got %q", otp)
	}
}

func TestGenerateSecureID(t *testing.T) {
	id := GenerateSecureID("SAN")
	assert.True(t, strings.HasPrefix(id, "SAN"))

	// timestamp plus 6-digit random suffix
	assert.GreaterOrEqual(t, len(id), len("SAN")+10+6)
	for _, r := range id[len("SAN"):] {
		assert.True(t, r >= '0' && r <= '9', "ID suffix must be all digits, got %q", id)
	}
}
