package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateEMI(t *testing.T) {
	result, err := CalculateEMI(100000, 12, 12.0)
	require.NoError(t, err)

	// 1 lakh over 12 months at 12% works out to 8884.88/month
	assert.InDelta(t, 8884.88, result.EMI, 0.01)
	assert.Equal(t, 100000.0, result.LoanAmount)
	assert.Equal(t, 12, result.TenureMonths)
	assert.Equal(t, 12.0, result.InterestRate)
}

func TestCalculateEMITotalsAddUp(t *testing.T) {
	cases := []struct {
		amount float64
		months int
		rate   float64
	}{
		{100000, 12, 12.0},
		{500000, 60, 10.99},
		{50000, 24, 18.0},
		{2500000, 48, 12.5},
		{333333, 36, 15.0},
	}

	for _, tc := range cases {
		result, err := CalculateEMI(tc.amount, tc.months, tc.rate)
		require.NoError(t, err)

		// the total must equal EMI times tenure to the cent
		expectedTotal := round2(result.EMI * float64(tc.months))
		assert.Equal(t, expectedTotal, result.TotalAmount)
		assert.Equal(t, round2(result.TotalAmount-tc.amount), result.TotalInterest)
		assert.Greater(t, result.TotalInterest, 0.0)
	}
}

func TestCalculateEMIRounding(t *testing.T) {
	result, err := CalculateEMI(100000, 12, 12.0)
	require.NoError(t, err)

	for _, v := range []float64{result.EMI, result.TotalAmount, result.TotalInterest} {
		assert.Equal(t, round2(v), v, "monetary values must carry at most 2 decimals")
	}
}

func TestCalculateEMIInvalidInputs(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		months int
		rate   float64
	}{
		{"zero amount", 0, 12, 12.0},
		{"negative amount", -1000, 12, 12.0},
		{"zero tenure", 100000, 0, 12.0},
		{"negative tenure", 100000, -6, 12.0},
		{"zero rate", 100000, 12, 0},
		{"negative rate", 100000, 12, -5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CalculateEMI(tc.amount, tc.months, tc.rate)
			assert.Error(t, err)
		})
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, round2(1.234))
	assert.Equal(t, 1.24, round2(1.235))
	assert.Equal(t, 100.0, round2(100))
	assert.False(t, math.Signbit(round2(0)))
}
