package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

func TestResolveRateBands(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewOfferService(store)

	cases := []struct {
		name        string
		creditScore int
		amount      float64
		want        float64
	}{
		{"excellent large loan", 780, 1500000, 10.5},
		{"excellent mid loan", 780, 600000, 11.25},
		{"excellent small loan", 780, 200000, 12.0},
		{"good small loan", 710, 200000, 14.5},
		{"good mid loan", 710, 500000, 13.5},
		{"fair small loan", 660, 100000, 18.0},
		{"poor small loan", 600, 100000, 24.0},
		{"poor large loan", 600, 1200000, 18.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, svc.ResolveRate(tc.creditScore, tc.amount))
		})
	}
}

func TestResolveRateTemplateWins(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewOfferService(store)

	_, err := store.CreateOfferTemplate(&models.OfferTemplate{
		Name:           "Festive Offer",
		MinCreditScore: 750,
		MaxCreditScore: 900,
		MinAmount:      100000,
		MaxAmount:      1000000,
		BaseRate:       9.99,
		Active:         true,
	})
	require.NoError(t, err)
	_, err = store.CreateOfferTemplate(&models.OfferTemplate{
		Name:           "Standard",
		MinCreditScore: 750,
		MaxCreditScore: 900,
		MinAmount:      100000,
		MaxAmount:      1000000,
		BaseRate:       11.5,
		Active:         true,
	})
	require.NoError(t, err)

	// lowest base rate among matching templates wins
	assert.Equal(t, 9.99, svc.ResolveRate(780, 500000))

	// outside the template's amount range the bands take over
	assert.Equal(t, 10.5, svc.ResolveRate(780, 2000000))
}

func TestResolveRateIgnoresInactiveTemplates(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewOfferService(store)

	_, err := store.CreateOfferTemplate(&models.OfferTemplate{
		Name:           "Retired Offer",
		MinCreditScore: 700,
		MaxCreditScore: 900,
		MinAmount:      0,
		MaxAmount:      10000000,
		BaseRate:       8.0,
		Active:         false,
	})
	require.NoError(t, err)

	assert.Equal(t, 11.25, svc.ResolveRate(780, 600000))
}

func TestGetOffersDefaultLadder(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewOfferService(store)

	cases := []struct {
		creditScore int
		wantRate    float64
		wantName    string
	}{
		{780, 10.99, "Personal Loan - Excellent Credit"},
		{720, 12.5, "Personal Loan - Good Credit"},
		{660, 15.0, "Personal Loan - Fair Credit"},
		{600, 18.0, "Personal Loan - Poor Credit"},
	}

	for _, tc := range cases {
		result, err := svc.GetOffers(tc.creditScore, 0)
		require.NoError(t, err)

		require.Equal(t, 1, result.TotalOffers)
		require.NotNil(t, result.BestOffer)
		assert.Equal(t, tc.wantRate, result.BestOffer.BaseRate)
		assert.Equal(t, tc.wantName, result.BestOffer.Name)
		assert.Equal(t, 50000.0, result.BestOffer.MinAmount)
		assert.Equal(t, 5000000.0, result.BestOffer.MaxAmount)
		assert.Equal(t, 12, result.BestOffer.MinTenureMonths)
		assert.Equal(t, 60, result.BestOffer.MaxTenureMonths)
		assert.Equal(t, 3.5, result.BestOffer.ProcessingFeePct)
	}
}

func TestGetOffersDropsAmountFilterBeforeDefaulting(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewOfferService(store)

	_, err := store.CreateOfferTemplate(&models.OfferTemplate{
		Name:           "Small Ticket Loan",
		MinCreditScore: 700,
		MaxCreditScore: 900,
		MinAmount:      50000,
		MaxAmount:      200000,
		BaseRate:       13.0,
		Active:         true,
	})
	require.NoError(t, err)

	// the requested amount misses the template's range, but the template
	// is still a better answer than the synthesized default
	result, err := svc.GetOffers(760, 500000)
	require.NoError(t, err)

	require.Equal(t, 1, result.TotalOffers)
	assert.Equal(t, "Small Ticket Loan", result.BestOffer.Name)
	assert.Equal(t, 13.0, result.BestOffer.BaseRate)
}

func TestOfferFromTemplateDefaults(t *testing.T) {
	offer := offerFromTemplate(&models.OfferTemplate{BaseRate: 12.0})

	assert.Equal(t, "Personal Loan", offer.Name)
	assert.Equal(t, 12, offer.MinTenureMonths)
	assert.Equal(t, 60, offer.MaxTenureMonths)
	assert.Equal(t, 3.5, offer.ProcessingFeePct)
}
