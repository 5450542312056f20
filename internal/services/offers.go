package services

import (
	"fmt"
	"log"
	"strings"

	"github.com/vittam-ai/vittam-backend/internal/models"
	"github.com/vittam-ai/vittam-backend/internal/storage"
)

// Offer is one loan product a customer qualifies for.
type Offer struct {
	Name             string  `json:"name"`
	MinCreditScore   int     `json:"min_credit_score"`
	MaxCreditScore   int     `json:"max_credit_score"`
	MinAmount        float64 `json:"min_amount"`
	MaxAmount        float64 `json:"max_amount"`
	MinTenureMonths  int     `json:"min_tenure_months"`
	MaxTenureMonths  int     `json:"max_tenure_months"`
	BaseRate         float64 `json:"base_rate"`
	ProcessingFeePct float64 `json:"processing_fee_pct"`
}

// OffersResult lists matching offers, best rate first.
type OffersResult struct {
	CreditScore int     `json:"credit_score"`
	TotalOffers int     `json:"total_offers"`
	BestOffer   *Offer  `json:"best_offer"`
	AllOffers   []Offer `json:"all_offers"`
	Message     string  `json:"message"`
}

// OfferService resolves interest rates and offers from the offer
// templates, falling back to built-in rate bands when none match.
type OfferService struct {
	store storage.Store
}

// NewOfferService creates a new offer service instance
func NewOfferService(store storage.Store) *OfferService {
	return &OfferService{store: store}
}

// ResolveRate picks the interest rate for a credit score and amount.
// Templates win over the built-in bands when one covers both.
func (s *OfferService) ResolveRate(creditScore int, loanAmount float64) float64 {
	log.Printf("[SERVICE] ResolveRate called - credit_score: %d, loan_amount: ₹%.0f", creditScore, loanAmount)

	templates, err := s.store.FindOfferTemplates(creditScore, loanAmount, true)
	if err != nil {
		log.Printf("[SERVICE] ResolveRate - template lookup failed: %v", err)
	}
	if len(templates) > 0 {
		rate := round2(templates[0].BaseRate)
		log.Printf("[SERVICE] ResolveRate - rate from offer template: %.2f%%", rate)
		return rate
	}

	band := rateBandFor(creditScore)

	// Higher loan amounts get slightly better rates
	var rate float64
	switch {
	case loanAmount >= 1000000:
		rate = band.min
	case loanAmount >= 500000:
		rate = (band.min + band.max) / 2
	default:
		rate = band.max
	}

	rate = round2(rate)
	log.Printf("[SERVICE] ResolveRate - calculated rate: %.2f%% (category: %s)", rate, band.category)
	return rate
}

// GetOffers lists loan offers for a credit score. When no template
// matches with the amount filter, the filter is dropped; when nothing
// matches at all, a single default offer is synthesized from the score.
func (s *OfferService) GetOffers(creditScore int, loanAmount float64) (*OffersResult, error) {
	log.Printf("[SERVICE] GetOffers called - credit_score: %d, loan_amount: %.0f", creditScore, loanAmount)

	templates, err := s.store.FindOfferTemplates(creditScore, loanAmount, loanAmount > 0)
	if err != nil {
		return nil, fmt.Errorf("failed to query offer templates: %w", err)
	}
	if len(templates) == 0 && loanAmount > 0 {
		templates, err = s.store.FindOfferTemplates(creditScore, 0, false)
		if err != nil {
			return nil, fmt.Errorf("failed to query offer templates: %w", err)
		}
	}

	if len(templates) > 0 {
		offers := make([]Offer, 0, len(templates))
		for _, tpl := range templates {
			offers = append(offers, offerFromTemplate(tpl))
		}
		log.Printf("[SERVICE] GetOffers - found %d matching offers", len(offers))
		return &OffersResult{
			CreditScore: creditScore,
			TotalOffers: len(offers),
			BestOffer:   &offers[0],
			AllOffers:   offers,
			Message:     fmt.Sprintf("Found %d offers for credit score %d", len(offers), creditScore),
		}, nil
	}

	log.Printf("[SERVICE] GetOffers - no offers in store, using default rates")

	band := rateBandFor(creditScore)
	offer := Offer{
		Name:             fmt.Sprintf("Personal Loan - %s Credit", titleCase(band.category)),
		MinCreditScore:   creditScore - 50,
		MaxCreditScore:   creditScore + 50,
		MinAmount:        50000,
		MaxAmount:        5000000,
		MinTenureMonths:  12,
		MaxTenureMonths:  60,
		BaseRate:         band.defaultRate,
		ProcessingFeePct: 3.5,
	}

	return &OffersResult{
		CreditScore: creditScore,
		TotalOffers: 1,
		BestOffer:   &offer,
		AllOffers:   []Offer{offer},
		Message:     fmt.Sprintf("Default offer for credit score %d (category: %s)", creditScore, band.category),
	}, nil
}

func offerFromTemplate(tpl *models.OfferTemplate) Offer {
	offer := Offer{
		Name:             tpl.Name,
		MinCreditScore:   tpl.MinCreditScore,
		MaxCreditScore:   tpl.MaxCreditScore,
		MinAmount:        tpl.MinAmount,
		MaxAmount:        tpl.MaxAmount,
		MinTenureMonths:  tpl.MinTenureMonths,
		MaxTenureMonths:  tpl.MaxTenureMonths,
		BaseRate:         tpl.BaseRate,
		ProcessingFeePct: tpl.ProcessingFeePct,
	}
	if offer.Name == "" {
		offer.Name = "Personal Loan"
	}
	if offer.MinTenureMonths == 0 {
		offer.MinTenureMonths = 12
	}
	if offer.MaxTenureMonths == 0 {
		offer.MaxTenureMonths = 60
	}
	if offer.ProcessingFeePct == 0 {
		offer.ProcessingFeePct = 3.5
	}
	return offer
}

type rateBand struct {
	category    string
	min         float64
	max         float64
	defaultRate float64
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func rateBandFor(creditScore int) rateBand {
	switch {
	case creditScore >= 750:
		return rateBand{"excellent", 10.5, 12.0, 10.99}
	case creditScore >= 700:
		return rateBand{"good", 12.5, 14.5, 12.5}
	case creditScore >= 650:
		return rateBand{"fair", 15.0, 18.0, 15.0}
	default:
		return rateBand{"poor", 18.5, 24.0, 18.0}
	}
}
