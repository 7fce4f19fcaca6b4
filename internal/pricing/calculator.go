// Package pricing computes the fixed per-kilogram price of a parcel and the
// split between traveler payout and platform fee.
package pricing

import (
	"math"

	"github.com/honeynil/ParcelMatchService/internal/models"
	pkgerrors "github.com/honeynil/ParcelMatchService/pkg/errors"
)

const (
	DefaultSenderRatePerKg     = 8.0
	DefaultTravelerPayoutPerKg = 5.0
	DefaultInsurancePerKg      = 2.0
)

// Rates are process-wide and fixed for the lifetime of a Calculator.
type Rates struct {
	SenderRatePerKg     float64
	TravelerPayoutPerKg float64
	InsurancePerKg      float64
}

func DefaultRates() Rates {
	return Rates{
		SenderRatePerKg:     DefaultSenderRatePerKg,
		TravelerPayoutPerKg: DefaultTravelerPayoutPerKg,
		InsurancePerKg:      DefaultInsurancePerKg,
	}
}

// PlatformFeePerKg is what the platform keeps from every kilogram.
func (r Rates) PlatformFeePerKg() float64 {
	return r.SenderRatePerKg - r.TravelerPayoutPerKg
}

func (r Rates) Validate() error {
	if r.SenderRatePerKg <= 0 {
		return pkgerrors.Validationf("sender rate must be positive, got %v", r.SenderRatePerKg)
	}
	if r.TravelerPayoutPerKg < 0 || r.TravelerPayoutPerKg > r.SenderRatePerKg {
		return pkgerrors.Validationf("traveler payout %v must be within [0, %v]", r.TravelerPayoutPerKg, r.SenderRatePerKg)
	}
	if r.InsurancePerKg < 0 {
		return pkgerrors.Validationf("insurance rate must not be negative, got %v", r.InsurancePerKg)
	}
	return nil
}

type Breakdown struct {
	WeightKg       float64 `json:"weight_kg"`
	BasePrice      float64 `json:"base_price"`
	TravelerPayout float64 `json:"traveler_payout"`
	PlatformFee    float64 `json:"platform_fee"`
	Insurance      float64 `json:"insurance"`
	Total          float64 `json:"total"`
}

// Rounded returns a copy with every amount rounded to cents for display.
func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		WeightKg:       b.WeightKg,
		BasePrice:      Round2(b.BasePrice),
		TravelerPayout: Round2(b.TravelerPayout),
		PlatformFee:    Round2(b.PlatformFee),
		Insurance:      Round2(b.Insurance),
		Total:          Round2(b.Total),
	}
}

type Calculator struct {
	rates Rates
}

func NewCalculator(rates Rates) (*Calculator, error) {
	if err := rates.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{rates: rates}, nil
}

func (c *Calculator) Rates() Rates {
	return c.rates
}

// Calculate never rounds; callers round with Round2 when presenting.
func (c *Calculator) Calculate(weightKg float64, includeInsurance bool) (Breakdown, error) {
	if err := ValidateWeight(weightKg); err != nil {
		return Breakdown{}, err
	}

	base := weightKg * c.rates.SenderRatePerKg
	var insurance float64
	if includeInsurance {
		insurance = weightKg * c.rates.InsurancePerKg
	}

	return Breakdown{
		WeightKg:       weightKg,
		BasePrice:      base,
		TravelerPayout: weightKg * c.rates.TravelerPayoutPerKg,
		PlatformFee:    weightKg * c.rates.PlatformFeePerKg(),
		Insurance:      insurance,
		Total:          base + insurance,
	}, nil
}

func ValidateWeight(weightKg float64) error {
	if math.IsNaN(weightKg) || math.IsInf(weightKg, 0) {
		return pkgerrors.Validationf("weight must be a finite number")
	}
	if weightKg <= 0 {
		return pkgerrors.Validationf("weight must be positive, got %v kg", weightKg)
	}
	if weightKg > models.MaxParcelWeightKg {
		return pkgerrors.Validationf("weight %v kg exceeds the %v kg limit", weightKg, models.MaxParcelWeightKg)
	}
	return nil
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
