package pricing

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// ErrNoQuote is returned when no applicable rates exist for the requested
// parameters. Callers must surface "no quote" rather than a priced-at-zero
// quote.
var ErrNoQuote = errors.New("no quote available")

// Partner commission policy constants.
var (
	// commissionBonusThreshold is the total premium at and above which the
	// flat bonus applies.
	commissionBonusThreshold = decimal.NewFromInt(3000)

	// commissionBonus is the flat addition to the partner commission.
	commissionBonus = decimal.NewFromInt(1000)
)

// QuoteParameters are the caller-supplied coverage parameters. Attribute
// fields are only read when the matching toggle is on.
type QuoteParameters struct {
	BankID    string          `json:"bankId"`
	CompanyID string          `json:"companyId"`
	CreditSum decimal.Decimal `json:"creditSum"`

	Property     bool         `json:"propertyInsurance"`
	PropertyType PropertyType `json:"propertyType,omitempty"`
	WoodenFloor  bool         `json:"woodenFloor,omitempty"`

	Life   bool   `json:"lifeInsurance"`
	Gender Gender `json:"gender,omitempty"`
	Age    int    `json:"age,omitempty"`

	Title bool `json:"titleInsurance"`
}

// Quote is a resolved price estimate.
type Quote struct {
	// Total is the premium: creditSum times the sum of matched rates.
	Total decimal.Decimal `json:"total"`

	// PartnerKv is the partner commission computed from the kv rates.
	PartnerKv decimal.Decimal `json:"partnerKv"`
}

// Resolver computes quotes from pricing columns.
type Resolver struct {
	builder *Builder
	logger  zerolog.Logger
}

// NewResolver creates a price resolver on top of a builder.
func NewResolver(builder *Builder, logger zerolog.Logger) *Resolver {
	return &Resolver{builder: builder, logger: logger}
}

// Resolve computes the premium and partner commission for the given
// parameters. Returns ErrNoQuote when no matching rate line items exist.
func (r *Resolver) Resolve(ctx context.Context, params QuoteParameters) (Quote, error) {
	columns, err := r.builder.Build(ctx, BuildParams{
		BankID:    params.BankID,
		CompanyID: params.CompanyID,
	})
	if err != nil {
		quotesResolved.WithLabelValues("error").Inc()
		return Quote{}, fmt.Errorf("build pricing column: %w", err)
	}
	if len(columns) == 0 {
		quotesResolved.WithLabelValues("no_quote").Inc()
		return Quote{}, ErrNoQuote
	}
	items := columns[0].Items

	rateSum := decimal.Zero
	if params.Property {
		if item, ok := matchProperty(items, params); ok {
			rateSum = rateSum.Add(item.Value)
		}
	}
	if params.Life {
		if item, ok := matchLife(items, params); ok {
			rateSum = rateSum.Add(item.Value)
		}
	}
	if params.Title {
		if item, ok := matchKind(items, KindTitle); ok {
			rateSum = rateSum.Add(item.Value)
		}
	}

	total := params.CreditSum.Mul(rateSum)
	if total.IsZero() {
		quotesResolved.WithLabelValues("no_quote").Inc()
		return Quote{}, ErrNoQuote
	}

	// The commission rate sum is multiplied by the total as-is; the kv
	// table's units are taken at face value.
	kvSum := decimal.Zero
	for _, item := range items {
		if item.Kind != KindCommission {
			continue
		}
		switch {
		case params.Property && item.CommissionType == CommissionProperty,
			params.Life && item.CommissionType == CommissionLife,
			params.Title && item.CommissionType == CommissionTitle:
			kvSum = kvSum.Add(item.Value)
		}
	}

	commission := kvSum.Mul(total)
	if total.GreaterThanOrEqual(commissionBonusThreshold) {
		commission = commission.Add(commissionBonus)
	}

	r.logger.Debug().
		Str("bank", params.BankID).
		Str("company", params.CompanyID).
		Str("total", total.String()).
		Str("partner_kv", commission.String()).
		Msg("Quote resolved")

	quotesResolved.WithLabelValues("priced").Inc()
	return Quote{Total: total, PartnerKv: commission}, nil
}

// matchProperty selects the one applicable property rate: same property
// type, and for houses the same wooden-floor flag.
func matchProperty(items []LineItem, params QuoteParameters) (LineItem, bool) {
	for _, item := range items {
		if item.Kind != KindProperty || item.PropertyType != params.PropertyType {
			continue
		}
		if item.PropertyType == PropertyHouse && item.WoodenFloor != params.WoodenFloor {
			continue
		}
		return item, true
	}
	return LineItem{}, false
}

// matchLife selects the life rate for the exact gender and age.
func matchLife(items []LineItem, params QuoteParameters) (LineItem, bool) {
	for _, item := range items {
		if item.Kind == KindLife && item.Gender == params.Gender && item.Age == params.Age {
			return item, true
		}
	}
	return LineItem{}, false
}

// matchKind selects the first item of the given kind.
func matchKind(items []LineItem, kind Kind) (LineItem, bool) {
	for _, item := range items {
		if item.Kind == kind {
			return item, true
		}
	}
	return LineItem{}, false
}
