package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tilda-bridge/finuslugi-proxy/pkg/pricing"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/upstream"
)

// ErrMsgUnsupportedCombination is the upstream's message for a bank/insurer
// pair that structurally does not support the requested joint coverage.
// This failure cannot be recovered by local computation and is always
// propagated unchanged.
const ErrMsgUnsupportedCombination = "Совместное страхование недоступно для выбранного банка и страховой компании"

// ExtraField is the side-channel key the computed estimate is attached
// under.
const ExtraField = "tildaExtra"

// Estimate is the computed price estimate attached to policy price
// responses.
type Estimate struct {
	Price     float64 `json:"price"`
	PartnerKv float64 `json:"partnerKv"`
	BankID    string  `json:"bankId"`
	CompanyID string  `json:"companyId"`
}

// PriceAugmenter attaches a workbook-computed price estimate to policy
// price responses, and substitutes the estimate for recoverable upstream
// failures.
type PriceAugmenter struct {
	resolver *pricing.Resolver
	logger   zerolog.Logger
}

// NewPriceAugmenter creates the price augmenter.
func NewPriceAugmenter(resolver *pricing.Resolver, logger zerolog.Logger) *PriceAugmenter {
	return &PriceAugmenter{resolver: resolver, logger: logger}
}

func (a *PriceAugmenter) Name() string { return "policyPrice" }

func (a *PriceAugmenter) Matches(req *Request) bool {
	return strings.HasSuffix(req.Path, "/policyPrice")
}

// estimate computes the workbook estimate for the request parameters.
func (a *PriceAugmenter) estimate(ctx context.Context, req *Request) (*Estimate, error) {
	if len(req.Body) == 0 {
		return nil, fmt.Errorf("request has no body")
	}

	var params pricing.QuoteParameters
	if err := json.Unmarshal(req.Body, &params); err != nil {
		return nil, fmt.Errorf("decode quote parameters: %w", err)
	}

	quote, err := a.resolver.Resolve(ctx, params)
	if err != nil {
		return nil, err
	}

	return &Estimate{
		Price:     quote.Total.InexactFloat64(),
		PartnerKv: quote.PartnerKv.InexactFloat64(),
		BankID:    params.BankID,
		CompanyID: params.CompanyID,
	}, nil
}

// Apply attaches the computed estimate alongside the upstream body. The
// estimate is additive: when none is computable the upstream body passes
// through untouched rather than failing the request or carrying a zero
// quote.
func (a *PriceAugmenter) Apply(ctx context.Context, req *Request, body json.RawMessage) (json.RawMessage, error) {
	est, err := a.estimate(ctx, req)
	if err != nil {
		a.logger.Warn().Err(err).Msg("No estimate for successful policy price response")
		return body, nil
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		a.logger.Warn().Err(err).Msg("Upstream policy price body is not an object")
		return body, nil
	}
	if out == nil {
		out = map[string]any{}
	}
	out[ExtraField] = est

	merged, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode augmented body: %w", err)
	}
	return merged, nil
}

// Recover substitutes the computed estimate for a failed upstream call.
// Only 400-class failures are recoverable, and only when the upstream's
// last error message is not the unsupported-combination signal; everything
// else re-raises the original error.
func (a *PriceAugmenter) Recover(ctx context.Context, req *Request, uerr *upstream.Error) (json.RawMessage, error) {
	if uerr.Class() != upstream.ErrorClassClient {
		return nil, uerr
	}
	if uerr.LastMessage() == ErrMsgUnsupportedCombination {
		a.logger.Debug().Msg("Unsupported combination, propagating upstream error")
		return nil, uerr
	}

	est, err := a.estimate(ctx, req)
	if err != nil {
		// Nothing to substitute, re-raise the original failure
		a.logger.Debug().Err(err).Msg("No estimate to recover with")
		return nil, uerr
	}

	body, err := json.Marshal(map[string]any{ExtraField: est})
	if err != nil {
		return nil, uerr
	}
	return body, nil
}
