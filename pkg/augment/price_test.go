package augment

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tilda-bridge/finuslugi-proxy/internal/testutil"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/cache"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/pricing"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/upstream"
)

// setupTestCache creates a cache manager on the test Redis DB. Tests needing
// it are skipped when no Redis is reachable.
func setupTestCache(t *testing.T) *cache.Manager {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return cache.NewManager(client, cache.Config{}, zerolog.Nop())
}

func testResolver() *pricing.Resolver {
	source := &testutil.FakeSheetSource{
		SheetList: []*testutil.FakeSheet{
			{
				SheetTitle: "ВТБ",
				HeaderRow:  []string{"", "МАКС"},
				DataRows: [][]string{
					{"квартира", "0.003"},
					{"КВ имущество", "0.0005"},
				},
			},
		},
	}
	builder := pricing.NewBuilder(source, nil, pricing.BuilderConfig{}, zerolog.Nop())
	return pricing.NewResolver(builder, zerolog.Nop())
}

func flatQuoteRequest() *Request {
	return &Request{
		Method: "POST",
		Path:   "/mp/api/v1/policyPrice",
		Body: json.RawMessage(`{
			"bankId": "vtb",
			"companyId": "makc",
			"creditSum": 100000,
			"propertyInsurance": true,
			"propertyType": "flat"
		}`),
	}
}

func TestPriceAugmenter_ApplyAttachesEstimate(t *testing.T) {
	aug := NewPriceAugmenter(testResolver(), zerolog.Nop())

	body, err := aug.Apply(context.Background(), flatQuoteRequest(), json.RawMessage(`{"price":500,"requestId":"abc"}`))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode augmented body: %v", err)
	}

	// Upstream fields survive untouched.
	if out["price"] != float64(500) || out["requestId"] != "abc" {
		t.Errorf("upstream fields changed: %v", out)
	}

	extra, ok := out[ExtraField].(map[string]any)
	if !ok {
		t.Fatalf("body has no %s object: %s", ExtraField, body)
	}
	if extra["price"] != float64(300) {
		t.Errorf("estimate price = %v, want 300", extra["price"])
	}
	if extra["partnerKv"] != float64(0.15) {
		t.Errorf("estimate partnerKv = %v, want 0.15", extra["partnerKv"])
	}
	if extra["bankId"] != "vtb" || extra["companyId"] != "makc" {
		t.Errorf("estimate identifiers = %v/%v", extra["bankId"], extra["companyId"])
	}
}

// TestPriceAugmenter_ApplyWithoutEstimate checks that an uncomputable
// estimate leaves the successful upstream body alone.
func TestPriceAugmenter_ApplyWithoutEstimate(t *testing.T) {
	aug := NewPriceAugmenter(testResolver(), zerolog.Nop())

	req := &Request{
		Method: "POST",
		Path:   "/mp/api/v1/policyPrice",
		Body:   json.RawMessage(`{"bankId":"unknown","companyId":"makc","creditSum":100000,"propertyInsurance":true,"propertyType":"flat"}`),
	}

	original := `{"price":500}`
	body, err := aug.Apply(context.Background(), req, json.RawMessage(original))
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if string(body) != original {
		t.Errorf("body = %s, want original untouched", body)
	}
}

func TestPriceAugmenter_RecoverSubstitutesEstimate(t *testing.T) {
	aug := NewPriceAugmenter(testResolver(), zerolog.Nop())

	uerr := &upstream.Error{
		StatusCode: 400,
		Body:       json.RawMessage(`{"errors":["Некорректный запрос"]}`),
	}
	body, err := aug.Recover(context.Background(), flatQuoteRequest(), uerr)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode recovery body: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("recovery body carries upstream fields: %s", body)
	}
	extra, ok := out[ExtraField].(map[string]any)
	if !ok {
		t.Fatalf("recovery body has no %s object: %s", ExtraField, body)
	}
	if extra["price"] != float64(300) {
		t.Errorf("estimate price = %v, want 300", extra["price"])
	}
}

func TestPriceAugmenter_RecoverPropagatesUnsupportedCombination(t *testing.T) {
	aug := NewPriceAugmenter(testResolver(), zerolog.Nop())

	payload, err := json.Marshal(map[string]any{
		"errors": []string{"Некорректный запрос", ErrMsgUnsupportedCombination},
	})
	if err != nil {
		t.Fatalf("encode error payload: %v", err)
	}

	uerr := &upstream.Error{StatusCode: 400, Body: payload}
	_, err = aug.Recover(context.Background(), flatQuoteRequest(), uerr)
	if !errors.Is(err, uerr) {
		t.Errorf("error = %v, want original upstream error", err)
	}
}

func TestPriceAugmenter_RecoverPropagatesServerErrors(t *testing.T) {
	aug := NewPriceAugmenter(testResolver(), zerolog.Nop())

	uerr := &upstream.Error{StatusCode: 502, Body: json.RawMessage(`{"errors":["bad gateway"]}`)}
	_, err := aug.Recover(context.Background(), flatQuoteRequest(), uerr)
	if !errors.Is(err, uerr) {
		t.Errorf("error = %v, want original upstream error", err)
	}
}

func TestPriceAugmenter_RecoverWithoutEstimatePropagates(t *testing.T) {
	aug := NewPriceAugmenter(testResolver(), zerolog.Nop())

	req := &Request{
		Method: "POST",
		Path:   "/mp/api/v1/policyPrice",
		Body:   json.RawMessage(`{"bankId":"unknown","companyId":"makc","creditSum":100000,"propertyInsurance":true,"propertyType":"flat"}`),
	}
	uerr := &upstream.Error{StatusCode: 400, Body: json.RawMessage(`{"errors":["Некорректный запрос"]}`)}
	_, err := aug.Recover(context.Background(), req, uerr)
	if !errors.Is(err, uerr) {
		t.Errorf("error = %v, want original upstream error", err)
	}
}

// TestPriceAugmenter_ThroughManager exercises the full dispatch path: a
// recoverable upstream failure yields a body containing only the estimate.
func TestPriceAugmenter_ThroughManager(t *testing.T) {
	aug := NewPriceAugmenter(testResolver(), zerolog.Nop())
	manager := NewManager(zerolog.Nop(), aug)

	call := func(ctx context.Context) (json.RawMessage, error) {
		return nil, &upstream.Error{
			StatusCode: 400,
			Body:       json.RawMessage(`{"errors":["Некорректный запрос"]}`),
		}
	}

	body, err := manager.AugmentResponse(context.Background(), flatQuoteRequest(), call)
	if err != nil {
		t.Fatalf("AugmentResponse failed: %v", err)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if _, ok := out[ExtraField]; !ok || len(out) != 1 {
		t.Errorf("body = %s, want only the %s field", body, ExtraField)
	}
}
