package augment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tilda-bridge/finuslugi-proxy/pkg/cache"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/mapping"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/sheets"
)

// listEntry is one bank or insurer in a reference list. The upstream fields
// are kept as-is; only the "extra" tag is added.
type listEntry = map[string]any

func listKey(kind string) cache.Key {
	return cache.Key{Op: "list", Params: map[string]string{"kind": kind}}
}

// mergeDerived tags every upstream entry as not extra and prepends the
// derived entries whose canonical identifier the upstream list lacks.
// Matching is by identifier, never by display name.
func mergeDerived(upstreamList []listEntry, derived []listEntry) []listEntry {
	existing := make(map[string]bool, len(upstreamList))
	for _, entry := range upstreamList {
		entry["extra"] = false
		if id, ok := entry["id"].(string); ok {
			existing[id] = true
		}
	}

	merged := make([]listEntry, 0, len(derived)+len(upstreamList))
	for _, entry := range derived {
		if id, ok := entry["id"].(string); ok && !existing[id] {
			existing[id] = true
			merged = append(merged, entry)
		}
	}
	return append(merged, upstreamList...)
}

func decodeList(body json.RawMessage) ([]listEntry, error) {
	var list []listEntry
	if len(body) == 0 {
		return nil, nil
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decode upstream list: %w", err)
	}
	return list, nil
}

// BankListAugmenter extends the upstream bank list with the banks present
// in the rate workbook (one sheet per bank).
type BankListAugmenter struct {
	source  sheets.Source
	cache   *cache.Manager
	listTTL time.Duration
	logger  zerolog.Logger
}

// NewBankListAugmenter creates the bank list augmenter.
func NewBankListAugmenter(source sheets.Source, cacheManager *cache.Manager, listTTL time.Duration, logger zerolog.Logger) *BankListAugmenter {
	return &BankListAugmenter{source: source, cache: cacheManager, listTTL: listTTL, logger: logger}
}

func (a *BankListAugmenter) Name() string { return "bankList" }

func (a *BankListAugmenter) Matches(req *Request) bool {
	return strings.HasSuffix(req.Path, "/bankList")
}

func (a *BankListAugmenter) Apply(ctx context.Context, req *Request, body json.RawMessage) (json.RawMessage, error) {
	key := listKey("banks")
	if a.cache != nil {
		if cached, err := a.cache.Get(ctx, key); err == nil {
			a.logger.Debug().Bool("cache_hit", true).Msg("Bank list from cache")
			return cached, nil
		}
	}

	upstreamList, err := decodeList(body)
	if err != nil {
		return nil, err
	}

	sheetList, err := a.source.Sheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sheet titles: %w", err)
	}

	derived := make([]listEntry, 0, len(sheetList))
	for _, sheet := range sheetList {
		id := mapping.ResolveBank(sheet.Title())
		if id == "" {
			continue
		}
		derived = append(derived, listEntry{
			"id":    id,
			"name":  sheet.Title(),
			"extra": true,
		})
	}

	merged, err := json.Marshal(mergeDerived(upstreamList, derived))
	if err != nil {
		return nil, fmt.Errorf("encode bank list: %w", err)
	}

	if a.cache != nil {
		_ = a.cache.Set(ctx, key, json.RawMessage(merged), a.listTTL)
	}

	a.logger.Debug().
		Int("upstream", len(upstreamList)).
		Int("derived", len(derived)).
		Msg("Bank list augmented")

	return merged, nil
}

// CompanyListAugmenter extends the upstream insurer list with the insurers
// named in the rate workbook's column headers.
type CompanyListAugmenter struct {
	source  sheets.Source
	cache   *cache.Manager
	pacer   *sheets.Pacer
	listTTL time.Duration
	logger  zerolog.Logger
}

// NewCompanyListAugmenter creates the company list augmenter.
func NewCompanyListAugmenter(source sheets.Source, cacheManager *cache.Manager, pacer *sheets.Pacer, listTTL time.Duration, logger zerolog.Logger) *CompanyListAugmenter {
	return &CompanyListAugmenter{source: source, cache: cacheManager, pacer: pacer, listTTL: listTTL, logger: logger}
}

func (a *CompanyListAugmenter) Name() string { return "companyList" }

func (a *CompanyListAugmenter) Matches(req *Request) bool {
	return strings.HasSuffix(req.Path, "/companyList")
}

func (a *CompanyListAugmenter) Apply(ctx context.Context, req *Request, body json.RawMessage) (json.RawMessage, error) {
	key := listKey("companies")
	if a.cache != nil {
		if cached, err := a.cache.Get(ctx, key); err == nil {
			a.logger.Debug().Bool("cache_hit", true).Msg("Company list from cache")
			return cached, nil
		}
	}

	upstreamList, err := decodeList(body)
	if err != nil {
		return nil, err
	}

	sheetList, err := a.source.Sheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("load sheets: %w", err)
	}

	// Union of insurer headers across all sheets, first occurrence wins.
	seen := make(map[string]bool)
	var derived []listEntry
	for i, sheet := range sheetList {
		if i > 0 && a.pacer != nil {
			if err := a.pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}

		header, err := sheet.Header(ctx)
		if err != nil {
			return nil, fmt.Errorf("load header of %q: %w", sheet.Title(), err)
		}
		for col := 1; col < len(header); col++ {
			name := strings.TrimSpace(header[col])
			id := mapping.ResolveCompany(name)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			derived = append(derived, listEntry{
				"id":    id,
				"name":  name,
				"extra": true,
			})
		}
	}

	merged, err := json.Marshal(mergeDerived(upstreamList, derived))
	if err != nil {
		return nil, fmt.Errorf("encode company list: %w", err)
	}

	if a.cache != nil {
		_ = a.cache.Set(ctx, key, json.RawMessage(merged), a.listTTL)
	}

	a.logger.Debug().
		Int("upstream", len(upstreamList)).
		Int("derived", len(derived)).
		Msg("Company list augmented")

	return merged, nil
}
