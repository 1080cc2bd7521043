package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tilda-bridge/finuslugi-proxy/pkg/cache"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/mapping"
	"github.com/tilda-bridge/finuslugi-proxy/pkg/sheets"
)

// Row labels in the rate workbook. Sheets are maintained by hand in Russian;
// the Latin spellings are accepted as well.
const (
	labelTitleRu = "титул"
	labelTitleEn = "title"

	lifePrefixRu = "жизнь"
	lifePrefixEn = "life"

	kvPrefixRu = "кв "
	kvPrefixEn = "kv "
)

// propertyLabels maps a normalized row label to a property type. Wood and
// brick house rows both map to "house"; the wooden-floor flag separates
// them. Labels not listed here default to "flat".
var propertyLabels = map[string]struct {
	propertyType PropertyType
	woodenFloor  bool
}{
	"дом деревянный": {PropertyHouse, true},
	"дом каменный":   {PropertyHouse, false},
	"дом":            {PropertyHouse, false},
	"комната":        {PropertyRoom, false},
	"апартаменты":    {PropertyApartments, false},
	"машиноместо":    {PropertyParkingSpace, false},
	"квартира":       {PropertyFlat, false},
}

// BuildParams filters a build to one bank and/or one insurer. An empty
// field means "all".
type BuildParams struct {
	BankID    string
	CompanyID string
}

// BuilderConfig holds pricing table builder configuration.
type BuilderConfig struct {
	// Pacer spaces out consecutive sheet reads. Nil disables pacing;
	// production builds must pace to respect the source's rate limit.
	Pacer *sheets.Pacer

	// ColumnTTL is the base cache TTL for a built pricing column.
	ColumnTTL time.Duration
}

// Builder parses rate sheets into pricing columns.
type Builder struct {
	source sheets.Source
	cache  *cache.Manager
	cfg    BuilderConfig
	logger zerolog.Logger
}

// NewBuilder creates a pricing table builder. The cache manager may be nil,
// in which case every build reads the spreadsheet source.
func NewBuilder(source sheets.Source, cacheManager *cache.Manager, cfg BuilderConfig, logger zerolog.Logger) *Builder {
	if cfg.ColumnTTL <= 0 {
		cfg.ColumnTTL = 1 * time.Hour
	}
	return &Builder{
		source: source,
		cache:  cacheManager,
		cfg:    cfg,
		logger: logger,
	}
}

func columnKey(bankID, companyID string) cache.Key {
	return cache.Key{
		Op:     "pricingColumn",
		Params: map[string]string{"bank": bankID, "company": companyID},
	}
}

// Build parses the spreadsheet source into pricing columns, filtered to the
// requested bank/insurer when specified. A fully qualified request that hits
// the cache performs no sheet I/O.
func (b *Builder) Build(ctx context.Context, params BuildParams) ([]Column, error) {
	if params.BankID != "" && params.CompanyID != "" && b.cache != nil {
		raw, err := b.cache.Get(ctx, columnKey(params.BankID, params.CompanyID))
		if err == nil {
			var items []LineItem
			if err := json.Unmarshal(raw, &items); err == nil {
				b.logger.Debug().
					Str("bank", params.BankID).
					Str("company", params.CompanyID).
					Bool("cache_hit", true).
					Msg("Pricing column from cache")
				return []Column{{BankID: params.BankID, CompanyID: params.CompanyID, Items: items}}, nil
			}
		}
	}

	sheetList, err := b.source.Sheets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sheets: %w", err)
	}

	var columns []Column
	for i, sheet := range sheetList {
		// The spreadsheet source rate-limits reads; space them out.
		if i > 0 && b.cfg.Pacer != nil {
			if err := b.cfg.Pacer.Wait(ctx); err != nil {
				return nil, err
			}
		}

		bankID := mapping.ResolveBank(sheet.Title())
		if params.BankID != "" && params.BankID != bankID {
			continue
		}

		header, err := sheet.Header(ctx)
		if err != nil {
			return nil, fmt.Errorf("load header of %q: %w", sheet.Title(), err)
		}
		rows, err := sheet.Rows(ctx)
		if err != nil {
			return nil, fmt.Errorf("load rows of %q: %w", sheet.Title(), err)
		}

		// First header cell is reserved for row labels.
		for col := 1; col < len(header); col++ {
			companyID := mapping.ResolveCompany(strings.TrimSpace(header[col]))
			if companyID == "" {
				continue
			}
			if params.CompanyID != "" && params.CompanyID != companyID {
				continue
			}

			items := parseColumn(rows, col, bankID, companyID)
			columns = append(columns, Column{BankID: bankID, CompanyID: companyID, Items: items})
			lineItemsParsed.Add(float64(len(items)))

			if b.cache != nil {
				if err := b.cache.Set(ctx, columnKey(bankID, companyID), items, b.cfg.ColumnTTL); err != nil {
					b.logger.Warn().Err(err).
						Str("bank", bankID).
						Str("company", companyID).
						Msg("Failed to cache pricing column")
				}
			}
		}

		columnsBuilt.Inc()
		b.logger.Debug().
			Str("sheet", sheet.Title()).
			Str("bank", bankID).
			Msg("Parsed rate sheet")
	}

	return columns, nil
}

// scanState is the row classifier state: either no gender is being tracked,
// or the most recent life header's gender applies to following age rows.
type scanState struct {
	tracking bool
	gender   Gender
}

// parseColumn folds over the sheet rows top to bottom and emits the line
// items found in the given column. Row classification is stateful: a life
// header row sets the gender applied to immediately following numeric-age
// rows, and commission or property rows clear it.
func parseColumn(rows [][]string, col int, bankID, companyID string) []LineItem {
	var items []LineItem
	state := scanState{}

	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		label := strings.TrimSpace(row[0])
		if label == "" {
			// Spacer row, no state change
			continue
		}
		lower := strings.ToLower(label)

		value, hasValue := cellValue(row, col)

		base := LineItem{BankID: bankID, CompanyID: companyID, Value: value}

		switch {
		case lower == labelTitleRu || lower == labelTitleEn:
			if hasValue {
				item := base
				item.Kind = KindTitle
				items = append(items, item)
			}

		case strings.HasPrefix(lower, lifePrefixRu) || strings.HasPrefix(lower, lifePrefixEn):
			// Header only: sets the gender for following age rows,
			// emits nothing itself.
			state = scanState{tracking: true, gender: lifeGender(lower)}

		case strings.HasPrefix(lower, kvPrefixRu) || strings.HasPrefix(lower, kvPrefixEn):
			state = scanState{}
			kvType, ok := commissionType(lower)
			if !ok || !hasValue {
				continue
			}
			item := base
			item.Kind = KindCommission
			item.CommissionType = kvType
			items = append(items, item)

		default:
			if age, err := strconv.Atoi(lower); err == nil && state.tracking {
				if hasValue {
					item := base
					item.Kind = KindLife
					item.Gender = state.gender
					item.Age = age
					items = append(items, item)
				}
				// Gender stays active: several age rows may follow
				// one life header.
				continue
			}

			state = scanState{}
			if hasValue {
				item := base
				item.Kind = KindProperty
				item.PropertyType, item.WoodenFloor = propertyType(lower)
				items = append(items, item)
			}
		}
	}

	return items
}

// cellValue parses the cell at the given column as a decimal rate. Empty,
// absent, or unparseable cells yield no value: absence, not zero.
func cellValue(row []string, col int) (decimal.Decimal, bool) {
	if col >= len(row) {
		return decimal.Decimal{}, false
	}
	raw := strings.TrimSpace(row[col])
	if raw == "" {
		return decimal.Decimal{}, false
	}
	// The workbook uses the Russian locale's comma decimal separator.
	raw = strings.ReplaceAll(raw, ",", ".")
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}

// lifeGender extracts the gender from a life header label. The marker after
// the prefix is classified by its leading letter, so "female" is not
// mistaken for a male marker by its inner "m".
func lifeGender(lower string) Gender {
	rest := strings.TrimPrefix(lower, lifePrefixRu)
	rest = strings.TrimPrefix(rest, lifePrefixEn)
	if marker := strings.TrimSpace(rest); strings.HasPrefix(marker, "м") || strings.HasPrefix(marker, "m") {
		return GenderMale
	}
	return GenderFemale
}

// commissionType derives a commission sub-kind from the keyword in a kv row
// label.
func commissionType(lower string) (CommissionType, bool) {
	switch {
	case strings.Contains(lower, "имущ") || strings.Contains(lower, "property"):
		return CommissionProperty, true
	case strings.Contains(lower, labelTitleRu) || strings.Contains(lower, labelTitleEn):
		return CommissionTitle, true
	case strings.Contains(lower, "жизн") || strings.Contains(lower, lifePrefixEn):
		return CommissionLife, true
	default:
		return "", false
	}
}

// propertyType maps a property row label to its type and wooden-floor flag.
// Unrecognized labels default to "flat".
func propertyType(lower string) (PropertyType, bool) {
	if entry, ok := propertyLabels[lower]; ok {
		return entry.propertyType, entry.woodenFloor
	}
	return PropertyFlat, false
}
