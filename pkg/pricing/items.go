// Package pricing builds typed rate tables from the spreadsheet source and
// resolves mortgage-insurance quotes against them.
package pricing

import "github.com/shopspring/decimal"

// Kind classifies a line item by the coverage it prices.
type Kind string

const (
	// KindProperty is a property coverage rate.
	KindProperty Kind = "property"

	// KindLife is a life coverage rate for one gender and age.
	KindLife Kind = "life"

	// KindTitle is a title coverage rate.
	KindTitle Kind = "title"

	// KindCommission is a partner commission (kv) rate, summed separately
	// from premium rates.
	KindCommission Kind = "commission"
)

// PropertyType classifies the insured property.
type PropertyType string

const (
	PropertyHouse        PropertyType = "house"
	PropertyRoom         PropertyType = "room"
	PropertyApartments   PropertyType = "apartments"
	PropertyParkingSpace PropertyType = "parkingSpace"
	PropertyFlat         PropertyType = "flat"
)

// Gender of the insured person for life coverage.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// CommissionType identifies which coverage a commission rate corresponds to.
type CommissionType string

const (
	CommissionProperty CommissionType = "property"
	CommissionTitle    CommissionType = "title"
	CommissionLife     CommissionType = "life"
)

// LineItem is one parsed (coverage kind, rate) fact extracted from a single
// table cell. Items exist only for non-empty, parseable cells: absence means
// no item, never a zero rate.
type LineItem struct {
	BankID    string          `json:"bankId"`
	CompanyID string          `json:"companyId"`
	Kind      Kind            `json:"kind"`
	Value     decimal.Decimal `json:"value"`

	// Property attributes. WoodenFloor is only meaningful for houses.
	PropertyType PropertyType `json:"propertyType,omitempty"`
	WoodenFloor  bool         `json:"woodenFloor,omitempty"`

	// Life attributes.
	Gender Gender `json:"gender,omitempty"`
	Age    int    `json:"age,omitempty"`

	// Commission attributes.
	CommissionType CommissionType `json:"commissionType,omitempty"`
}

// Column is the list of all line items for one (bank, insurer) pair, across
// all coverage kinds. It is the unit of caching and of price resolution,
// and is immutable once built.
type Column struct {
	BankID    string     `json:"bankId"`
	CompanyID string     `json:"companyId"`
	Items     []LineItem `json:"items"`
}
