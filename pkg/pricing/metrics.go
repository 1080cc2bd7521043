package pricing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	columnsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpx_pricing_sheets_parsed_total",
		Help: "Total rate sheets parsed into pricing columns",
	})

	lineItemsParsed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fpx_pricing_line_items_total",
		Help: "Total line items emitted by the pricing table builder",
	})

	quotesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fpx_pricing_quotes_total",
		Help: "Total quote resolutions by outcome",
	}, []string{"outcome"}) // "priced", "no_quote", "error"
)
