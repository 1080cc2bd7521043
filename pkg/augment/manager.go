package augment

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/tilda-bridge/finuslugi-proxy/pkg/upstream"
)

var augmentationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fpx_augmentations_total",
	Help: "Total augmentation dispatches by augmenter and outcome",
}, []string{"augmenter", "outcome"}) // "applied", "recovered", "propagated", "failed", "passthrough"

// Manager dispatches an in-flight upstream call to the first matching
// augmenter. Augmenters are consulted in the order given at construction;
// the first whose predicate matches wins.
type Manager struct {
	augmenters []Augmenter
	logger     zerolog.Logger
}

// NewManager creates an augmentation manager with a fixed priority order.
func NewManager(logger zerolog.Logger, augmenters ...Augmenter) *Manager {
	return &Manager{
		augmenters: augmenters,
		logger:     logger,
	}
}

// AugmentResponse is the single entry point exposed to the proxy layer. It
// awaits the upstream call and returns either a body to forward as-is, or
// an error carrying the original upstream status and payload. Requests no
// augmenter matches pass through unchanged, success or failure alike.
func (m *Manager) AugmentResponse(ctx context.Context, req *Request, call UpstreamCall) (json.RawMessage, error) {
	var matched Augmenter
	for _, a := range m.augmenters {
		if a.Matches(req) {
			matched = a
			break
		}
	}

	body, err := call(ctx)

	if matched == nil {
		augmentationsTotal.WithLabelValues("none", "passthrough").Inc()
		return body, err
	}

	logger := m.logger.With().Str("augmenter", matched.Name()).Str("endpoint", req.Path).Logger()

	if err != nil {
		var uerr *upstream.Error
		if rec, ok := matched.(Recoverer); ok && errors.As(err, &uerr) {
			out, rerr := rec.Recover(ctx, req, uerr)
			if rerr != nil {
				logger.Debug().Int("status_code", uerr.StatusCode).Msg("Upstream error propagated")
				augmentationsTotal.WithLabelValues(matched.Name(), "propagated").Inc()
				return nil, rerr
			}
			logger.Info().Int("status_code", uerr.StatusCode).Msg("Upstream error recovered")
			augmentationsTotal.WithLabelValues(matched.Name(), "recovered").Inc()
			return out, nil
		}

		augmentationsTotal.WithLabelValues(matched.Name(), "propagated").Inc()
		return nil, err
	}

	out, aerr := matched.Apply(ctx, req, body)
	if aerr != nil {
		logger.Warn().Err(aerr).Msg("Augmenter failed")
		augmentationsTotal.WithLabelValues(matched.Name(), "failed").Inc()
		return nil, aerr
	}

	augmentationsTotal.WithLabelValues(matched.Name(), "applied").Inc()
	return out, nil
}
