// Package augment implements the response augmentation pipeline: strategies
// that enrich or replace upstream API responses with data derived from the
// rate workbook, and a manager that dispatches an in-flight call to the
// first matching strategy.
//
// Known limitation: derived list entries are de-duplicated against upstream
// entries by canonical identifier only. If the workbook and the upstream API
// disagree on the identifier for the same real-world entity, the merged list
// shows both.
//
// Matching is a suffix check on the forwarded path including any query
// string, so a request with query parameters bypasses augmentation and
// passes through unchanged. The endpoints augmented here take none.
package augment

import (
	"context"
	"encoding/json"

	"github.com/tilda-bridge/finuslugi-proxy/pkg/upstream"
)

// Request is the originating proxy request as seen by augmenters.
type Request struct {
	// Method is the HTTP method.
	Method string

	// Path is the normalized request path.
	Path string

	// Body is the parsed JSON body for POST requests, nil otherwise.
	Body json.RawMessage
}

// UpstreamCall represents the in-flight upstream API call. It yields the
// response body, or an error that is an *upstream.Error when the upstream
// answered with a non-2xx status.
type UpstreamCall func(ctx context.Context) (json.RawMessage, error)

// Augmenter is one augmentation strategy. Matches decides whether the
// strategy applies to a request; Apply transforms a successful upstream
// body.
type Augmenter interface {
	// Name identifies the augmenter in logs and metrics.
	Name() string

	// Matches reports whether this augmenter handles the request.
	Matches(req *Request) bool

	// Apply transforms the successful upstream response body.
	Apply(ctx context.Context, req *Request, body json.RawMessage) (json.RawMessage, error)
}

// Recoverer is implemented by augmenters that can replace specific upstream
// failures with a locally computed body. Returning an error re-raises it.
type Recoverer interface {
	Recover(ctx context.Context, req *Request, uerr *upstream.Error) (json.RawMessage, error)
}
