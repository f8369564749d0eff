// Package dedup persists the set of previously processed source identifiers.
// The store is append-only evidence: the workflow may read it at any time but
// only the commit stage writes, and nothing exposes deletion (clearing is a
// manual, out-of-band operation).
package dedup

import (
	"context"
	"time"
)

// Namespace is the logical path all records live under, kept explicit so a
// shared backing store can host other sets without collisions.
const Namespace = "processed-urls"

// Store records previously processed source identifiers.
type Store interface {
	// Has reports whether the identifier was already processed.
	Has(ctx context.Context, id string) (bool, error)
	// Put marks the identifier as processed at the given time. Re-putting an
	// existing identifier is a no-op, never an error.
	Put(ctx context.Context, id string, at time.Time) error
}
