// Package normalizer defines the translation boundary between a raw upload and
// field maps the intake pipeline can canonicalize.
package normalizer

import "context"

// RawRecord is one normalized row. Keys are whatever spelling the normalizer produced.
type RawRecord map[string]string

// Normalizer turns an uploaded file into raw records. Implementations never persist anything.
type Normalizer interface {
	// Normalize returns domain.ErrNormalizationUnavailable when the service cannot be
	// reached and domain.ErrMalformedResponse when its output is not a list of records.
	Normalize(ctx context.Context, fileName string, raw []byte) ([]RawRecord, error)
}
