package geomedea

import (
	"context"
	"io"
)

// FeatureIter is a lazy, single-pass sequence of features (spec.md
// Section 4.8). It is the Go-idiomatic stand-in for the spec's "async
// sequence": a pull iterator in the style of database/sql.Rows rather than
// a channel, since the reader -- not the consumer -- knows when it's safe
// to fetch the next chunk (spec.md Section 4.7, "the consumer's pace
// throttles the HTTP read"). Not restartable: calling a selection method
// again issues new requests and returns a new FeatureIter.
type FeatureIter interface {
	// Next returns the next feature, or (nil, io.EOF) when the selection
	// is exhausted. Passing a cancelled ctx causes Next to return an
	// error wrapping ErrCancelled on its next call, propagating to any
	// in-flight HTTP request (spec.md Section 5, Cancellation).
	Next(ctx context.Context) (*Feature, error)
	// Close releases any resources (HTTP response bodies, decompressor
	// state) held by the iterator. Safe to call more than once.
	Close() error
}

// CollectAll drains it into a slice, for callers that don't need
// streaming consumption (e.g. tests, small selections).
func CollectAll(ctx context.Context, it FeatureIter) ([]*Feature, error) {
	defer it.Close()
	var out []*Feature
	for {
		f, err := it.Next(ctx)
		if err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		out = append(out, f)
	}
}
