package geomedea

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/michaelkirk/geomedea/packedrtree"
	"github.com/michaelkirk/geomedea/rangereader"
)

// RangeFetcher issues a single HTTP range request for the inclusive byte
// range [start, end] and returns its body. Header-prefix and index bodies
// are read to EOF; page-range bodies are read only as far as the last page
// a selection needs.
type RangeFetcher interface {
	FetchRange(ctx context.Context, start, end int64) (io.ReadCloser, error)
}

// HTTPRangeFetcher is the reference RangeFetcher: plain net/http with a
// Range header, per spec.md Section 6 ("Wire protocol"). The HTTP
// transport's retry/timeout/auth policy is the caller's concern (spec.md
// Section 1, Non-goals) -- this type only shapes the one request geomedea
// needs.
type HTTPRangeFetcher struct {
	Client *http.Client
	URL    string
}

func (f *HTTPRangeFetcher) FetchRange(ctx context.Context, start, end int64) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, wrapErr(ErrIO, err, "building range request")
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", start, end))

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, wrapErr(ErrIO, err, "issuing range request")
	}
	if resp.StatusCode != http.StatusPartialContent && resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmtErr(ErrIO, "range request got unexpected status %s", resp.Status)
	}
	return resp.Body, nil
}

// HTTPReader is the streaming range-request reader (spec.md Section 4.7):
// it fetches header, schema, and index via one or more prefix/direct
// ranges on Open, then fetches feature pages lazily, one coalesced range
// at a time, as a selection is consumed.
type HTTPReader struct {
	fetcher     RangeFetcher
	header      *Header
	nodes       []packedrtree.Node
	levels      []packedrtree.LevelRange
	coalesceGap int64
}

// OpenHTTP fetches and decodes the header and index from fetcher.
func OpenHTTP(ctx context.Context, fetcher RangeFetcher) (*HTTPReader, error) {
	header, err := loadHeader(httpPrefixFetcher(ctx, fetcher))
	if err != nil {
		return nil, err
	}

	levels, err := packedrtree.Levels(int(header.PageCount), int(header.BranchingFactor))
	if err != nil {
		return nil, wrapErr(ErrIO, err, "deriving index levels")
	}

	var nodes []packedrtree.Node
	if header.IndexNodeCount > 0 {
		start := int64(header.IndexByteOffset)
		end := start + int64(header.IndexNodeCount)*packedrtree.NodeByteSize - 1
		body, err := fetcher.FetchRange(ctx, start, end)
		if err != nil {
			return nil, err
		}
		indexBuf, err := io.ReadAll(body)
		body.Close()
		if err != nil {
			return nil, wrapErr(ErrIO, err, "reading index range")
		}
		nodes, err = packedrtree.Unmarshal(indexBuf, int(header.IndexNodeCount))
		if err != nil {
			return nil, wrapErr(ErrIO, err, "unmarshalling index")
		}
	}

	log.Debug().
		Uint64("pages", header.PageCount).
		Uint64("features", header.FeatureCount).
		Msg("opened geomedea http reader")

	return &HTTPReader{
		fetcher:     fetcher,
		header:      header,
		nodes:       nodes,
		levels:      levels,
		coalesceGap: rangereader.DefaultCoalesceGap,
	}, nil
}

func httpPrefixFetcher(ctx context.Context, fetcher RangeFetcher) prefixFetcher {
	return func(n int64) ([]byte, error) {
		body, err := fetcher.FetchRange(ctx, 0, n-1)
		if err != nil {
			return nil, err
		}
		defer body.Close()
		buf, err := io.ReadAll(body)
		if err != nil {
			return nil, wrapErr(ErrIO, err, "reading header prefix range")
		}
		return buf, nil
	}
}

// Header returns the decoded file header.
func (h *HTTPReader) Header() *Header {
	return h.header
}

// SelectAll returns every feature in page order, fetched lazily.
func (h *HTTPReader) SelectAll() FeatureIter {
	return h.newIter(h.allPageSpans(), nil)
}

// SelectBBox returns every feature whose bounds intersect q, fetched
// lazily via coalesced range requests over the index hits.
func (h *HTTPReader) SelectBBox(q Bounds) FeatureIter {
	hits := indexSearch(h.nodes, h.levels, h.header.BranchingFactor, q)
	spans := make([]rangereader.Span, len(hits))
	for i, ref := range hits {
		spans[i] = rangereader.Span{
			Offset: int64(h.header.FeatureBytesOffset) + int64(ref.Offset),
			Length: int64(ref.Length),
		}
	}
	return h.newIter(spans, &q)
}

func (h *HTTPReader) allPageSpans() []rangereader.Span {
	if len(h.levels) == 0 {
		return nil
	}
	leafRange := h.levels[0]
	spans := make([]rangereader.Span, 0, leafRange.End-leafRange.Start)
	for i := leafRange.Start; i < leafRange.End; i++ {
		n := h.nodes[i]
		spans = append(spans, rangereader.Span{
			Offset: int64(h.header.FeatureBytesOffset) + int64(n.Offset),
			Length: int64(n.Length),
		})
	}
	return spans
}

func (h *HTTPReader) newIter(spans []rangereader.Span, query *Bounds) *httpPageIter {
	merged := rangereader.Coalesce(spans, h.coalesceGap)
	log.Debug().Int("hits", len(spans)).Int("ranges", len(merged)).Msg("planned range requests")
	return &httpPageIter{
		h:      h,
		query:  query,
		merged: merged,
	}
}

// httpPageIter walks a list of coalesced ranges, fetching each one's body
// only when reached, discarding bridge bytes between spans, and decoding
// exactly one page at a time -- memory use is bounded by one page
// regardless of selection size (spec.md Section 4.7, Backpressure). One
// zstd.Decoder is created per iterator, when its first range is opened,
// and reset before each page, so no decompressor state leaks between pages
// (spec.md Section 4.7, critical note).
type httpPageIter struct {
	h      *HTTPReader
	query  *Bounds
	merged []rangereader.MergedRange

	mrIdx   int
	body    io.ReadCloser
	br      *bufio.Reader
	pos     int64
	spanIdx int
	dec     *zstd.Decoder

	current []*Feature
	curIdx  int
}

func (it *httpPageIter) Next(ctx context.Context) (*Feature, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, wrapErr(ErrCancelled, err, "selection cancelled")
		}

		if it.curIdx < len(it.current) {
			f := it.current[it.curIdx]
			it.curIdx++
			if it.query != nil && !f.Bounds().Intersects(*it.query) {
				continue
			}
			return f, nil
		}

		if it.br != nil && it.spanIdx >= len(it.merged[it.mrIdx].Spans) {
			it.closeCurrentRange()
			it.mrIdx++
		}

		if it.br == nil {
			if it.mrIdx >= len(it.merged) {
				return nil, io.EOF
			}
			if err := it.openRange(ctx); err != nil {
				return nil, err
			}
		}

		mr := it.merged[it.mrIdx]
		span := mr.Spans[it.spanIdx]
		it.spanIdx++

		if gap := span.Offset - it.pos; gap > 0 {
			if _, err := io.CopyN(io.Discard, it.br, gap); err != nil {
				return nil, wrapErr(ErrIO, err, "discarding inter-page gap bytes")
			}
			it.pos += gap
		}

		pageBuf := make([]byte, span.Length)
		if _, err := io.ReadFull(it.br, pageBuf); err != nil {
			return nil, wrapErr(ErrIO, err, "reading page bytes from range stream")
		}
		it.pos += span.Length

		feats, err := decodePageFromBytes(pageBuf, it.h.header.Compression, it.dec, it.h.header.Schema)
		if err != nil {
			return nil, err
		}
		it.current = feats
		it.curIdx = 0
	}
}

func (it *httpPageIter) openRange(ctx context.Context) error {
	mr := it.merged[it.mrIdx]
	body, err := it.h.fetcher.FetchRange(ctx, mr.Start, mr.End)
	if err != nil {
		return err
	}
	if it.h.header.Compression == CompressionZstd && it.dec == nil {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			body.Close()
			return wrapErr(ErrCompressionFailed, err, "creating zstd decoder")
		}
		it.dec = dec
	}
	it.body = body
	it.br = bufio.NewReader(body)
	it.pos = mr.Start
	it.spanIdx = 0
	return nil
}

func (it *httpPageIter) closeCurrentRange() {
	if it.body != nil {
		it.body.Close()
	}
	it.body = nil
	it.br = nil
}

func (it *httpPageIter) Close() error {
	it.closeCurrentRange()
	if it.dec != nil {
		it.dec.Close()
	}
	return nil
}
