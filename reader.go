package geomedea

import (
	"context"
	"io"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/michaelkirk/geomedea/packedrtree"
)

// Reader is a random-access local reader over a geomedea file (spec.md
// Section 4.6). It reads the header, schema, and index eagerly on Open --
// the index is "small relative to features" per spec.md Section 4.6 -- and
// decodes feature pages on demand as selections iterate.
type Reader struct {
	ra      io.ReaderAt
	header  *Header
	nodes   []packedrtree.Node
	levels  []packedrtree.LevelRange
	decoder *zstd.Decoder
}

// Open reads and validates the header, schema, and index from ra.
func Open(ra io.ReaderAt) (*Reader, error) {
	header, err := loadHeader(readerAtPrefix(ra))
	if err != nil {
		return nil, err
	}

	levels, err := packedrtree.Levels(int(header.PageCount), int(header.BranchingFactor))
	if err != nil {
		return nil, wrapErr(ErrIO, err, "deriving index levels")
	}

	var nodes []packedrtree.Node
	if header.IndexNodeCount > 0 {
		// header.IndexNodeCount is bounded at decode time (see
		// maxIndexNodeCount in header.go), so this allocation is capped
		// regardless of what a crafted file's header claims.
		indexBuf := make([]byte, header.IndexNodeCount*packedrtree.NodeByteSize)
		if _, err := ra.ReadAt(indexBuf, int64(header.IndexByteOffset)); err != nil && err != io.EOF {
			return nil, wrapErr(ErrIO, err, "reading index")
		}
		nodes, err = packedrtree.Unmarshal(indexBuf, int(header.IndexNodeCount))
		if err != nil {
			return nil, wrapErr(ErrIO, err, "unmarshalling index")
		}
	}

	var dec *zstd.Decoder
	if header.Compression == CompressionZstd {
		dec, err = zstd.NewReader(nil)
		if err != nil {
			return nil, wrapErr(ErrCompressionFailed, err, "creating zstd decoder")
		}
	}

	log.Debug().
		Uint64("pages", header.PageCount).
		Uint64("features", header.FeatureCount).
		Int("index_nodes", len(nodes)).
		Msg("opened geomedea reader")

	return &Reader{ra: ra, header: header, nodes: nodes, levels: levels, decoder: dec}, nil
}

func readerAtPrefix(ra io.ReaderAt) prefixFetcher {
	return func(n int64) ([]byte, error) {
		buf := make([]byte, n)
		read, err := ra.ReadAt(buf, 0)
		if err != nil && err != io.EOF {
			return nil, wrapErr(ErrIO, err, "reading header prefix")
		}
		return buf[:read], nil
	}
}

// Header returns the decoded file header.
func (r *Reader) Header() *Header {
	return r.header
}

// IndexDepth returns the number of levels in the packed R-tree, including
// the leaf level (0 for an empty file).
func (r *Reader) IndexDepth() int {
	return len(r.levels)
}

// Close releases the reader's decompressor.
func (r *Reader) Close() error {
	if r.decoder != nil {
		r.decoder.Close()
	}
	return nil
}

func (r *Reader) readPage(offset uint64, length uint32) ([]*Feature, error) {
	buf := make([]byte, length)
	if _, err := r.ra.ReadAt(buf, int64(r.header.FeatureBytesOffset)+int64(offset)); err != nil && err != io.EOF {
		return nil, wrapErr(ErrIO, err, "reading page")
	}
	return decodePageFromBytes(buf, r.header.Compression, r.decoder, r.header.Schema)
}

// allPageRefs returns every leaf's (offset, length), sorted ascending by
// offset -- "page order" for SelectAll (spec.md Section 4.6).
func (r *Reader) allPageRefs() []packedrtree.Ref {
	if len(r.levels) == 0 {
		return nil
	}
	leafRange := r.levels[0]
	refs := make([]packedrtree.Ref, 0, leafRange.End-leafRange.Start)
	for i := leafRange.Start; i < leafRange.End; i++ {
		n := r.nodes[i]
		refs = append(refs, packedrtree.Ref{Offset: n.Offset, Length: n.Length})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Offset < refs[j].Offset })
	return refs
}

// SelectAll returns every feature in page order.
func (r *Reader) SelectAll() FeatureIter {
	return &pageOrderIter{r: r, refs: r.allPageRefs()}
}

// SelectBBox returns every feature whose bounds intersect q, queried via
// the packed R-tree and filtered per-feature within each hit page
// (spec.md Section 4.6).
func (r *Reader) SelectBBox(q Bounds) FeatureIter {
	hits := indexSearch(r.nodes, r.levels, r.header.BranchingFactor, q)
	return &pageOrderIter{r: r, refs: hits, query: &q}
}

// pageOrderIter walks a list of page refs in order, decoding one page at a
// time and emitting its features (filtered by query, if set) before
// moving to the next -- bounding memory to one page regardless of
// selection size (spec.md Section 4.7, Backpressure).
type pageOrderIter struct {
	r       *Reader
	refs    []packedrtree.Ref
	refIdx  int
	query   *Bounds
	current []*Feature
	curIdx  int
}

func (it *pageOrderIter) Next(ctx context.Context) (*Feature, error) {
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
		if it.refIdx >= len(it.refs) {
			return nil, io.EOF
		}
		ref := it.refs[it.refIdx]
		it.refIdx++
		feats, err := it.r.readPage(ref.Offset, ref.Length)
		if err != nil {
			return nil, err
		}
		it.current = feats
		it.curIdx = 0
	}
}

func (it *pageOrderIter) Close() error {
	return nil
}
