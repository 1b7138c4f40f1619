package geomedea

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"

	"github.com/michaelkirk/geomedea/packedrtree"
)

// writerState tracks a Writer's position in its linear lifecycle
// (spec.md Section 4.5): Open -> PageAccumulating -> Closing -> Done.
// There is no concurrency within a writer instance, so a plain enum
// (rather than a mutex-guarded state machine) is enough -- mirroring the
// teacher's stateful.go pattern, simplified to this writer's strictly
// linear transitions.
type writerState int

const (
	writerOpen writerState = iota
	writerPageAccumulating
	writerClosing
	writerDone
)

// WriterOptions configures a Writer. NewWriter replaces a zero PageBudget
// or HilbertOrder, and a BranchingFactor below 2, with the defaults; a zero
// Compression means CompressionNone. DefaultWriterOptions returns the
// reference defaults, including Zstd compression.
type WriterOptions struct {
	Compression         CompressionKind
	PageBudget          int
	HilbertOrder        uint8
	BranchingFactor     uint8
	RejectOversizePages bool
}

// DefaultWriterOptions returns the reference defaults from spec.md
// Section 4.3 and Section 6.
func DefaultWriterOptions() WriterOptions {
	return WriterOptions{
		Compression:     CompressionZstd,
		PageBudget:      65536,
		HilbertOrder:    defaultHilbertOrder,
		BranchingFactor: defaultBranchingFactor,
	}
}

// Writer encodes features into a geomedea file written to out. Out need
// not be seekable: the reference header->index->features layout requires
// knowing the index before the header can be finalized, so Writer buffers
// accumulated page bytes in memory (standing in for the reference
// implementation's temporary file, see spec.md Section 4.5) until Close.
type Writer struct {
	out     io.Writer
	schema  PropertySchema
	opts    WriterOptions
	encoder *zstd.Encoder

	state        writerState
	curPage      *page
	pages        []pageEntry
	featureBuf   bytes.Buffer
	featureCount uint64
	totalBounds  Bounds
}

// NewWriter creates a Writer for schema with the given options.
func NewWriter(out io.Writer, schema PropertySchema, opts WriterOptions) (*Writer, error) {
	if opts.PageBudget <= 0 {
		opts.PageBudget = DefaultWriterOptions().PageBudget
	}
	if opts.HilbertOrder == 0 {
		opts.HilbertOrder = defaultHilbertOrder
	}
	if opts.BranchingFactor < 2 {
		opts.BranchingFactor = defaultBranchingFactor
	}

	w := &Writer{
		out:         out,
		schema:      schema,
		opts:        opts,
		state:       writerOpen,
		curPage:     newPage(schema, opts.PageBudget),
		totalBounds: EmptyBounds,
	}

	if opts.Compression == CompressionZstd {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, wrapErr(ErrCompressionFailed, err, "creating zstd encoder")
		}
		w.encoder = enc
	}

	return w, nil
}

// Add validates f against the writer's schema, encodes it, and appends it
// to the current page, flushing the previous page first if f would
// overflow it (spec.md Section 4.5, pipeline per feature).
func (w *Writer) Add(f *Feature) error {
	if w.state != writerOpen && w.state != writerPageAccumulating {
		return newErr(ErrIO, "Add called after Close")
	}
	if err := f.validate(w.schema); err != nil {
		return err
	}

	eb := &encodeBuf{}
	if err := encodeFeature(eb, w.schema, f); err != nil {
		return err
	}
	encoded := eb.Bytes()

	if w.opts.RejectOversizePages && len(encoded) > w.opts.PageBudget {
		return fmtErr(ErrPageOverflow, "feature encodes to %d bytes, exceeds page budget %d", len(encoded), w.opts.PageBudget)
	}

	if w.curPage.wouldOverflow(encoded) {
		if err := w.flushPage(); err != nil {
			return err
		}
	}

	w.curPage.add(f, encoded)
	w.totalBounds = w.totalBounds.Union(f.Bounds())
	w.featureCount++
	w.state = writerPageAccumulating
	return nil
}

func (w *Writer) flushPage() error {
	if w.curPage.empty() {
		return nil
	}

	offset := uint64(w.featureBuf.Len())
	pageBuf := &encodeBuf{}
	if err := encodePage(pageBuf, w.opts.Compression, w.encoder, w.curPage.buf.Bytes(), w.curPage.count); err != nil {
		return err
	}
	if _, err := w.featureBuf.Write(pageBuf.Bytes()); err != nil {
		return wrapErr(ErrIO, err, "buffering page bytes")
	}

	w.pages = append(w.pages, pageEntry{
		bounds: w.curPage.bounds,
		offset: offset,
		length: uint32(len(pageBuf.Bytes())),
	})
	w.curPage = newPage(w.schema, w.opts.PageBudget)
	return nil
}

// Close flushes any trailing page, builds the packed R-tree over the
// written pages, and writes the header, index, and feature bytes to out
// in that order (spec.md Section 4.5, Close).
func (w *Writer) Close() error {
	if w.state == writerDone {
		return nil
	}
	w.state = writerClosing

	if err := w.flushPage(); err != nil {
		return err
	}

	nodes, _, err := buildIndex(w.pages, w.opts.HilbertOrder, w.opts.BranchingFactor)
	if err != nil {
		return wrapErr(ErrIO, err, "building packed R-tree index")
	}
	indexBytes := packedrtree.Marshal(nodes)
	log.Debug().
		Int("pages", len(w.pages)).
		Uint64("features", w.featureCount).
		Int("index_nodes", len(nodes)).
		Msg("closing geomedea writer")

	header := &Header{
		Version:         formatVersion,
		Compression:     w.opts.Compression,
		HilbertOrder:    w.opts.HilbertOrder,
		BranchingFactor: w.opts.BranchingFactor,
		Layout:          LayoutHeaderIndexFeatures,
		Schema:          w.schema,
		TotalBounds:     w.totalBounds,
		PageCount:       uint64(len(w.pages)),
		FeatureCount:    w.featureCount,
		IndexNodeCount:  uint64(len(nodes)),
	}

	// The header's byte length is fixed once Schema and the counter
	// fields are set, so encoding once with placeholder offsets
	// establishes the header's length; a second encode with the real
	// offsets produces a byte-identical prefix plus correct trailer.
	headerLen := len(header.encode())
	header.IndexByteOffset = uint64(headerLen)
	header.FeatureBytesOffset = uint64(headerLen) + uint64(len(indexBytes))

	if _, err := w.out.Write(header.encode()); err != nil {
		return wrapErr(ErrIO, err, "writing header")
	}
	if _, err := w.out.Write(indexBytes); err != nil {
		return wrapErr(ErrIO, err, "writing index")
	}
	if _, err := w.out.Write(w.featureBuf.Bytes()); err != nil {
		return wrapErr(ErrIO, err, "writing feature pages")
	}

	if w.encoder != nil {
		w.encoder.Close()
	}

	w.state = writerDone
	return nil
}
