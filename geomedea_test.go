package geomedea

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile writes features through a Writer configured with opts and
// returns the resulting bytes, asserting the write succeeds.
func writeFile(t *testing.T, schema PropertySchema, opts WriterOptions, features []*Feature) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, schema, opts)
	require.NoError(t, err)
	for _, f := range features {
		require.NoError(t, w.Add(f))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// S1 -- Single point: write one feature with an empty schema, read it back.
func TestS1_SinglePoint(t *testing.T) {
	schema := PropertySchema{}
	f := NewFeature(Point(FromDegrees(-122.3321, 47.6062)))

	data := writeFile(t, schema, DefaultWriterOptions(), []*Feature{f})

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	got, err := CollectAll(context.Background(), r.SelectAll())
	require.NoError(t, err)
	require.Len(t, got, 1)

	pt := got[0].Geometry.(Point)
	assert.InDelta(t, -122.3321, LngLat(pt).LngDegrees(), 1e-7)
	assert.InDelta(t, 47.6062, LngLat(pt).LatDegrees(), 1e-7)
}

// S0 -- a writer closed with zero features still produces a valid,
// header-only file; SelectAll yields nothing.
func TestS0_EmptyFile(t *testing.T) {
	data := writeFile(t, PropertySchema{}, DefaultWriterOptions(), nil)

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint64(0), r.Header().PageCount)
	assert.Equal(t, uint64(0), r.Header().FeatureCount)
	assert.Equal(t, 0, r.IndexDepth())

	got, err := CollectAll(context.Background(), r.SelectAll())
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = CollectAll(context.Background(), r.SelectBBox(Bounds{MinLng: -10, MinLat: -10, MaxLng: 10, MaxLat: 10}))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func gridSchema() PropertySchema {
	return PropertySchema{Columns: []Column{
		{Name: "id", Kind: KindI64},
		{Name: "pop", Kind: KindI64},
	}}
}

// gridFeatures builds a grid of points spanning roughly the globe, used by
// the bbox soundness/completeness and compression tests below.
func gridFeatures(n int) []*Feature {
	features := make([]*Feature, 0, n*n)
	id := int64(0)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			lng := -170.0 + float64(i)*(340.0/float64(n-1))
			lat := -80.0 + float64(j)*(160.0/float64(n-1))
			f := NewFeature(Point(FromDegrees(lng, lat)))
			f.Set(0, I64Value(id))
			// every other feature omits "pop" (S5, sparse properties).
			if id%2 == 0 {
				f.Set(1, I64Value(id*10))
			}
			features = append(features, f)
			id++
		}
	}
	return features
}

// S2/S5 -- many compressed features with sparse properties; bbox query
// soundness and completeness against a brute-force scan of SelectAll.
func TestS2_BBoxQuery_SoundAndComplete_Compressed(t *testing.T) {
	schema := gridSchema()
	features := gridFeatures(20) // 400 points

	opts := DefaultWriterOptions()
	opts.Compression = CompressionZstd
	opts.PageBudget = 2048 // force many small pages
	data := writeFile(t, schema, opts, features)

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	all, err := CollectAll(context.Background(), r.SelectAll())
	require.NoError(t, err)
	require.Len(t, all, len(features))

	query := Bounds{
		MinLng: FromDegrees(-125, 32).LngFixed,
		MinLat: FromDegrees(-125, 32).LatFixed,
		MaxLng: FromDegrees(-114, 42).LngFixed,
		MaxLat: FromDegrees(-114, 42).LatFixed,
	}

	got, err := CollectAll(context.Background(), r.SelectBBox(query))
	require.NoError(t, err)

	// Soundness: every returned feature's bounds intersects the query.
	for _, f := range got {
		assert.True(t, f.Bounds().Intersects(query))
	}

	// Completeness: every feature in SelectAll whose bounds intersects the
	// query appears in the bbox result (compared by count).
	expected := 0
	for _, f := range all {
		if f.Bounds().Intersects(query) {
			expected++
		}
	}
	assert.Equal(t, expected, len(got))

	// Sparse properties: presence/absence survives the round trip.
	for _, f := range all {
		id := mustGetI64(t, f, 0)
		_, hasPop := f.Get(1)
		if id%2 == 0 {
			assert.True(t, hasPop)
		} else {
			assert.False(t, hasPop)
		}
	}
}

func mustGetI64(t *testing.T, f *Feature, idx int) int64 {
	t.Helper()
	v, ok := f.Get(idx)
	require.True(t, ok)
	return v.I64()
}

// S3 -- an empty-result bbox query returns zero features.
func TestS3_EmptyBBox(t *testing.T) {
	schema := gridSchema()
	features := gridFeatures(10)
	data := writeFile(t, schema, DefaultWriterOptions(), features)

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	// A query far from any point in the grid (grid spans roughly
	// lng [-170,170], lat [-80,80]).
	got, err := CollectAll(context.Background(), r.SelectBBox(Bounds{MinLng: 0, MinLat: 0, MaxLng: 0, MaxLat: 0}))
	require.NoError(t, err)
	assert.Empty(t, got)
}

// S6 -- a feature whose encoding alone exceeds the page budget occupies a
// dedicated, single-feature page and is still readable.
func TestS6_OversizeFeatureGetsOwnPage(t *testing.T) {
	schema := PropertySchema{Columns: []Column{{Name: "blob", Kind: KindBytes}}}

	small := NewFeature(Point(FromDegrees(1, 1)))
	small.Set(0, BytesValue([]byte("x")))

	big := NewFeature(Point(FromDegrees(2, 2)))
	big.Set(0, BytesValue(bytes.Repeat([]byte{0x42}, 10_000)))

	trailing := NewFeature(Point(FromDegrees(3, 3)))
	trailing.Set(0, BytesValue([]byte("y")))

	opts := DefaultWriterOptions()
	opts.PageBudget = 1024
	opts.Compression = CompressionNone
	data := writeFile(t, schema, opts, []*Feature{small, big, trailing})

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, uint64(3), r.Header().PageCount)

	got, err := CollectAll(context.Background(), r.SelectAll())
	require.NoError(t, err)
	require.Len(t, got, 3)

	bigOut, ok := got[1].Get(0)
	require.True(t, ok)
	assert.Len(t, bigOut.Bytes(), 10_000)
}

// RejectOversizePages causes the writer to refuse a feature that alone
// exceeds the page budget, without consuming it.
func TestWriter_RejectOversizePages(t *testing.T) {
	schema := PropertySchema{Columns: []Column{{Name: "blob", Kind: KindBytes}}}
	big := NewFeature(Point(FromDegrees(0, 0)))
	big.Set(0, BytesValue(bytes.Repeat([]byte{1}, 10_000)))

	opts := DefaultWriterOptions()
	opts.PageBudget = 1024
	opts.RejectOversizePages = true

	var buf bytes.Buffer
	w, err := NewWriter(&buf, schema, opts)
	require.NoError(t, err)

	err = w.Add(big)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrPageOverflow))
}

func TestWriter_ValidationFailure_DoesNotConsumeFeature(t *testing.T) {
	schema := testSchema()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, schema, DefaultWriterOptions())
	require.NoError(t, err)

	bad := NewFeature(Point(FromDegrees(0, 0)))
	bad.Set(0, U64Value(1)) // schema declares column 0 as KindString
	err = w.Add(bad)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrPropertyKindMismatch))

	require.NoError(t, w.Close())

	r, err := Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, uint64(0), r.Header().FeatureCount)
}

// Round-trip: read(write(F)) == F feature-wise and coordinate-wise.
func TestRoundTrip_PreservesGeometryAndProperties(t *testing.T) {
	schema := PropertySchema{Columns: []Column{
		{Name: "name", Kind: KindString},
		{Name: "active", Kind: KindBool},
		{Name: "score", Kind: KindF64},
	}}

	f1 := NewFeature(Polygon{
		LineString{FromDegrees(0, 0), FromDegrees(0, 10), FromDegrees(10, 10), FromDegrees(10, 0), FromDegrees(0, 0)},
	})
	f1.Set(0, StringValue("alpha"))
	f1.Set(1, BoolValue(true))
	f1.Set(2, F64Value(3.5))

	f2 := NewFeature(MultiPoint{FromDegrees(1, 1), FromDegrees(2, 2)})
	f2.Set(0, StringValue("beta"))

	data := writeFile(t, schema, DefaultWriterOptions(), []*Feature{f1, f2})

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	got, err := CollectAll(context.Background(), r.SelectAll())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, f1.Geometry, got[0].Geometry)
	name, _ := got[0].Get(0)
	assert.Equal(t, "alpha", name.String())
	active, _ := got[0].Get(1)
	assert.True(t, active.Bool())
	score, _ := got[0].Get(2)
	assert.InDelta(t, 3.5, score.F64(), 1e-9)

	assert.Equal(t, f2.Geometry, got[1].Geometry)
	_, hasActive := got[1].Get(1)
	assert.False(t, hasActive)
}

// Index coverage: the union of all leaf bounds equals TotalBounds.
func TestIndex_CoverageMatchesTotalBounds(t *testing.T) {
	schema := gridSchema()
	features := gridFeatures(8)
	opts := DefaultWriterOptions()
	opts.PageBudget = 512
	data := writeFile(t, schema, opts, features)

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	union := EmptyBounds
	for _, n := range r.nodes[r.levels[0].Start:r.levels[0].End] {
		union = union.Union(boxToBounds(n.Box))
	}
	assert.Equal(t, r.Header().TotalBounds, union)
}

// Cancellation: a cancelled context stops iteration with ErrCancelled.
func TestSelection_Cancellation(t *testing.T) {
	schema := gridSchema()
	features := gridFeatures(5)
	data := writeFile(t, schema, DefaultWriterOptions(), features)

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	it := r.SelectAll()
	defer it.Close()
	_, err = it.Next(ctx)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrCancelled))
}

func TestSelectAll_NotRestartable_IssuesFreshIteration(t *testing.T) {
	schema := PropertySchema{}
	data := writeFile(t, schema, DefaultWriterOptions(), []*Feature{NewFeature(Point(FromDegrees(0, 0)))})

	r, err := Open(bytes.NewReader(data))
	require.NoError(t, err)
	defer r.Close()

	it1 := r.SelectAll()
	f, err := it1.Next(context.Background())
	require.NoError(t, err)
	require.NotNil(t, f)
	_, err = it1.Next(context.Background())
	assert.Equal(t, io.EOF, err)

	it2 := r.SelectAll()
	f2, err := it2.Next(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, f2)
}
