package galaxy

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeScene records attachments the way the raylib scene does.
type fakeScene struct {
	attached []*Renderable
	attaches int
	detaches int
}

func (s *fakeScene) Attach(r *Renderable) {
	s.attached = append(s.attached, r)
	s.attaches++
}

func (s *fakeScene) Detach(r *Renderable) {
	for i, a := range s.attached {
		if a == r {
			s.attached = append(s.attached[:i], s.attached[i+1:]...)
			break
		}
	}
	s.detaches++
}

// fixedSource replays values, cycling when exhausted.
type fixedSource struct {
	vals []float32
	i    int
}

func (f *fixedSource) Float32() float32 {
	v := f.vals[f.i%len(f.vals)]
	f.i++
	return v
}

func smallParams() Parameters {
	p := DefaultParameters()
	p.Count = 2000
	return p
}

func TestBufferLengths(t *testing.T) {
	for _, count := range []int{1, 2, 3, 100, 9999} {
		p := smallParams()
		p.Count = count
		data, err := Fill(context.Background(), p, NewSource(1))
		require.NoError(t, err)
		assert.Len(t, data.Positions, 3*count)
		assert.Len(t, data.Colors, 3*count)
		assert.Equal(t, count, data.Len())
	}
}

func TestColorsAndRadiusInRange(t *testing.T) {
	p := smallParams()
	p.Randomness = 0
	p.Spin = -2.5
	data, err := Fill(context.Background(), p, NewSource(7))
	require.NoError(t, err)

	for i := 0; i < data.Len(); i++ {
		pos, col := data.Point(i)
		for _, c := range col {
			assert.GreaterOrEqual(t, c, float32(0))
			assert.LessOrEqual(t, c, float32(1))
		}
		r := math32.Hypot(pos[0], pos[2])
		assert.LessOrEqual(t, r, p.Radius+1e-4)
	}
}

func TestNoiselessSpiral(t *testing.T) {
	p := smallParams()
	p.Randomness = 0
	p.Branches = 4
	src := rand.New(rand.NewSource(42))
	data, err := Fill(context.Background(), p, src)
	require.NoError(t, err)

	// Replay the stream to recover each drawn radius.
	replay := rand.New(rand.NewSource(42))
	for i := 0; i < data.Len(); i++ {
		radius := replay.Float32() * p.Radius
		for k := 0; k < 6; k++ {
			replay.Float32()
		}
		pos, _ := data.Point(i)
		assert.Equal(t, float32(0), pos[1])
		assert.InDelta(t, radius, math32.Hypot(pos[0], pos[2]), 1e-4)
	}
}

func TestBranchBuckets(t *testing.T) {
	p := smallParams()
	p.Randomness = 0
	p.Spin = 0
	p.Branches = 5
	data, err := Fill(context.Background(), p, NewSource(3))
	require.NoError(t, err)

	angle := func(i int) float32 {
		pos, _ := data.Point(i)
		return math32.Atan2(pos[2], pos[0])
	}
	for i := 0; i+p.Branches < data.Len(); i += 37 {
		a, b := angle(i), angle(i+p.Branches)
		// Points near the origin carry no usable angle.
		pa, _ := data.Point(i)
		pb, _ := data.Point(i + p.Branches)
		if math32.Hypot(pa[0], pa[2]) < 1e-3 || math32.Hypot(pb[0], pb[2]) < 1e-3 {
			continue
		}
		assert.InDelta(t, a, b, 1e-3, "points %d and %d", i, i+p.Branches)
	}
}

func TestBranchesMoreThanCount(t *testing.T) {
	p := smallParams()
	p.Count = 3
	p.Branches = 10
	data, err := Fill(context.Background(), p, NewSource(1))
	require.NoError(t, err)
	assert.Equal(t, 3, data.Len())
}

func TestSinglePoint(t *testing.T) {
	p := Parameters{
		Count:           1,
		Size:            0.02,
		Radius:          1,
		Branches:        1,
		Spin:            0,
		Randomness:      0,
		RandomnessPower: 2,
		InnerColor:      MustParseColor("#ff6030"),
		OuterColor:      MustParseColor("#1b3984"),
	}
	src := &fixedSource{vals: []float32{1, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}}
	data, err := Fill(context.Background(), p, src)
	require.NoError(t, err)

	pos, col := data.Point(0)
	assert.InDelta(t, 1, pos[0], 1e-6)
	assert.Equal(t, float32(0), pos[1])
	assert.InDelta(t, 0, pos[2], 1e-6)

	r, g, b := lerpLinear(p.InnerColor, p.OuterColor, 1)
	assert.Equal(t, [3]float32{r, g, b}, col)
	outer := p.OuterColor
	assert.InDelta(t, outer.R, col[0], 1e-4)
	assert.InDelta(t, outer.G, col[1], 1e-4)
	assert.InDelta(t, outer.B, col[2], 1e-4)

	src = &fixedSource{vals: []float32{0, 0.5}}
	data, err = Fill(context.Background(), p, src)
	require.NoError(t, err)
	_, col = data.Point(0)
	inner := p.InnerColor
	assert.InDelta(t, inner.R, col[0], 1e-4)
	assert.InDelta(t, inner.G, col[1], 1e-4)
	assert.InDelta(t, inner.B, col[2], 1e-4)
}

func TestJitterPowerAndSign(t *testing.T) {
	p := Parameters{Count: 1, Size: 1, Radius: 1, Branches: 1, Randomness: 2, RandomnessPower: 3}
	// radius 0, then (magnitude, sign) per axis.
	src := &fixedSource{vals: []float32{0, 0.5, 0.9, 0.5, 0.1, 1, 0}}
	data, err := Fill(context.Background(), p, src)
	require.NoError(t, err)
	pos, _ := data.Point(0)
	assert.InDelta(t, 0.25, pos[0], 1e-6)  // 0.5^3 * +1 * 2
	assert.InDelta(t, -0.25, pos[1], 1e-6) // 0.5^3 * -1 * 2
	assert.InDelta(t, -2, pos[2], 1e-6)    // 1^3 * -1 * 2
}

func TestNegativeSpinMirrors(t *testing.T) {
	p := smallParams()
	p.Randomness = 0
	p.Branches = 1
	p.Spin = -1.5
	b, err := Fill(context.Background(), p, NewSource(11))
	require.NoError(t, err)
	p.Spin = 1.5
	c, err := Fill(context.Background(), p, NewSource(11))
	require.NoError(t, err)

	for i := 0; i < b.Len(); i += 101 {
		pb, _ := b.Point(i)
		pc, _ := c.Point(i)
		assert.InDelta(t, pc[0], pb[0], 1e-4)
		assert.InDelta(t, -pc[2], pb[2], 1e-4)
	}
}

func TestValidation(t *testing.T) {
	cases := []struct {
		name  string
		field string
		edit  func(p *Parameters)
	}{
		{"zero count", "count", func(p *Parameters) { p.Count = 0 }},
		{"negative count", "count", func(p *Parameters) { p.Count = -5 }},
		{"zero radius", "radius", func(p *Parameters) { p.Radius = 0 }},
		{"zero branches", "branches", func(p *Parameters) { p.Branches = 0 }},
		{"zero randomness power", "randomness_power", func(p *Parameters) { p.RandomnessPower = 0 }},
		{"zero size", "size", func(p *Parameters) { p.Size = 0 }},
		{"negative randomness", "randomness", func(p *Parameters) { p.Randomness = -0.1 }},
		{"nan spin", "spin", func(p *Parameters) { p.Spin = math32.NaN() }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := DefaultParameters()
			tc.edit(&p)
			err := p.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameter))
			var ipe *InvalidParameterError
			require.True(t, errors.As(err, &ipe))
			assert.Equal(t, tc.field, ipe.Field)
		})
	}
	assert.NoError(t, DefaultParameters().Validate())
}

func TestGenerateReplacesPrevious(t *testing.T) {
	scn := &fakeScene{}
	gen := NewGenerator(scn, 1)
	ctx := context.Background()

	first, err := gen.Generate(ctx, smallParams(), nil)
	require.NoError(t, err)
	require.Len(t, scn.attached, 1)
	assert.True(t, first.Attached())

	second, err := gen.Generate(ctx, smallParams(), first)
	require.NoError(t, err)
	require.Len(t, scn.attached, 1)
	assert.Same(t, second, scn.attached[0])
	assert.True(t, first.Disposed())
	assert.False(t, first.Attached())
	assert.Nil(t, first.Dataset())
	assert.EqualValues(t, 1, gen.LiveBuffers())
}

func TestGenerateInvalidKeepsPrevious(t *testing.T) {
	scn := &fakeScene{}
	gen := NewGenerator(scn, 1)
	ctx := context.Background()

	prev, err := gen.Generate(ctx, smallParams(), nil)
	require.NoError(t, err)

	for _, edit := range []func(p *Parameters){
		func(p *Parameters) { p.Count = 0 },
		func(p *Parameters) { p.Radius = 0 },
		func(p *Parameters) { p.Branches = 0 },
		func(p *Parameters) { p.RandomnessPower = 0 },
	} {
		p := smallParams()
		edit(&p)
		got, err := gen.Generate(ctx, p, prev)
		require.ErrorIs(t, err, ErrInvalidParameter)
		assert.Same(t, prev, got)
		assert.False(t, prev.Disposed())
		require.Len(t, scn.attached, 1)
		assert.Same(t, prev, scn.attached[0])
	}
	assert.Equal(t, 0, scn.detaches)
}

func TestGenerateCanceled(t *testing.T) {
	scn := &fakeScene{}
	gen := NewGenerator(scn, 1)

	prev, err := gen.Generate(context.Background(), smallParams(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, err := gen.Generate(ctx, smallParams(), prev)
	require.ErrorIs(t, err, context.Canceled)
	assert.Same(t, prev, got, "a generation canceled before it starts leaves prev attached")
	assert.Len(t, scn.attached, 1)
}

// cancelAfterCtx reports Canceled from its n-th Err call on.
type cancelAfterCtx struct {
	context.Context
	n     int
	calls int
}

func (c *cancelAfterCtx) Err() error {
	c.calls++
	if c.calls >= c.n {
		return context.Canceled
	}
	return nil
}

func TestGenerateCanceledMidFillKeepsPrevious(t *testing.T) {
	scn := &fakeScene{}
	gen := NewGenerator(scn, 1)

	prev, err := gen.Generate(context.Background(), smallParams(), nil)
	require.NoError(t, err)

	p := smallParams()
	p.Count = 3 * cancelCheckInterval
	ctx := &cancelAfterCtx{Context: context.Background(), n: 2}
	got, err := gen.Generate(ctx, p, prev)
	require.ErrorIs(t, err, context.Canceled)
	assert.GreaterOrEqual(t, ctx.calls, 2, "cancellation observed inside the fill")

	assert.Same(t, prev, got)
	assert.False(t, prev.Disposed())
	require.Len(t, scn.attached, 1)
	assert.Same(t, prev, scn.attached[0])
	assert.Equal(t, 0, scn.detaches)
	assert.EqualValues(t, 1, gen.LiveBuffers())
}

func TestControllerKeepsGalaxyOnCancel(t *testing.T) {
	scn := &fakeScene{}
	ctl := NewController(NewStore(smallParams()), NewGenerator(scn, 3), nil)
	require.NoError(t, ctl.Regenerate(context.Background()))
	before := ctl.Current()

	require.NoError(t, ctl.Store().Set("count", "20000"))
	ctx := &cancelAfterCtx{Context: context.Background(), n: 3}
	require.ErrorIs(t, ctl.Regenerate(ctx), context.Canceled)

	assert.Same(t, before, ctl.Current())
	assert.Equal(t, smallParams().Count, ctl.PointCount())
	assert.Len(t, scn.attached, 1)
}

func TestRegenerateDoesNotLeak(t *testing.T) {
	scn := &fakeScene{}
	gen := NewGenerator(scn, 99)
	ctl := NewController(NewStore(smallParams()), gen, nil)
	ctx := context.Background()

	rnd := rand.New(rand.NewSource(5))
	for i := 0; i < 1000; i++ {
		store := ctl.Store()
		require.NoError(t, store.Set("count", fmt.Sprint(100*(1+rnd.Intn(5)))))
		require.NoError(t, store.Set("branches", fmt.Sprint(2+rnd.Intn(10))))
		require.NoError(t, store.Set("spin", fmt.Sprintf("%.2f", rnd.Float64()*10-5)))
		require.NoError(t, ctl.Regenerate(ctx))

		require.Len(t, scn.attached, 1)
		require.EqualValues(t, 1, gen.LiveBuffers())
	}
	assert.Equal(t, 1000, scn.attaches)
	assert.Equal(t, 999, scn.detaches)

	ctl.Close()
	assert.Empty(t, scn.attached)
	assert.EqualValues(t, 0, gen.LiveBuffers())
	assert.Equal(t, 0, ctl.PointCount())
}

func TestControllerKeepsGalaxyOnInvalidStore(t *testing.T) {
	scn := &fakeScene{}
	store := NewStore(smallParams())
	ctl := NewController(store, NewGenerator(scn, 1), nil)
	ctx := context.Background()

	require.NoError(t, ctl.Regenerate(ctx))
	before := ctl.Current()
	assert.Equal(t, 2000, ctl.PointCount())

	// Bypass Store validation to model a bad snapshot reaching the generator.
	store.params.Radius = 0
	err := ctl.Regenerate(ctx)
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Same(t, before, ctl.Current())
	assert.Len(t, scn.attached, 1)
	assert.Equal(t, 2000, ctl.PointCount())
}

func TestReseedIsReproducible(t *testing.T) {
	scn := &fakeScene{}
	ctl := NewController(NewStore(smallParams()), NewGenerator(scn, 0), nil)
	ctx := context.Background()

	ctl.Reseed(1234)
	require.NoError(t, ctl.Regenerate(ctx))
	first := append([]float32(nil), ctl.Current().Positions()...)

	ctl.Reseed(1234)
	require.NoError(t, ctl.Regenerate(ctx))
	assert.Equal(t, first, ctl.Current().Positions())
}

func TestDisposeIdempotent(t *testing.T) {
	scn := &fakeScene{}
	gen := NewGenerator(scn, 1)
	r, err := gen.Generate(context.Background(), smallParams(), nil)
	require.NoError(t, err)
	r.Dispose()
	r.Dispose()
	assert.Equal(t, 1, scn.detaches)
	assert.EqualValues(t, 0, gen.LiveBuffers())

	var none *Renderable
	none.Dispose()
	assert.Nil(t, none.Positions())
}
