package galaxy

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/chewxy/math32"
)

// cancelCheckInterval is how many points are placed between context checks.
const cancelCheckInterval = 4096

// Source yields uniform random numbers in [0,1). *rand.Rand satisfies it.
type Source interface {
	Float32() float32
}

// NewSource returns a seeded source. Seed 0 uses a time-based seed, so every run differs.
func NewSource(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Generator builds galaxy renderables and attaches them to its scene. It keeps a count
// of datasets that have been allocated and not yet released.
type Generator struct {
	scene Scene
	src   Source
	live  atomic.Int64
}

// NewGenerator returns a generator attaching to scene, drawing randomness from a source
// seeded with seed (0 = time based).
func NewGenerator(scene Scene, seed int64) *Generator {
	return &Generator{scene: scene, src: NewSource(seed)}
}

// SetSource replaces the randomness source used by later generations.
func (g *Generator) SetSource(src Source) {
	g.src = src
}

// LiveBuffers returns the number of datasets allocated by g that are still held by a
// renderable.
func (g *Generator) LiveBuffers() int64 {
	return g.live.Load()
}

// Generate validates p, fills a new dataset, then disposes prev and returns the new
// renderable attached to the scene. prev must not be used by the caller after a
// successful call.
//
// On any error (invalid parameters, or ctx canceled before the fill completes) prev is
// returned untouched and still attached, and nothing new is allocated or attached.
func (g *Generator) Generate(ctx context.Context, p Parameters, prev *Renderable) (*Renderable, error) {
	if err := p.Validate(); err != nil {
		return prev, err
	}

	data := newDataset(p.Count)
	if err := fill(ctx, data, p, g.src); err != nil {
		return prev, err
	}

	prev.Dispose()

	g.live.Add(1)
	r := &Renderable{
		data:     data,
		Size:     p.Size,
		Blending: BlendAdditive,
		live:     &g.live,
	}
	r.attach(g.scene)
	return r, nil
}

// Fill computes a dataset for p without attaching it anywhere. It is the placement
// algorithm on its own, for callers that only want the buffers.
func Fill(ctx context.Context, p Parameters, src Source) (*Dataset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	data := newDataset(p.Count)
	if err := fill(ctx, data, p, src); err != nil {
		return nil, err
	}
	return data, nil
}

func newDataset(count int) *Dataset {
	return &Dataset{
		Positions: make([]float32, count*3),
		Colors:    make([]float32, count*3),
	}
}

func fill(ctx context.Context, data *Dataset, p Parameters, src Source) error {
	branches := float32(p.Branches)
	for i := 0; i < p.Count; i++ {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		i3 := i * 3

		radius := src.Float32() * p.Radius
		spinAngle := radius * p.Spin
		branchAngle := float32(i%p.Branches) / branches * 2 * math32.Pi

		jx := jitter(src, p)
		jy := jitter(src, p)
		jz := jitter(src, p)

		angle := branchAngle + spinAngle
		data.Positions[i3+0] = math32.Cos(angle)*radius + jx
		data.Positions[i3+1] = jy
		data.Positions[i3+2] = math32.Sin(angle)*radius + jz

		r, g, b := lerpLinear(p.InnerColor, p.OuterColor, radius/p.Radius)
		data.Colors[i3+0] = r
		data.Colors[i3+1] = g
		data.Colors[i3+2] = b
	}
	return nil
}

// jitter draws one axis offset: magnitude U^power with a fair random sign, scaled by
// randomness. Both draws happen even when randomness is 0 so the random stream, and so
// the radii, do not depend on it.
func jitter(src Source, p Parameters) float32 {
	v := math32.Pow(src.Float32(), p.RandomnessPower)
	if src.Float32() < 0.5 {
		v = -v
	}
	return v * p.Randomness
}
