package galaxy

import "sync/atomic"

// Scene is the rendering collaborator a renderable is attached to.
type Scene interface {
	Attach(r *Renderable)
	Detach(r *Renderable)
}

// Dataset is the flat point-cloud buffers. Point i lives at offset 3i in both slices.
type Dataset struct {
	Positions []float32 // x, y, z
	Colors    []float32 // r, g, b in [0,1]
}

// Len returns the number of points. A nil dataset has none.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Positions) / 3
}

// Point returns the position and color of point i.
func (d *Dataset) Point(i int) (pos, col [3]float32) {
	i3 := i * 3
	copy(pos[:], d.Positions[i3:i3+3])
	copy(col[:], d.Colors[i3:i3+3])
	return pos, col
}

// Blending selects how overlapping points combine when drawn.
type Blending int

const (
	BlendAdditive Blending = iota
	BlendAlpha
)

// Renderable owns one dataset and the material settings needed to draw it.
// It is attached to at most one scene; Dispose detaches it and releases the buffers.
type Renderable struct {
	data     *Dataset
	Size     float32
	Blending Blending

	scene    Scene
	live     *atomic.Int64
	disposed bool
}

// Dataset returns the owned buffers, or nil once disposed.
func (r *Renderable) Dataset() *Dataset {
	if r == nil {
		return nil
	}
	return r.data
}

// Positions returns the interleaved xyz buffer for the draw call.
func (r *Renderable) Positions() []float32 {
	if r == nil || r.data == nil {
		return nil
	}
	return r.data.Positions
}

// Colors returns the interleaved rgb buffer for the draw call.
func (r *Renderable) Colors() []float32 {
	if r == nil || r.data == nil {
		return nil
	}
	return r.data.Colors
}

// Attached reports whether the renderable is currently attached to a scene.
func (r *Renderable) Attached() bool {
	return r != nil && r.scene != nil
}

// Disposed reports whether Dispose has run.
func (r *Renderable) Disposed() bool {
	return r == nil || r.disposed
}

func (r *Renderable) attach(s Scene) {
	r.scene = s
	s.Attach(r)
}

// Dispose detaches the renderable from its scene and drops its buffers. Safe to call twice
// and on a nil renderable.
func (r *Renderable) Dispose() {
	if r == nil || r.disposed {
		return
	}
	if r.scene != nil {
		r.scene.Detach(r)
		r.scene = nil
	}
	r.data = nil
	r.disposed = true
	if r.live != nil {
		r.live.Add(-1)
	}
}
