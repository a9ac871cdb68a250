package scene

import (
	"sync"

	"galaxy-generator/internal/config"
	"galaxy-generator/internal/galaxy"

	"github.com/chewxy/math32"
	rl "github.com/gen2brain/raylib-go/raylib"
)

const (
	gridExtent     = 10
	gridMinorStep  = 1
	gridMajorStep  = 5
	gridMinorAlpha = 40
	gridMajorAlpha = 90
	minOrbitRadius = 0.5
	zoomStep       = 0.1
)

// cloud is a renderable converted to raylib types once, at attach time, so Draw does no
// per-frame conversion.
type cloud struct {
	src       *galaxy.Renderable
	positions []rl.Vector3
	colors    []rl.Color
	size      float32
	additive  bool
}

// Scene holds an orbit camera and the attached point clouds. It implements galaxy.Scene;
// Attach and Detach may be called from any goroutine, Update and Draw from the render
// thread only.
type Scene struct {
	Camera      rl.Camera3D
	GridVisible bool
	AutoRotate  bool
	RotateSpeed float32 // radians per second

	orbitAngle  float32
	orbitRadius float32

	mu     sync.Mutex
	clouds []*cloud

	// dot is the 1x1 white sprite every point is drawn with. Loaded on the first Draw,
	// once the GL context exists.
	dot       rl.Texture2D
	dotLoaded bool
}

// New returns a scene with a perspective camera at cfg.Position looking at the origin.
// Grid is hidden by default.
func New(cfg config.CameraConfig) *Scene {
	s := &Scene{
		AutoRotate:  cfg.AutoRotate,
		RotateSpeed: cfg.RotateSpeed,
	}
	pos := cfg.Position
	s.Camera.Position = rl.NewVector3(pos[0], pos[1], pos[2])
	s.Camera.Target = rl.NewVector3(0, 0, 0)
	s.Camera.Up = rl.NewVector3(0, 1, 0)
	s.Camera.Fovy = cfg.Fovy
	if s.Camera.Fovy <= 0 {
		s.Camera.Fovy = 75
	}
	s.Camera.Projection = rl.CameraPerspective
	s.orbitAngle = math32.Atan2(pos[2], pos[0])
	s.orbitRadius = math32.Hypot(pos[0], pos[2])
	if s.orbitRadius < minOrbitRadius {
		s.orbitRadius = minOrbitRadius
	}
	return s
}

// SetGridVisible sets whether the reference grid is drawn.
func (s *Scene) SetGridVisible(visible bool) {
	s.GridVisible = visible
}

// SetAutoRotate turns the camera orbit on or off.
func (s *Scene) SetAutoRotate(on bool) {
	s.AutoRotate = on
}

// Attach implements galaxy.Scene.
func (s *Scene) Attach(r *galaxy.Renderable) {
	c := toCloud(r)
	s.mu.Lock()
	s.clouds = append(s.clouds, c)
	s.mu.Unlock()
}

// Detach implements galaxy.Scene. Unknown renderables are ignored.
func (s *Scene) Detach(r *galaxy.Renderable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.clouds {
		if c.src == r {
			s.clouds = append(s.clouds[:i], s.clouds[i+1:]...)
			return
		}
	}
}

// Attached returns the number of attached point clouds.
func (s *Scene) Attached() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clouds)
}

func toCloud(r *galaxy.Renderable) *cloud {
	pos := r.Positions()
	col := r.Colors()
	n := len(pos) / 3
	c := &cloud{
		src:       r,
		positions: make([]rl.Vector3, n),
		colors:    make([]rl.Color, n),
		size:      r.Size,
		additive:  r.Blending == galaxy.BlendAdditive,
	}
	for i := 0; i < n; i++ {
		i3 := i * 3
		c.positions[i] = rl.NewVector3(pos[i3], pos[i3+1], pos[i3+2])
		c.colors[i] = rl.NewColor(unit8(col[i3]), unit8(col[i3+1]), unit8(col[i3+2]), 255)
	}
	return c
}

func unit8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

// Update runs once per frame: mouse wheel zooms, and the camera orbits the origin when
// AutoRotate is on.
func (s *Scene) Update() {
	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		s.orbitRadius *= 1 - wheel*zoomStep
		if s.orbitRadius < minOrbitRadius {
			s.orbitRadius = minOrbitRadius
		}
	}
	if s.AutoRotate {
		s.orbitAngle += s.RotateSpeed * rl.GetFrameTime()
	}
	s.Camera.Position.X = math32.Cos(s.orbitAngle) * s.orbitRadius
	s.Camera.Position.Z = math32.Sin(s.orbitAngle) * s.orbitRadius
}

// Draw renders the scene. Call after ClearBackground and before 2D overlays.
// Points are drawn without depth writes so additive blending accumulates.
func (s *Scene) Draw() {
	if !s.dotLoaded {
		img := rl.GenImageColor(1, 1, rl.White)
		s.dot = rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		s.dotLoaded = true
	}
	rl.BeginMode3D(s.Camera)
	if s.GridVisible {
		drawGrid()
	}
	s.mu.Lock()
	for _, c := range s.clouds {
		s.drawCloud(c)
	}
	s.mu.Unlock()
	rl.EndMode3D()
}

// Unload releases GPU resources. Call on the render thread before the window closes.
func (s *Scene) Unload() {
	if s.dotLoaded {
		rl.UnloadTexture(s.dot)
		s.dotLoaded = false
	}
}

// drawCloud draws each point as a camera-facing sprite, four vertices per point.
func (s *Scene) drawCloud(c *cloud) {
	rl.DisableDepthMask()
	if c.additive {
		rl.BeginBlendMode(rl.BlendAdditive)
	}
	for i, p := range c.positions {
		rl.DrawBillboard(s.Camera, s.dot, p, c.size, c.colors[i])
	}
	if c.additive {
		rl.EndBlendMode()
	}
	rl.EnableDepthMask()
}

// drawGrid draws a reference grid on the XZ plane. Reuses start/end vectors to avoid
// per-frame allocations in the hot loop.
func drawGrid() {
	minor := rl.NewColor(128, 128, 128, gridMinorAlpha)
	major := rl.NewColor(160, 160, 160, gridMajorAlpha)

	var start, end rl.Vector3
	for x := -gridExtent; x <= gridExtent; x += gridMinorStep {
		c := major
		if x%gridMajorStep != 0 {
			c = minor
		}
		start.X, start.Y, start.Z = float32(x), 0, float32(-gridExtent)
		end.X, end.Y, end.Z = float32(x), 0, float32(gridExtent)
		rl.DrawLine3D(start, end, c)
	}
	for z := -gridExtent; z <= gridExtent; z += gridMinorStep {
		c := major
		if z%gridMajorStep != 0 {
			c = minor
		}
		start.X, start.Y, start.Z = float32(-gridExtent), 0, float32(z)
		end.X, end.Y, end.Z = float32(gridExtent), 0, float32(z)
		rl.DrawLine3D(start, end, c)
	}
}
