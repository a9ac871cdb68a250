package galaxy

import (
	"fmt"
	"strings"

	"github.com/chewxy/math32"
	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// Parameters is the generation configuration. The generator only reads snapshots of it.
// Size is the point render size and does not take part in placement.
type Parameters struct {
	Count           int     `yaml:"count"`
	Size            float32 `yaml:"size"`
	Radius          float32 `yaml:"radius"`
	Branches        int     `yaml:"branches"`
	Spin            float32 `yaml:"spin"`
	Randomness      float32 `yaml:"randomness"`
	RandomnessPower float32 `yaml:"randomness_power"`
	InnerColor      Color   `yaml:"inner_color"`
	OuterColor      Color   `yaml:"outer_color"`
}

// DefaultParameters returns the classic three-armed orange-to-blue galaxy.
func DefaultParameters() Parameters {
	return Parameters{
		Count:           50000,
		Size:            0.02,
		Radius:          5,
		Branches:        3,
		Spin:            1,
		Randomness:      0.2,
		RandomnessPower: 2,
		InnerColor:      MustParseColor("#ff6030"),
		OuterColor:      MustParseColor("#1b3984"),
	}
}

// Validate returns an *InvalidParameterError for the first field outside its domain.
func (p Parameters) Validate() error {
	if p.Count <= 0 {
		return invalidf("count", p.Count, "must be > 0")
	}
	if !finite(p.Size) || p.Size <= 0 {
		return invalidf("size", p.Size, "must be a finite value > 0")
	}
	if !finite(p.Radius) || p.Radius <= 0 {
		return invalidf("radius", p.Radius, "must be a finite value > 0")
	}
	if p.Branches < 1 {
		return invalidf("branches", p.Branches, "must be >= 1")
	}
	if !finite(p.Spin) {
		return invalidf("spin", p.Spin, "must be finite")
	}
	if !finite(p.Randomness) || p.Randomness < 0 {
		return invalidf("randomness", p.Randomness, "must be a finite value >= 0")
	}
	if !finite(p.RandomnessPower) || p.RandomnessPower <= 0 {
		return invalidf("randomness_power", p.RandomnessPower, "must be a finite value > 0")
	}
	return nil
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

// Color is an sRGB color with components in [0,1]. It is stored in YAML as "#rrggbb".
type Color colorful.Color

// ParseColor accepts "#rgb", "#rrggbb", "rrggbb" and "0xrrggbb".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("parse color %q: %w", s, err)
	}
	return Color(c), nil
}

// MustParseColor is ParseColor for constants; it panics on malformed input.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns the color as "#rrggbb", clamping out-of-gamut components.
func (c Color) Hex() string {
	return colorful.Color(c).Clamped().Hex()
}

func (c Color) String() string {
	return c.Hex()
}

// MarshalYAML implements yaml.Marshaler.
func (c Color) MarshalYAML() (any, error) {
	return c.Hex(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// lerpLinear blends a toward b in linear RGB so midpoints keep their brightness instead
// of going muddy, and clamps the result to [0,1].
func lerpLinear(a, b Color, t float32) (r, g, bl float32) {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	c := colorful.Color(a).BlendLinearRgb(colorful.Color(b), float64(t)).Clamped()
	return float32(c.R), float32(c.G), float32(c.B)
}
