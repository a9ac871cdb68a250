package galaxy

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
)

// Control describes how one parameter may be edited: its range and step. Color controls
// have no range.
type Control struct {
	Name  string
	Min   float64
	Max   float64
	Step  float64
	Color bool
}

var controls = []Control{
	{Name: "count", Min: 100, Max: 100000, Step: 100},
	{Name: "size", Min: 0.001, Max: 0.1, Step: 0.001},
	{Name: "radius", Min: 0.1, Max: 20, Step: 0.1},
	{Name: "branches", Min: 2, Max: 20, Step: 1},
	{Name: "spin", Min: -5, Max: 5, Step: 0.01},
	{Name: "randomness", Min: 0, Max: 2, Step: 0.01},
	{Name: "randomness_power", Min: 1, Max: 4, Step: 0.1},
	{Name: "inner_color", Color: true},
	{Name: "outer_color", Color: true},
}

// Controls returns the editable parameters in display order.
func Controls() []Control {
	out := make([]Control, len(controls))
	copy(out, controls)
	return out
}

// LookupControl finds a control by name. Dashes and case are ignored, so "randomnessPower"
// and "randomness-power" both resolve.
func LookupControl(name string) (Control, bool) {
	key := normalizeName(name)
	for _, c := range controls {
		if normalizeName(c.Name) == key {
			return c, true
		}
	}
	return Control{}, false
}

func normalizeName(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	return strings.ReplaceAll(s, "-", "")
}

// snap rounds v to the nearest step counted from Min.
func (c Control) snap(v float64) float64 {
	if c.Step <= 0 {
		return v
	}
	n := math.Round((v - c.Min) / c.Step)
	// Trim float noise so 0.30000000000000004 is stored as 0.3.
	out := c.Min + n*c.Step
	return math.Round(out/c.Step) * c.Step
}

// Store holds the live parameters. Editors write through Set or Replace; the generator
// reads snapshots.
type Store struct {
	mu     sync.RWMutex
	params Parameters
}

// NewStore returns a store holding p.
func NewStore(p Parameters) *Store {
	return &Store{params: p}
}

// Snapshot returns a copy of the current parameters. Parameters holds only values, so
// the copy shares nothing with the store.
func (s *Store) Snapshot() Parameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Replace swaps in a whole parameter set, e.g. after a config reload or preset load.
// Only domain validation applies; control ranges do not.
func (s *Store) Replace(p Parameters) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.params = p
	s.mu.Unlock()
	return nil
}

// Set parses value for the named parameter, checks it against the control range and
// stores it snapped to the control step. Out-of-range values are rejected, not clamped.
func (s *Store) Set(name, value string) error {
	c, ok := LookupControl(name)
	if !ok {
		return fmt.Errorf("unknown parameter %q", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Color {
		col, err := ParseColor(value)
		if err != nil {
			return invalidf(c.Name, value, "%v", err)
		}
		switch c.Name {
		case "inner_color":
			s.params.InnerColor = col
		case "outer_color":
			s.params.OuterColor = col
		}
		return nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return invalidf(c.Name, value, "not a number")
	}
	if v < c.Min || v > c.Max {
		return invalidf(c.Name, v, "out of range [%g, %g]", c.Min, c.Max)
	}
	v = c.snap(v)

	switch c.Name {
	case "count":
		s.params.Count = int(v)
	case "size":
		s.params.Size = float32(v)
	case "radius":
		s.params.Radius = float32(v)
	case "branches":
		s.params.Branches = int(v)
	case "spin":
		s.params.Spin = float32(v)
	case "randomness":
		s.params.Randomness = float32(v)
	case "randomness_power":
		s.params.RandomnessPower = float32(v)
	}
	return nil
}

// Get formats the current value of the named parameter.
func (s *Store) Get(name string) (string, error) {
	c, ok := LookupControl(name)
	if !ok {
		return "", fmt.Errorf("unknown parameter %q", name)
	}
	p := s.Snapshot()
	switch c.Name {
	case "count":
		return strconv.Itoa(p.Count), nil
	case "size":
		return fmtFloat(p.Size), nil
	case "radius":
		return fmtFloat(p.Radius), nil
	case "branches":
		return strconv.Itoa(p.Branches), nil
	case "spin":
		return fmtFloat(p.Spin), nil
	case "randomness":
		return fmtFloat(p.Randomness), nil
	case "randomness_power":
		return fmtFloat(p.RandomnessPower), nil
	case "inner_color":
		return p.InnerColor.Hex(), nil
	default:
		return p.OuterColor.Hex(), nil
	}
}

func fmtFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
