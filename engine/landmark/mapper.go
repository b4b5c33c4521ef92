package landmark

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// DefaultDesignatedIndex is the nose tip in the 468-point face mesh topology.
	DefaultDesignatedIndex = 1

	// DefaultReferenceDepth is the fixed view-space depth the model is placed at.
	DefaultReferenceDepth float32 = -3

	// DefaultScale is the uniform scale applied to the model.
	DefaultScale float32 = 0.5
)

// mapper is the implementation of the Mapper interface.
type mapper struct {
	mu sync.Mutex

	index          int
	referenceDepth float32
	scale          float32

	alpha    float32
	smoothed mgl32.Vec2
	primed   bool

	// last is the set the filter was most recently advanced with.
	last *Set
}

// Mapper converts the designated landmark of a face into a model Anchor.
type Mapper interface {
	// AnchorFor maps one normalized landmark to view space.
	// x in [0,1] maps to [-1,1] left to right, y in [0,1] maps to [1,-1] top to bottom,
	// and the depth is fixed; the landmark's own Z is ignored.
	//
	// Parameters:
	//   - p: the normalized landmark
	//
	// Returns:
	//   - Anchor: the translation and scale for the model
	AnchorFor(p Point) Anchor

	// Anchor picks the designated landmark from the set and maps it.
	// When smoothing is enabled the translation is filtered across distinct sets; passing the
	// same set again returns the same anchor without advancing the filter. A nil set resets it.
	//
	// Parameters:
	//   - set: the landmark set of the first detected face, or nil
	//
	// Returns:
	//   - Anchor: the anchor when available
	//   - bool: false when set is nil or too short to contain the designated index
	Anchor(set *Set) (Anchor, bool)

	// DesignatedIndex returns the landmark index the model follows.
	DesignatedIndex() int

	// Reset clears the smoothing filter.
	Reset()
}

var _ Mapper = &mapper{}

// NewMapper creates a Mapper with the default nose-tip anchoring, overridden by options.
//
// Parameters:
//   - options: a variadic list of MapperBuilderOption functions
//
// Returns:
//   - Mapper: the configured mapper
func NewMapper(options ...MapperBuilderOption) Mapper {
	m := &mapper{
		index:          DefaultDesignatedIndex,
		referenceDepth: DefaultReferenceDepth,
		scale:          DefaultScale,
	}
	for _, option := range options {
		option(m)
	}
	return m
}

func (m *mapper) AnchorFor(p Point) Anchor {
	return Anchor{
		Translation: mgl32.Vec3{(p.X - 0.5) * 2, -(p.Y - 0.5) * 2, m.referenceDepth},
		Scale:       m.scale,
	}
}

func (m *mapper) Anchor(set *Set) (Anchor, bool) {
	p, ok := set.At(m.index)
	if !ok {
		m.Reset()
		return Anchor{}, false
	}

	a := m.AnchorFor(p)
	if m.alpha <= 0 || m.alpha >= 1 {
		return a, true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cur := mgl32.Vec2{a.Translation.X(), a.Translation.Y()}
	switch {
	case !m.primed:
		m.smoothed = cur
		m.primed = true
	case set != m.last:
		m.smoothed = m.smoothed.Add(cur.Sub(m.smoothed).Mul(m.alpha))
	}
	m.last = set
	a.Translation = mgl32.Vec3{m.smoothed.X(), m.smoothed.Y(), a.Translation.Z()}
	return a, true
}

func (m *mapper) DesignatedIndex() int {
	return m.index
}

func (m *mapper) Reset() {
	m.mu.Lock()
	m.primed = false
	m.last = nil
	m.mu.Unlock()
}
