package compositor

import "github.com/Carmen-Shannon/oxy-overlay/engine/landmark"

// CompositorBuilderOption is a functional option for configuring a Compositor via NewCompositor.
type CompositorBuilderOption func(*compositor)

// WithMapper sets the landmark mapper used to place the model.
//
// Parameters:
//   - m: the mapper
//
// Returns:
//   - CompositorBuilderOption: a function that applies the mapper option to a compositor
func WithMapper(m landmark.Mapper) CompositorBuilderOption {
	return func(c *compositor) {
		c.mapper = m
	}
}
