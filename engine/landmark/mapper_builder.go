package landmark

// MapperBuilderOption is a functional option for configuring a Mapper via NewMapper.
type MapperBuilderOption func(*mapper)

// WithDesignatedIndex selects which landmark the model follows.
//
// Parameters:
//   - index: the landmark index, e.g. 1 for the nose tip
//
// Returns:
//   - MapperBuilderOption: a function that applies the index option to a mapper
func WithDesignatedIndex(index int) MapperBuilderOption {
	return func(m *mapper) {
		m.index = index
	}
}

// WithReferenceDepth sets the fixed view-space Z the model is placed at.
func WithReferenceDepth(z float32) MapperBuilderOption {
	return func(m *mapper) {
		m.referenceDepth = z
	}
}

// WithScale sets the uniform model scale.
func WithScale(s float32) MapperBuilderOption {
	return func(m *mapper) {
		m.scale = s
	}
}

// WithSmoothing enables an exponential moving average over the anchor's x and y.
// Alpha is the weight of the newest sample; 0 or 1 disables filtering.
//
// Parameters:
//   - alpha: the filter weight in (0,1)
//
// Returns:
//   - MapperBuilderOption: a function that applies the smoothing option to a mapper
func WithSmoothing(alpha float32) MapperBuilderOption {
	return func(m *mapper) {
		m.alpha = alpha
	}
}
