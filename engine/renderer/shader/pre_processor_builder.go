package shader

// PreProcessorBuilderOption is a functional option for configuring a PreProcessor.
type PreProcessorBuilderOption func(*preProcessor)

// WithStruct registers a WGSL struct under key.
//
// Parameters:
//   - key: the name annotations use to refer to the struct
//   - s: the struct type name, source and size
//
// Returns:
//   - PreProcessorBuilderOption: a function that registers the struct
func WithStruct(key string, s Struct) PreProcessorBuilderOption {
	return func(p *preProcessor) {
		p.structs[key] = s
	}
}
