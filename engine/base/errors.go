package base

import "errors"

var (
	// ErrDimensionUnsupported is returned when an output or input dimension
	// falls outside {1,2,3,4}.
	ErrDimensionUnsupported = errors.New("dimension unsupported")
	// ErrVariantNotFound is returned when no DimensionVariant matches a
	// VGen instance's input dimensions.
	ErrVariantNotFound = errors.New("no matching dimension variant")
	// ErrNotTopological is returned when a VGen output reference targets a
	// VGen at or after its own index.
	ErrNotTopological = errors.New("vgen reference is not topologically prior")
	// ErrUnknownTemplate is returned when a VGen instance names a template
	// not present in the registry passed to it.
	ErrUnknownTemplate = errors.New("unknown vgen template")
)
