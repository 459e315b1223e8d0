package mutprox

import "errors"

var (
	// ErrUnsupportedConfig is returned when a policy cannot handle the
	// requested input family or train/test split.
	ErrUnsupportedConfig = errors.New("mutprox: unsupported configuration")

	// ErrInvalidConfig is returned when a Config field is out of range.
	ErrInvalidConfig = errors.New("mutprox: invalid configuration")

	// ErrNotSquare is returned for non-square input matrices.
	ErrNotSquare = errors.New("mutprox: matrix is not square")

	// ErrInvalidMask is returned when a test set index is out of range.
	ErrInvalidMask = errors.New("mutprox: invalid train/test mask")

	// ErrMmapUnsupported is returned on platforms without memory mapping.
	ErrMmapUnsupported = errors.New("mutprox: memory-mapped matrices are not supported on this platform")
)
