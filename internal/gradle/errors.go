package gradle

import "errors"

var (
	// ErrInvalidVersion is returned for versions that cannot be written
	// between quotes and read back by the declaration pattern.
	ErrInvalidVersion = errors.New("invalid plugin version")

	// ErrInvalidPluginID is returned for an empty or quoted plugin id.
	ErrInvalidPluginID = errors.New("invalid plugin id")

	// ErrDuplicateDeclaration marks a file declaring the plugin more than
	// once under the reject policy.
	ErrDuplicateDeclaration = errors.New("plugin declared more than once")

	// ErrUnknownDuplicatePolicy is returned by ParseDuplicatePolicy.
	ErrUnknownDuplicatePolicy = errors.New("unknown duplicate policy")
)
