// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize bounds the size of documents handed to the CUE evaluator.
const DefaultMaxFileSize int64 = 5 * 1024 * 1024

type (
	// Option configures a parse call.
	Option func(*options)

	options struct {
		filename    string
		maxFileSize int64
		concrete    bool
	}
)

func defaultOptions() options {
	return options{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
}

// WithFilename sets the file name used in error messages.
func WithFilename(name string) Option {
	return func(o *options) { o.filename = name }
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(size int64) Option {
	return func(o *options) { o.maxFileSize = size }
}

// WithConcrete controls whether every field must resolve to a concrete value.
// Config files use WithConcrete(false) because all of their fields are optional.
func WithConcrete(concrete bool) Option {
	return func(o *options) { o.concrete = concrete }
}
