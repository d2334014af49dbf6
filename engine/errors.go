// SPDX-License-Identifier: EPL-2.0

package engine

import "errors"

var (
	ErrNotLoaded         = errors.New("voice is not loaded")
	ErrAlreadyLoaded     = errors.New("voice is already loaded")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrUnknownBuiltin    = errors.New("unknown builtin clip")
	ErrMixerClosed       = errors.New("mixer is closed")
)
