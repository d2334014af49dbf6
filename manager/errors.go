// SPDX-License-Identifier: EPL-2.0

package manager

import "errors"

var (
	// ErrLooperNotFound is returned for an operation on a file that was never added.
	ErrLooperNotFound = errors.New("no looper for file")
	ErrNoBackend      = errors.New("manager needs a looper backend")
)
