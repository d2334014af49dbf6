// SPDX-License-Identifier: EPL-2.0

package looper

import "errors"

var (
	ErrNotInitialized = errors.New("looper is not initialized")
	ErrDestroyed      = errors.New("looper is destroyed")
)
