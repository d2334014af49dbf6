// SPDX-License-Identifier: EPL-2.0

package cache

import "errors"

var (
	// ErrNoLocator is returned for a file without a usable locator.
	ErrNoLocator = errors.New("file has no locator")
	// ErrFetch wraps a download that the server refused.
	ErrFetch = errors.New("fetch failed")
)
