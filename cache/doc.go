// SPDX-License-Identifier: EPL-2.0

// Package cache keeps downloaded audio files in a local directory.
//
// A file is cached under the last path element of its locator. Relative
// locators are fetched from a base URL, absolute URLs as they are. Builtin
// and absolute local locators are never cached and resolve to themselves.
//
// Dir satisfies the resolver the manager uses to turn files into playable
// paths, and the file cache the playback controller downloads mixes with.
package cache
