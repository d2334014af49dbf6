// SPDX-License-Identifier: EPL-2.0

// Package store persists mixes in SQLite and reads hand-edited YAML mix
// libraries.
//
// A Store satisfies the mix lookup the playback controller uses to resume
// a mix after a session status change. A Library can be imported into a
// Store, and Watch reloads it whenever the file is saved.
package store
