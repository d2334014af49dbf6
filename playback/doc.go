// SPDX-License-Identifier: EPL-2.0

// Package playback sits between a user interface and the manager. The
// Controller turns "play this mix" or "toggle this file" into manager calls
// and keeps the shared State in step with them.
//
// Controller operations are serialized. Every operation that waits on a
// download checks afterwards that its mix is still the selected one before
// it touches the manager.
package playback
