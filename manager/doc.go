// SPDX-License-Identifier: EPL-2.0

// Package manager keeps the loopers of the mix that is loaded for playback.
//
// A Manager holds one looper per file and one more for a silent keep-alive
// track that holds the playback session open. Fan-out operations start or
// stop every file at once. The mix id only changes through SetMetadata,
// usually right after ClearFiles.
package manager
