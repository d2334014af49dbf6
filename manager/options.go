// SPDX-License-Identifier: EPL-2.0

package manager

import "github.com/ik5/loopmix/looper"

const (
	// KeepAliveID is reserved for the silent track that holds the session open.
	KeepAliveID = "keep-alive"
	// DefaultKeepAliveSource names the engine's builtin silent clip.
	DefaultKeepAliveSource = "builtin:silence"
	DefaultTitle           = "Smooth Noise"
)

type Options struct {
	Backend  looper.Backend
	Resolver Resolver
	Session  SessionHook
	Looper   looper.Options

	KeepAliveSource string
	KeepAliveVolume float64
	Title           string
}

func (o Options) withDefaults() Options {
	if o.Resolver == nil {
		o.Resolver = LocalResolver{}
	}
	if o.Session == nil {
		o.Session = nopSession{}
	}
	if o.KeepAliveSource == "" {
		o.KeepAliveSource = DefaultKeepAliveSource
	}
	if o.Title == "" {
		o.Title = DefaultTitle
	}

	return o
}
