// SPDX-License-Identifier: EPL-2.0

package manager

import "sync"

// Platform builds the manager for one kind of host.
type Platform struct {
	Name string
	New  func() *Manager
}

// Provider holds the single manager of a process. It is built on first use
// by the platform that selectPlatform picks.
type Provider struct {
	selectPlatform func() Platform

	once     sync.Once
	manager  *Manager
	platform string
}

func NewProvider(selectPlatform func() Platform) *Provider {
	return &Provider{selectPlatform: selectPlatform}
}

// Get returns the manager, building it on the first call.
func (p *Provider) Get() *Manager {
	p.once.Do(func() {
		pl := p.selectPlatform()
		p.platform = pl.Name
		p.manager = pl.New()
		log.Infow("audio manager created", "platform", pl.Name)
	})

	return p.manager
}

// Platform returns the name of the selected platform, or "" before Get.
func (p *Provider) Platform() string {
	p.Get()
	return p.platform
}
