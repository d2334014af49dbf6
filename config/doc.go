// SPDX-License-Identifier: EPL-2.0

// Package config loads loopmix settings from a YAML file and LOOPMIX_*
// environment variables.
//
// Every field has a default, so an empty file or no file at all is a valid
// configuration. Durations are written the way time.ParseDuration reads
// them:
//
//	looper:
//	  fade_duration: 2s
//	  atomic_fades: false
//	cache:
//	  base_url: https://cdn.example.com/sounds/
//	log:
//	  level: info
package config
