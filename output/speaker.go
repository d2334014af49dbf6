// SPDX-License-Identifier: EPL-2.0

// Package output plays a beep.Streamer on the default audio device.
package output

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("loopmix/output")

var (
	ErrSpeakerOpen   = errors.New("speaker already open")
	ErrSpeakerClosed = errors.New("speaker is closed")
)

// the device is process wide
var (
	openMu sync.Mutex
	isOpen bool
)

// Speaker owns the audio device until Close.
type Speaker struct {
	rate   beep.SampleRate
	frames int

	mu     sync.Mutex
	closed bool
}

// BufferFrames converts a latency into a frame count at rate, never less
// than one frame.
func BufferFrames(rate int, latency time.Duration) int {
	return max(beep.SampleRate(rate).N(latency), 1)
}

// Open initializes the device at rate with latency worth of buffering.
// Only one Speaker can be open at a time.
func Open(rate int, latency time.Duration) (*Speaker, error) {
	openMu.Lock()
	defer openMu.Unlock()

	if isOpen {
		return nil, ErrSpeakerOpen
	}

	sr := beep.SampleRate(rate)
	frames := BufferFrames(rate, latency)
	if err := speaker.Init(sr, frames); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	isOpen = true

	log.Infow("speaker open", "rate", rate, "buffer", frames)

	return &Speaker{rate: sr, frames: frames}, nil
}

func (s *Speaker) SampleRate() int { return int(s.rate) }

// Play starts s on the device alongside anything already playing. A
// streamer at another rate is resampled.
func (s *Speaker) Play(st beep.Streamer, format beep.Format) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSpeakerClosed
	}

	if format.SampleRate != s.rate {
		st = beep.Resample(4, format.SampleRate, s.rate, st)
	}
	speaker.Play(st)

	return nil
}

// Suspend stops the device without dropping the streamers.
func (s *Speaker) Suspend() error {
	if err := speaker.Suspend(); err != nil {
		return fmt.Errorf("suspend speaker: %w", err)
	}

	return nil
}

func (s *Speaker) Resume() error {
	if err := speaker.Resume(); err != nil {
		return fmt.Errorf("resume speaker: %w", err)
	}

	return nil
}

// Close drops every streamer and releases the device.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	speaker.Clear()
	speaker.Close()

	openMu.Lock()
	isOpen = false
	openMu.Unlock()

	log.Infow("speaker closed")

	return nil
}
