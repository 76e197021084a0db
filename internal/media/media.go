// Package media provides the local capture side of a call: a provider that
// yields a handle owning one audio and one video track.
package media

import (
	"context"
	"errors"

	pion "github.com/pion/webrtc/v4"
)

type Kind string

const (
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

var (
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrPermissionDenied  = errors.New("capture permission denied")
)

type VideoConstraints struct {
	Width      int
	Height     int
	FacingMode string
}

type AudioConstraints struct {
	EchoCancellation bool
	NoiseSuppression bool
	SampleRate       int
}

// Constraints describes what to capture. A nil member is not requested.
type Constraints struct {
	Video *VideoConstraints
	Audio *AudioConstraints
}

// DefaultConstraints asks for 720p user-facing video and cleaned-up audio.
func DefaultConstraints() Constraints {
	return Constraints{
		Video: &VideoConstraints{Width: 1280, Height: 720, FacingMode: "user"},
		Audio: &AudioConstraints{EchoCancellation: true, NoiseSuppression: true, SampleRate: 44100},
	}
}

// Provider acquires local media. Acquire may block for as long as the
// capture device takes to become ready, and returns early when ctx ends.
type Provider interface {
	Acquire(ctx context.Context, c Constraints) (Handle, error)
}

// Handle is an acquired local stream. All methods are safe for concurrent use.
type Handle interface {
	// Tracks returns the tracks to attach to a peer connection.
	Tracks() []pion.TrackLocal

	Enabled(kind Kind) bool

	// SetEnabled flips a track in place. It reports false when no live track
	// of that kind exists.
	SetEnabled(kind Kind, enabled bool) bool

	// Toggle inverts the enabled flag and returns the new value.
	Toggle(kind Kind) (enabled bool, ok bool)

	// ActiveTracks counts tracks that have not been stopped.
	ActiveTracks() int

	// Stop ends every track. Safe to call more than once.
	Stop()
}
