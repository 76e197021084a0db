package media

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	pion "github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"
)

const opusFrameDuration = 20 * time.Millisecond

// opusSilence is a single 20ms opus frame of silence.
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// SyntheticProvider produces pion tracks without touching capture hardware.
// The audio track carries opus silence while enabled; the video track is
// negotiated but left idle.
type SyntheticProvider struct {
	log zerolog.Logger
}

func NewSyntheticProvider(log zerolog.Logger) *SyntheticProvider {
	return &SyntheticProvider{log: log}
}

func (p *SyntheticProvider) Acquire(ctx context.Context, c Constraints) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Audio == nil && c.Video == nil {
		return nil, fmt.Errorf("%w: nothing requested", ErrDeviceUnavailable)
	}

	streamID := "warpcall-" + uuid.NewString()[:8]
	s := newStream()

	if c.Audio != nil {
		track, err := pion.NewTrackLocalStaticSample(
			pion.RTPCodecCapability{MimeType: pion.MimeTypeOpus, ClockRate: 48000, Channels: 2},
			"audio", streamID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		lt := s.add(KindAudio, track)
		s.wg.Add(1)
		go p.writeSilence(s, lt)
	}

	if c.Video != nil {
		track, err := pion.NewTrackLocalStaticSample(
			pion.RTPCodecCapability{MimeType: pion.MimeTypeVP8, ClockRate: 90000},
			"video", streamID)
		if err != nil {
			s.Stop()
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
		s.add(KindVideo, track)
	}

	p.log.Debug().
		Str("stream_id", streamID).
		Int("tracks", len(s.tracks)).
		Msg("acquired synthetic media")
	return s, nil
}

func (p *SyntheticProvider) writeSilence(s *Stream, lt *localTrack) {
	defer s.wg.Done()

	ticker := time.NewTicker(opusFrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if !lt.enabled.Load() {
				continue
			}
			// Unbound tracks discard samples, so errors only matter once negotiated.
			if err := lt.track.WriteSample(pionmedia.Sample{Data: opusSilence, Duration: opusFrameDuration}); err != nil {
				p.log.Debug().Err(err).Msg("write audio sample")
			}
		}
	}
}
