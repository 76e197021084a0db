package media

import (
	"sync"
	"sync/atomic"

	pion "github.com/pion/webrtc/v4"
)

type localTrack struct {
	kind    Kind
	track   *pion.TrackLocalStaticSample
	enabled atomic.Bool
}

// Stream is a Handle over pion sample tracks. Sources write into the
// tracks until the stream is stopped.
type Stream struct {
	mu      sync.RWMutex
	tracks  []*localTrack
	stopped bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func newStream() *Stream {
	return &Stream{stop: make(chan struct{})}
}

func (s *Stream) add(kind Kind, track *pion.TrackLocalStaticSample) *localTrack {
	lt := &localTrack{kind: kind, track: track}
	lt.enabled.Store(true)
	s.tracks = append(s.tracks, lt)
	return lt
}

func (s *Stream) find(kind Kind) *localTrack {
	for _, t := range s.tracks {
		if t.kind == kind {
			return t
		}
	}
	return nil
}

func (s *Stream) Tracks() []pion.TrackLocal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return nil
	}
	out := make([]pion.TrackLocal, 0, len(s.tracks))
	for _, t := range s.tracks {
		out = append(out, t.track)
	}
	return out
}

func (s *Stream) Enabled(kind Kind) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.find(kind)
	return t != nil && !s.stopped && t.enabled.Load()
}

func (s *Stream) SetEnabled(kind Kind, enabled bool) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t := s.find(kind)
	if t == nil || s.stopped {
		return false
	}
	t.enabled.Store(enabled)
	return true
}

func (s *Stream) Toggle(kind Kind) (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.find(kind)
	if t == nil || s.stopped {
		return false, false
	}
	enabled := !t.enabled.Load()
	t.enabled.Store(enabled)
	return enabled, true
}

func (s *Stream) ActiveTracks() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.stopped {
		return 0
	}
	return len(s.tracks)
}

func (s *Stream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
}
