// Package recording sequences capture start and stop with the feedback
// sounds and the output mute.
package recording

import (
	"sync"
	"time"

	"handy/log"
	"handy/settings"
)

// DefaultSettle is how long an on-demand microphone gets to stabilise
// before the start sound plays.
const DefaultSettle = 100 * time.Millisecond

// Capture is the audio capture engine.
type Capture interface {
	// TryStartRecording returns false if the binding could not start, for
	// example because a recording is already in progress.
	TryStartRecording(binding string) bool
	// StopRecording returns the binding's samples, or false if nothing
	// was recorded for it.
	StopRecording(binding string) ([]float32, bool)
	ApplyMute()
	RemoveMute()
}

type Sound int

const (
	SoundStart Sound = iota
	SoundStop
)

func (s Sound) String() string {
	if s == SoundStart {
		return "start"
	}
	return "stop"
}

type Feedback interface {
	// PlayBlocking returns once the sound has finished playing.
	PlayBlocking(s Sound)
	// Play starts the sound and returns immediately.
	Play(s Sound)
}

type Sequencer struct {
	capture  Capture
	feedback Feedback
	settle   time.Duration

	mu   sync.Mutex
	cues []chan struct{}
}

func New(capture Capture, feedback Feedback, settle time.Duration) *Sequencer {
	return &Sequencer{capture: capture, feedback: feedback, settle: settle}
}

// Start begins capture for binding and schedules the start cue: the start
// sound followed by the mute. The returned channel is closed once the cue
// has finished, or immediately if no cue was scheduled.
func (q *Sequencer) Start(s settings.Settings, binding string) <-chan struct{} {
	done := make(chan struct{})
	log.RecordingStart(binding, string(s.MicMode))

	if s.MicMode == settings.MicAlwaysOn {
		// the stream is already open; cue and capture race
		q.addCue(done)
		go q.runCue(done, s.AudioFeedback, 0)
		started := q.capture.TryStartRecording(binding)
		log.Debugf("recording started: %v", started)
		return done
	}

	start := time.Now()
	if !q.capture.TryStartRecording(binding) {
		log.Debugf("failed to start recording for %q", binding)
		close(done)
		return done
	}
	log.Debugf("recording started in %s", time.Since(start))
	q.addCue(done)
	go q.runCue(done, s.AudioFeedback, q.settle)
	return done
}

// addCue registers c as pending. Cues that already finished are dropped.
func (q *Sequencer) addCue(c chan struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := q.cues[:0]
	for _, old := range q.cues {
		select {
		case <-old:
		default:
			pending = append(pending, old)
		}
	}
	q.cues = append(pending, c)
}

func (q *Sequencer) runCue(done chan struct{}, feedback bool, delay time.Duration) {
	defer close(done)
	if delay > 0 {
		time.Sleep(delay)
	}
	if feedback {
		q.feedback.PlayBlocking(SoundStart)
	}
	q.capture.ApplyMute()
}

// Stop unmutes and then plays the stop sound. Every start cue still in
// flight is waited for first, otherwise its mute would land after the unmute.
func (q *Sequencer) Stop(s settings.Settings) {
	q.mu.Lock()
	cues := q.cues
	q.cues = nil
	q.mu.Unlock()
	for _, c := range cues {
		<-c
	}

	q.capture.RemoveMute()
	if s.AudioFeedback {
		q.feedback.Play(SoundStop)
	}
}

// Collect finalizes the binding's capture. ok is false when there are no
// samples.
func (q *Sequencer) Collect(binding string) ([]float32, bool) {
	start := time.Now()
	samples, ok := q.capture.StopRecording(binding)
	if !ok || len(samples) == 0 {
		return nil, false
	}
	log.RecordingStop(binding, len(samples), time.Since(start))
	return samples, true
}
