package hotkey

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"
)

type recordingDispatcher struct {
	mu     sync.Mutex
	events []string
	seen   chan struct{}
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{seen: make(chan struct{}, 8)}
}

func (r *recordingDispatcher) add(ev string) bool {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	r.seen <- struct{}{}
	return true
}

func (r *recordingDispatcher) Start(b, s string) bool { return r.add("start:" + b + ":" + s) }
func (r *recordingDispatcher) Stop(b, s string) bool  { return r.add("stop:" + b + ":" + s) }

func (r *recordingDispatcher) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.seen:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for dispatch")
	}
}

func (r *recordingDispatcher) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestDrivePushToTalk(t *testing.T) {
	fk := NewFake()
	d := newRecordingDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { Drive(ctx, fk, "transcribe", d); close(done) }()

	fk.SimKeydown()
	d.wait(t)
	fk.SimKeyup()
	d.wait(t)

	cancel()
	<-done
	want := []string{"start:transcribe:" + Shortcut, "stop:transcribe:" + Shortcut}
	if got := d.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestDriveStopsActiveRecordingOnCancel(t *testing.T) {
	fk := NewFake()
	d := newRecordingDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { Drive(ctx, fk, "b", d); close(done) }()

	fk.SimKeydown()
	d.wait(t)
	cancel()
	<-done
	if got := d.list(); len(got) != 2 || got[1] != "stop:b:"+Shortcut {
		t.Errorf("events = %v", got)
	}
}

func TestDriveHybridToggle(t *testing.T) {
	fk := NewFake()
	hy := NewHybrid(fk, 200*time.Millisecond)
	d := newRecordingDispatcher()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go DriveHybrid(ctx, hy, "b", d)

	fk.SimKeydown()
	d.wait(t)
	fk.SimKeyup()
	time.Sleep(10 * time.Millisecond)
	fk.SimKeydown()
	fk.SimKeyup()
	d.wait(t)

	want := []string{"start:b:" + Shortcut, "stop:b:" + Shortcut}
	if got := d.list(); !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}
