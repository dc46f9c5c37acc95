package main

import (
	"fmt"
	"io"
	"sync"

	"handy/action"
	"handy/log"
)

// lockedWriter serializes writes from the presenter and the deliverer.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// logPresenter reports presentation changes to the diagnostics log and, if
// out is set, echoes them as plain lines.
type logPresenter struct {
	out io.Writer
}

func (p *logPresenter) printf(format string, args ...any) {
	if p.out != nil {
		fmt.Fprintf(p.out, format+"\n", args...)
	}
}

func (p *logPresenter) SetTrayState(s action.TrayState) {
	log.Debugf("tray: %s", s)
	p.printf("TRAY %s", s)
}

func (p *logPresenter) ShowOverlay(o action.Overlay) {
	log.Debugf("overlay: %s", o)
}

func (p *logPresenter) HideOverlay() {
	log.Debugf("overlay hidden")
}

func (p *logPresenter) EmitOverlayError(msg string) {
	log.Warnf("overlay error: %s", msg)
	p.printf("ERROR %s", msg)
}

// writerDeliverer prints the text instead of pasting it.
type writerDeliverer struct {
	out io.Writer
}

func (d *writerDeliverer) Paste(text string) error {
	_, err := fmt.Fprintf(d.out, "PASTE %s\n", text)
	return err
}

// notifyingDeliverer reports each delivered text after pasting it.
type notifyingDeliverer struct {
	inner   action.Deliverer
	onPaste func(text string, err error)
}

func (d notifyingDeliverer) Paste(text string) error {
	err := d.inner.Paste(text)
	d.onPaste(text, err)
	return err
}
