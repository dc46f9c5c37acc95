//go:build linux

package hotkey

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	devInput   = "/dev/input"
	sysInput   = "/sys/class/input"
	groupHint  = "sudo usermod -aG input $USER, then log in again"
	readEvents = 16
)

// evdevHotkey reads the keyboards under /dev/input directly, so it works
// under Wayland and without a focused window.
type evdevHotkey struct {
	keydown chan struct{}
	keyup   chan struct{}

	files []*os.File
	wg    sync.WaitGroup
	once  sync.Once
}

func New() Hotkey {
	return &evdevHotkey{
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *evdevHotkey) Register() error {
	keyboards, err := findKeyboards()
	if err != nil {
		return fmt.Errorf("finding keyboards: %w", err)
	}
	if len(keyboards) == 0 {
		return errors.New("no keyboard devices found (is the user in the input group?)")
	}

	for _, path := range keyboards {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		h.files = append(h.files, f)
		h.wg.Add(1)
		go h.watch(f)
	}
	if len(h.files) == 0 {
		return fmt.Errorf("could not open any of %d keyboard device(s) (run: %s)", len(keyboards), groupHint)
	}
	return nil
}

// watch reads one keyboard until its file is closed.
func (h *evdevHotkey) watch(f *os.File) {
	defer h.wg.Done()
	var c chord
	buf := make([]byte, inputEventSize*readEvents)
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for _, ev := range decodeEvents(buf[:n]) {
			switch c.feed(ev) {
			case edgeDown:
				notify(h.keydown)
			case edgeUp:
				notify(h.keyup)
			}
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *evdevHotkey) Unregister() {
	h.once.Do(func() {
		for _, f := range h.files {
			f.Close()
		}
		h.wg.Wait()
	})
}

func (h *evdevHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *evdevHotkey) Keyup() <-chan struct{}   { return h.keyup }

func findKeyboards() ([]string, error) {
	entries, err := os.ReadDir(devInput)
	if err != nil {
		return nil, err
	}
	var keyboards []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") && hasKeys(e.Name()) {
			keyboards = append(keyboards, filepath.Join(devInput, e.Name()))
		}
	}
	return keyboards, nil
}

// hasKeys reports whether the device advertises a full key bitmap. Mice and
// power buttons list only a handful of key bits.
func hasKeys(event string) bool {
	data, err := os.ReadFile(filepath.Join(sysInput, event, "device", "capabilities", "key"))
	if err != nil {
		return false
	}
	return len(strings.TrimSpace(string(data))) > 10
}

// Diagnose checks that at least one keyboard can be opened.
func Diagnose() (string, error) {
	keyboards, err := findKeyboards()
	if err != nil {
		return "", fmt.Errorf("cannot scan input devices: %w", err)
	}
	if len(keyboards) == 0 {
		return "", errors.New("no keyboard devices found (is the user in the input group?)")
	}
	for _, path := range keyboards {
		if f, err := os.Open(path); err == nil {
			f.Close()
			return fmt.Sprintf("%d keyboard(s) found, opened %s, listening for %s", len(keyboards), path, Shortcut), nil
		}
	}
	return "", fmt.Errorf("found %d keyboard(s) but cannot open any (run: %s)", len(keyboards), groupHint)
}
