package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var ErrSelectionCancelled = errors.New("device selection cancelled")

type pickerKey int

const (
	keyNone pickerKey = iota
	keyUp
	keyDown
	keyEnter
	keyCancel
)

func decodeKey(b []byte) pickerKey {
	switch {
	case len(b) == 1:
		switch b[0] {
		case '\r', '\n':
			return keyEnter
		case 3, 'q', 0x1b: // ctrl+c, q, bare esc
			return keyCancel
		case 'k':
			return keyUp
		case 'j':
			return keyDown
		}
	case len(b) == 3 && b[0] == 0x1b && b[1] == '[':
		switch b[2] {
		case 'A':
			return keyUp
		case 'B':
			return keyDown
		}
	}
	return keyNone
}

func renderDevices(w io.Writer, devices []DeviceInfo, cursor int) {
	fmt.Fprint(w, "\r\x1b[J")
	fmt.Fprint(w, "Select input device (↑/↓, Enter to confirm, q to cancel):\r\n\r\n")
	for i, d := range devices {
		tag := ""
		if IsBluetooth(d.Name) {
			tag = " \x1b[33m[bluetooth: lower audio quality]\x1b[0m"
		}
		if i == cursor {
			fmt.Fprintf(w, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
		} else {
			fmt.Fprintf(w, "    %s%s\r\n", d.Name, tag)
		}
	}
}

// pick runs the picker over raw key input until a device is chosen.
func pick(in io.Reader, out io.Writer, devices []DeviceInfo) (*DeviceInfo, error) {
	cursor := 0
	renderDevices(out, devices, cursor)

	buf := make([]byte, 3)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		switch decodeKey(buf[:n]) {
		case keyEnter:
			fmt.Fprint(out, "\r\n")
			return &devices[cursor], nil
		case keyCancel:
			fmt.Fprint(out, "\r\n")
			return nil, ErrSelectionCancelled
		case keyUp:
			cursor = max(cursor-1, 0)
		case keyDown:
			cursor = min(cursor+1, len(devices)-1)
		}
		fmt.Fprintf(out, "\x1b[%dA", len(devices)+2)
		renderDevices(out, devices, cursor)
	}
}

// SelectDevice asks on the terminal which capture device to use. With a
// single device it returns that one without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, errors.New("no capture devices found")
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	return pick(os.Stdin, os.Stdout, devices)
}
