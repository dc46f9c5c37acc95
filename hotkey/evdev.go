package hotkey

import "encoding/binary"

// Linux input event codes used by the shortcut.
const (
	evKey = 1

	keyLeftCtrl   = 29
	keyRightCtrl  = 97
	keyLeftShift  = 42
	keyRightShift = 54
	keySpace      = 57
)

// inputEventSize is sizeof(struct input_event) on 64-bit linux: a 16 byte
// timeval followed by type, code and value.
const inputEventSize = 24

type inputEvent struct {
	Type  uint16
	Code  uint16
	Value int32 // 0 release, 1 press, 2 autorepeat
}

func decodeEvents(buf []byte) []inputEvent {
	events := make([]inputEvent, 0, len(buf)/inputEventSize)
	for off := 0; off+inputEventSize <= len(buf); off += inputEventSize {
		rec := buf[off : off+inputEventSize]
		events = append(events, inputEvent{
			Type:  binary.LittleEndian.Uint16(rec[16:]),
			Code:  binary.LittleEndian.Uint16(rec[18:]),
			Value: int32(binary.LittleEndian.Uint32(rec[20:])),
		})
	}
	return events
}

type chordEdge int

const (
	edgeNone chordEdge = iota
	edgeDown
	edgeUp
)

// chord tracks ctrl+shift+space on one keyboard. The chord goes down when
// space is pressed with both modifiers held and up when space is released;
// releasing a modifier first does not end it.
type chord struct {
	ctrl, shift uint8 // bit per side
	active      bool
}

func (c *chord) feed(ev inputEvent) chordEdge {
	if ev.Type != evKey || ev.Value == 2 {
		return edgeNone
	}
	pressed := ev.Value == 1

	set := func(mask *uint8, bit uint8) {
		if pressed {
			*mask |= bit
		} else {
			*mask &^= bit
		}
	}

	switch ev.Code {
	case keyLeftCtrl:
		set(&c.ctrl, 1)
	case keyRightCtrl:
		set(&c.ctrl, 2)
	case keyLeftShift:
		set(&c.shift, 1)
	case keyRightShift:
		set(&c.shift, 2)
	case keySpace:
		switch {
		case pressed && !c.active && c.ctrl != 0 && c.shift != 0:
			c.active = true
			return edgeDown
		case !pressed && c.active:
			c.active = false
			return edgeUp
		}
	}
	return edgeNone
}
