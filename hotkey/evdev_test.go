package hotkey

import (
	"encoding/binary"
	"testing"
)

func encodeEvents(evs ...inputEvent) []byte {
	buf := make([]byte, len(evs)*inputEventSize)
	for i, ev := range evs {
		rec := buf[i*inputEventSize:]
		binary.LittleEndian.PutUint16(rec[16:], ev.Type)
		binary.LittleEndian.PutUint16(rec[18:], ev.Code)
		binary.LittleEndian.PutUint32(rec[20:], uint32(ev.Value))
	}
	return buf
}

func key(code uint16, value int32) inputEvent {
	return inputEvent{Type: evKey, Code: code, Value: value}
}

func TestDecodeEvents(t *testing.T) {
	in := []inputEvent{key(keySpace, 1), {Type: 0, Code: 0, Value: 0}, key(keyLeftCtrl, 0)}
	buf := append(encodeEvents(in...), 1, 2, 3) // trailing partial record

	got := decodeEvents(buf)
	if len(got) != len(in) {
		t.Fatalf("decoded %d events, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], in[i])
		}
	}
}

func TestChord(t *testing.T) {
	tests := []struct {
		name   string
		events []inputEvent
		want   []chordEdge
	}{
		{
			name:   "press and release",
			events: []inputEvent{key(keyLeftCtrl, 1), key(keyLeftShift, 1), key(keySpace, 1), key(keySpace, 0)},
			want:   []chordEdge{edgeDown, edgeUp},
		},
		{
			name:   "right side modifiers",
			events: []inputEvent{key(keyRightShift, 1), key(keyRightCtrl, 1), key(keySpace, 1), key(keySpace, 0)},
			want:   []chordEdge{edgeDown, edgeUp},
		},
		{
			name:   "space alone",
			events: []inputEvent{key(keySpace, 1), key(keySpace, 0)},
		},
		{
			name:   "ctrl only",
			events: []inputEvent{key(keyLeftCtrl, 1), key(keySpace, 1), key(keySpace, 0)},
		},
		{
			name:   "autorepeat ignored",
			events: []inputEvent{key(keyLeftCtrl, 1), key(keyLeftShift, 1), key(keySpace, 1), key(keySpace, 2), key(keySpace, 2), key(keySpace, 0)},
			want:   []chordEdge{edgeDown, edgeUp},
		},
		{
			name:   "modifier released first",
			events: []inputEvent{key(keyLeftCtrl, 1), key(keyLeftShift, 1), key(keySpace, 1), key(keyLeftCtrl, 0), key(keySpace, 0)},
			want:   []chordEdge{edgeDown, edgeUp},
		},
		{
			name: "one of two ctrls released",
			events: []inputEvent{
				key(keyLeftCtrl, 1), key(keyRightCtrl, 1), key(keyLeftShift, 1),
				key(keyLeftCtrl, 0), key(keySpace, 1), key(keySpace, 0),
			},
			want: []chordEdge{edgeDown, edgeUp},
		},
		{
			name: "modifiers released before space",
			events: []inputEvent{
				key(keyLeftCtrl, 1), key(keyLeftShift, 1),
				key(keyLeftCtrl, 0), key(keyLeftShift, 0), key(keySpace, 1), key(keySpace, 0),
			},
		},
		{
			name:   "non key events",
			events: []inputEvent{{Type: 4, Code: 4, Value: 1}, {Type: 0, Code: keySpace, Value: 1}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c chord
			var got []chordEdge
			for _, ev := range tt.events {
				if e := c.feed(ev); e != edgeNone {
					got = append(got, e)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("edges = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("edges = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
