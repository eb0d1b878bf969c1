package guest

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func decodeFrames(t *testing.T, raw string) []Call {
	t.Helper()

	var calls []Call
	for _, part := range strings.Split(raw, FramePrefix) {
		if part == "" {
			continue
		}
		body := strings.TrimSuffix(part, FrameSuffix)
		var c Call
		if err := json.Unmarshal([]byte(body), &c); err != nil {
			t.Fatalf("bad frame %q: %v", body, err)
		}
		calls = append(calls, c)
	}
	return calls
}

func TestClientWritesFramesInOrder(t *testing.T) {
	var buf bytes.Buffer
	c := NewClient(&buf)

	c.SendJSON(`{"points":5}`)
	c.SendExit()
	c.SendReplay()

	calls := decodeFrames(t, buf.String())
	if len(calls) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(calls))
	}

	wantFns := []string{FnSendJSON, FnSendExit, FnSendReplay}
	for i, fn := range wantFns {
		if calls[i].Fn != fn {
			t.Errorf("frame %d: fn = %q, want %q", i, calls[i].Fn, fn)
		}
	}
	if calls[0].Args["payload"] != `{"points":5}` {
		t.Errorf("payload = %v", calls[0].Args["payload"])
	}
}

func TestEncodeFrameEscapesNUL(t *testing.T) {
	frame, err := EncodeFrame(Call{Fn: FnSendJSON, Args: map[string]any{"payload": "a\x00b"}})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	body := strings.TrimPrefix(string(frame), FramePrefix)
	if strings.Count(body, "\x00") != 1 || !strings.HasSuffix(body, FrameSuffix) {
		t.Errorf("frame body must contain only the trailing NUL, got %q", body)
	}
}

func TestEncodeFrameEmptyArgs(t *testing.T) {
	frame, err := EncodeFrame(Call{Fn: FnSendExit})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if !strings.Contains(string(frame), `"args":{}`) {
		t.Errorf("expected empty args object, got %q", frame)
	}
}
