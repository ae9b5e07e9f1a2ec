package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

const spinMessage = "Repairing a->b"

func clearSequence(msg string) string {
	return "\r" + strings.Repeat(" ", len(msg)+4) + "\r"
}

func TestSpinnerDrawsAndClears(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(spinMessage)
	s.out = &buf
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, spinMessage) {
		t.Errorf("output %q missing message", out)
	}
	if !strings.Contains(out, s.frames[0]) {
		t.Errorf("output %q missing first frame", out)
	}
	if !strings.HasSuffix(out, clearSequence(spinMessage)) {
		t.Errorf("output %q should end by clearing the line", out)
	}
}

func TestSpinnerContextCancel(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
		stop func(context.CancelFunc)
	}{
		{
			name: "cancel",
			ctx:  func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) },
			stop: func(cancel context.CancelFunc) { cancel() },
		},
		{
			name: "timeout",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), 50*time.Millisecond)
			},
			stop: func(context.CancelFunc) {},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()

			var buf bytes.Buffer
			s := newSpinnerWithContext(ctx, spinMessage)
			s.out = &buf
			s.Start()
			tt.stop(cancel)

			select {
			case <-s.stopped:
			case <-time.After(time.Second):
				t.Fatal("spinner did not stop after its context ended")
			}
			if !s.Cancelled() {
				t.Error("Cancelled() = false after context ended")
			}
			if !strings.HasSuffix(buf.String(), clearSequence(spinMessage)) {
				t.Errorf("output %q should end by clearing the line", buf.String())
			}
		})
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner(spinMessage)
	s.out = &buf
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
	if got := strings.Count(buf.String(), clearSequence(spinMessage)); got < 3 {
		t.Errorf("cleared %d times, want at least 3", got)
	}
}

func TestSpinnerStopWithResult(t *testing.T) {
	tests := []struct {
		name string
		stop func(*Spinner)
	}{
		{"success", func(s *Spinner) { s.StopWithSuccess("Repaired a->b") }},
		{"error", func(s *Spinner) { s.StopWithError("No viable strategy for a->b") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			s := newSpinner(spinMessage)
			s.out = &buf
			s.Start()
			time.Sleep(100 * time.Millisecond)
			tt.stop(s)
			if !strings.HasSuffix(buf.String(), clearSequence(spinMessage)) {
				t.Errorf("output %q should end by clearing the line", buf.String())
			}
		})
	}
}
