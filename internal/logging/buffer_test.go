package logging

import (
	"fmt"
	"testing"
)

func fill(rb *RingBuffer, n int) {
	for i := range n {
		rb.Write(LogEntry{Message: fmt.Sprintf("m%d", i)})
	}
}

func messages(entries []LogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Message
	}
	return out
}

func TestRingBuffer(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		writes int
		last   int
		want   []string
	}{
		{"empty", 3, 0, 0, nil},
		{"partial", 3, 2, 0, []string{"m0", "m1"}},
		{"wrapped", 3, 5, 0, []string{"m2", "m3", "m4"}},
		{"last two of wrapped", 3, 5, 2, []string{"m3", "m4"}},
		{"last more than count", 5, 2, 10, []string{"m0", "m1"}},
		{"zero size", 0, 2, 0, []string{"m1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := NewRingBuffer(tt.size)
			fill(rb, tt.writes)

			got := messages(rb.ReadLast(tt.last))
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.want) {
				t.Errorf("ReadLast(%d) = %v, want %v", tt.last, got, tt.want)
			}
		})
	}
}

func TestRingBufferCount(t *testing.T) {
	rb := NewRingBuffer(2)
	fill(rb, 5)
	if rb.Count() != 2 {
		t.Errorf("Count() = %d, want 2", rb.Count())
	}
	if len(rb.ReadAll()) != 2 {
		t.Errorf("ReadAll() returned %d entries", len(rb.ReadAll()))
	}
}
