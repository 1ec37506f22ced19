package api

import (
	"fmt"
	"testing"
	"time"

	"github.com/smazurov/restreamer/internal/events"
	"github.com/smazurov/restreamer/internal/logging"
)

func TestRecentLogs(t *testing.T) {
	buffer := logging.NewRingBuffer(10)
	for i := range 6 {
		module := "supervisor"
		if i%2 == 1 {
			module = "ffmpeg"
		}
		buffer.Write(logging.LogEntry{
			Timestamp: time.Unix(int64(i), 0),
			Level:     "info",
			Module:    module,
			Message:   fmt.Sprintf("line %d", i),
		})
	}

	tests := []struct {
		name   string
		module string
		limit  int
		want   []string
	}{
		{name: "all", want: []string{"line 0", "line 1", "line 2", "line 3", "line 4", "line 5"}},
		{name: "limit", limit: 2, want: []string{"line 4", "line 5"}},
		{name: "module", module: "ffmpeg", want: []string{"line 1", "line 3", "line 5"}},
		{name: "module and limit", module: "supervisor", limit: 1, want: []string{"line 4"}},
		{name: "unknown module", module: "api", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recentLogs(buffer, tt.module, tt.limit)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d entries, want %d", len(got), len(tt.want))
			}
			for i, e := range got {
				if e.Message != tt.want[i] {
					t.Errorf("entry %d = %q, want %q", i, e.Message, tt.want[i])
				}
			}
		})
	}
}

func TestRecentLogsWithoutBuffer(t *testing.T) {
	got := recentLogs(nil, "", 10)
	if got == nil || len(got) != 0 {
		t.Errorf("recentLogs(nil) = %v, want empty non-nil slice", got)
	}
}

func TestLogTailSkipsReplayedEntries(t *testing.T) {
	buffer := logging.NewRingBuffer(10)
	for seq := uint64(1); seq <= 3; seq++ {
		buffer.Write(logging.LogEntry{Seq: seq, Module: "api", Message: fmt.Sprintf("line %d", seq)})
	}

	var tail logTail
	replayed := tail.replay(buffer)
	if len(replayed) != 3 || replayed[0].Seq != 1 || replayed[2].Message != "line 3" {
		t.Fatalf("replayed = %+v", replayed)
	}

	// Entry 3 was logged after the subscription but before the replay, so it
	// also arrives live.
	live := []events.LogEntryEvent{
		events.NewLogEntryEvent(logging.LogEntry{Seq: 3, Message: "line 3"}),
		events.NewLogEntryEvent(logging.LogEntry{Seq: 4, Message: "line 4"}),
	}
	var sent []string
	for _, e := range live {
		if tail.fresh(e) {
			sent = append(sent, e.Message)
		}
	}
	if len(sent) != 1 || sent[0] != "line 4" {
		t.Errorf("sent live entries %v, want [line 4]", sent)
	}
}

func TestLogTailWithoutBuffer(t *testing.T) {
	var tail logTail
	if got := tail.replay(nil); len(got) != 0 {
		t.Errorf("replay(nil) = %v", got)
	}
	if !tail.fresh(events.LogEntryEvent{Seq: 1}) {
		t.Error("first live entry should be fresh")
	}
}
