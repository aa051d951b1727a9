package journal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/adamavenir/chatmirror/internal/events"
)

var fixedTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func appendEvent(t *testing.T, path string, ev events.Event) {
	t.Helper()
	env, err := NewEnvelope(ev, fixedTime)
	if err != nil {
		t.Fatalf("envelope: %v", err)
	}
	if err := AppendEnvelope(path, env); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestFollowDeliversAppendedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	appendEvent(t, path, events.MemberJoined{GuildID: 1, MemberID: 2})

	var (
		mu   sync.Mutex
		seen []events.Event
	)
	got := make(chan struct{}, 16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type result struct {
		offset int64
		err    error
	}
	done := make(chan result, 1)
	go func() {
		offset, err := Follow(ctx, path, 0, func(b Batch) {
			mu.Lock()
			for _, record := range b.Records {
				seen = append(seen, record.Event)
			}
			mu.Unlock()
			got <- struct{}{}
		})
		done <- result{offset, err}
	}()

	waitFor := func(n int) {
		t.Helper()
		deadline := time.After(2 * time.Second)
		for {
			mu.Lock()
			count := len(seen)
			mu.Unlock()
			if count >= n {
				return
			}
			select {
			case <-got:
			case <-deadline:
				t.Fatalf("timed out waiting for %d events, have %d", n, count)
			}
		}
	}

	waitFor(1)
	appendEvent(t, path, events.MemberLeft{GuildID: 1, MemberID: 2})
	appendEvent(t, path, events.GuildDeleted{GuildID: 1})
	waitFor(3)
	cancel()

	res := <-done
	if res.err != context.Canceled {
		t.Fatalf("follow err: %v", res.err)
	}
	batch, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if res.offset != batch.Offset {
		t.Fatalf("offset %d want %d", res.offset, batch.Offset)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("seen %d events", len(seen))
	}
	if _, ok := seen[2].(events.GuildDeleted); !ok {
		t.Fatalf("last event: %T", seen[2])
	}
}

func TestFollowStartsFromOffset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	appendEvent(t, path, events.MemberJoined{GuildID: 1, MemberID: 2})
	start, err := ReadAll(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	appendEvent(t, path, events.MemberLeft{GuildID: 1, MemberID: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var records []Record
	offset, err := Follow(ctx, path, start.Offset, func(b Batch) {
		records = append(records, b.Records...)
	})
	if err != context.DeadlineExceeded {
		t.Fatalf("follow err: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("records: %d", len(records))
	}
	if _, ok := records[0].Event.(events.MemberLeft); !ok {
		t.Fatalf("record: %T", records[0].Event)
	}
	if offset <= start.Offset {
		t.Fatalf("offset did not advance: %d", offset)
	}
}
