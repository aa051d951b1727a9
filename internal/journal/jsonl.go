// Package journal records inbound events as JSON lines and keeps a sqlite
// index of the messages they carry, so history pages can be served locally.
package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/adamavenir/chatmirror/internal/events"
)

// Record is one decoded journal line.
type Record struct {
	Envelope events.Envelope
	Event    events.Event
}

// Batch is the result of reading a journal from an offset. Offset is the
// position just past the last complete line; a trailing partial line is left
// for the next read.
type Batch struct {
	Records []Record
	Skipped int
	Offset  int64
}

// NewEnvelope encodes ev and stamps it with a time-ordered id.
func NewEnvelope(ev events.Event, now time.Time) (events.Envelope, error) {
	env, err := events.Encode(ev)
	if err != nil {
		return events.Envelope{}, err
	}
	env.ID = uuid.Must(uuid.NewV7()).String()
	env.TS = now.UnixMilli()
	return env, nil
}

// AppendEnvelope appends one envelope as a JSON line.
func AppendEnvelope(path string, env events.Envelope) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return atomicAppend(path, data)
}

func atomicAppend(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		return err
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN)

	if _, err := f.Write(append(data, '\n')); err != nil {
		return err
	}

	return f.Sync()
}

// ReadAll reads every complete line of a journal. A missing file reads as empty.
func ReadAll(path string) (Batch, error) {
	return ReadFrom(path, 0)
}

// ReadFrom reads complete lines starting at offset. Lines that are not
// valid envelopes are counted in Skipped.
func ReadFrom(path string, offset int64) (Batch, error) {
	batch := Batch{Offset: offset}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return batch, nil
		}
		return batch, err
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return batch, err
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return batch, err
	}

	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return batch, nil
	}
	batch.Offset = offset + int64(end) + 1

	for _, line := range bytes.Split(data[:end], []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		env, ev, err := events.DecodeLine(line)
		if err != nil {
			batch.Skipped++
			continue
		}
		batch.Records = append(batch.Records, Record{Envelope: env, Event: ev})
	}
	return batch, nil
}
