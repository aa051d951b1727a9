package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adamavenir/chatmirror/internal/client"
	"github.com/adamavenir/chatmirror/internal/events"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS messages (
  guild_id INTEGER NOT NULL,
  channel_id INTEGER NOT NULL,
  message_id INTEGER NOT NULL,
  author_id INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  edited_at INTEGER,
  body TEXT NOT NULL,              -- JSON encoded wire message
  PRIMARY KEY (guild_id, channel_id, message_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(guild_id, channel_id, message_id DESC);
`

// Journal is an append-only event log with a message index beside it.
type Journal struct {
	path   string
	dbPath string
	db     *sql.DB
	now    func() time.Time
}

var _ client.Transport = (*HistorySource)(nil)

// IndexPath returns where the sqlite index for a journal lives.
func IndexPath(journalPath string) string {
	return strings.TrimSuffix(journalPath, filepath.Ext(journalPath)) + ".db"
}

// Open opens the journal at path and its index, rebuilding the index when
// the journal is newer.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dbPath := IndexPath(path)

	dbExists := true
	var dbMtime int64
	if info, err := os.Stat(dbPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		dbExists = false
	} else {
		dbMtime = info.ModTime().UnixMilli()
	}
	var journalMtime int64
	if info, err := os.Stat(path); err == nil {
		journalMtime = info.ModTime().UnixMilli()
	}
	shouldRebuild := journalMtime > 0 && (!dbExists || journalMtime > dbMtime)

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	for _, pragma := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000"} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init index schema: %w", err)
	}

	j := &Journal{path: path, dbPath: dbPath, db: conn, now: time.Now}
	if shouldRebuild {
		if _, err := j.Rebuild(); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return j, nil
}

// Path returns the journal file path.
func (j *Journal) Path() string {
	return j.path
}

// Close closes the index.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Append records ev in the journal and applies it to the index.
func (j *Journal) Append(ev events.Event) (events.Envelope, error) {
	env, err := NewEnvelope(ev, j.now())
	if err != nil {
		return events.Envelope{}, err
	}
	if err := AppendEnvelope(j.path, env); err != nil {
		return events.Envelope{}, err
	}
	if err := apply(j.db, ev); err != nil {
		return env, fmt.Errorf("index %s event: %w", env.Type, err)
	}
	return env, nil
}

// Rebuild clears the index and replays the whole journal into it.
func (j *Journal) Rebuild() (Batch, error) {
	batch, err := ReadAll(j.path)
	if err != nil {
		return batch, err
	}
	tx, err := j.db.Begin()
	if err != nil {
		return batch, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		return batch, err
	}
	for _, record := range batch.Records {
		if err := apply(tx, record.Event); err != nil {
			return batch, fmt.Errorf("index %s event %s: %w", record.Envelope.Type, record.Envelope.ID, err)
		}
	}
	return batch, tx.Commit()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

func apply(db execer, ev events.Event) error {
	switch ev := ev.(type) {
	case events.MessageSent:
		if ev.Message == nil {
			return nil
		}
		return upsertMessage(db, *ev.Message)
	case events.MessageEdited:
		return editMessage(db, ev)
	case events.MessageDeleted:
		_, err := db.Exec(
			"DELETE FROM messages WHERE guild_id = ? AND channel_id = ? AND message_id = ?",
			ev.GuildID, ev.ChannelID, ev.MessageID,
		)
		return err
	case events.ChannelDeleted:
		_, err := db.Exec("DELETE FROM messages WHERE guild_id = ? AND channel_id = ?", ev.GuildID, ev.ChannelID)
		return err
	case events.GuildDeleted:
		_, err := db.Exec("DELETE FROM messages WHERE guild_id = ?", ev.GuildID)
		return err
	}
	return nil
}

func upsertMessage(db execer, msg events.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	var editedAt any
	if msg.EditedAt != 0 {
		editedAt = msg.EditedAt
	}
	_, err = db.Exec(`
		INSERT INTO messages (guild_id, channel_id, message_id, author_id, created_at, edited_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (guild_id, channel_id, message_id) DO UPDATE SET
		  author_id = excluded.author_id,
		  created_at = excluded.created_at,
		  edited_at = excluded.edited_at,
		  body = excluded.body
	`, msg.GuildID, msg.ChannelID, msg.MessageID, msg.AuthorID, msg.CreatedAt, editedAt, string(body))
	return err
}

func editMessage(db execer, ev events.MessageEdited) error {
	var body string
	err := db.QueryRow(
		"SELECT body FROM messages WHERE guild_id = ? AND channel_id = ? AND message_id = ?",
		ev.GuildID, ev.ChannelID, ev.MessageID,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	var msg events.Message
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return err
	}
	msg.Content.Text = ev.Content
	if ev.EditedAt != 0 {
		msg.EditedAt = ev.EditedAt
	}
	return upsertMessage(db, msg)
}

// History returns up to limit messages older than before (all messages when
// before is zero), oldest first. reachedTop is true when nothing older
// remains. Server ids are assumed to grow with time.
func (j *Journal) History(ctx context.Context, guildID, channelID, before uint64, limit int) ([]events.Message, bool, error) {
	if limit <= 0 {
		limit = client.DefaultHistoryPageSize
	}
	query := "SELECT body FROM messages WHERE guild_id = ? AND channel_id = ?"
	args := []any{guildID, channelID}
	if before != 0 {
		query += " AND message_id < ?"
		args = append(args, before)
	}
	query += " ORDER BY message_id DESC LIMIT ?"
	args = append(args, limit+1)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	var newestFirst []events.Message
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, false, err
		}
		var msg events.Message
		if err := json.Unmarshal([]byte(body), &msg); err != nil {
			return nil, false, fmt.Errorf("decode indexed message: %w", err)
		}
		newestFirst = append(newestFirst, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	reachedTop := len(newestFirst) <= limit
	if !reachedTop {
		newestFirst = newestFirst[:limit]
	}
	page := make([]events.Message, len(newestFirst))
	for i, msg := range newestFirst {
		page[len(newestFirst)-1-i] = msg
	}
	return page, reachedTop, nil
}

// Count returns the number of indexed messages in a channel.
func (j *Journal) Count(ctx context.Context, guildID, channelID uint64) (int, error) {
	var n int
	err := j.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE guild_id = ? AND channel_id = ?", guildID, channelID,
	).Scan(&n)
	return n, err
}

// HistorySource serves history pages from a journal index. Other actions
// are not available offline.
type HistorySource struct {
	Journal *Journal
}

// ErrOffline is returned for actions a journal cannot perform.
var ErrOffline = errors.New("journal is read-only for this action")

func (h *HistorySource) GetMessageHistory(ctx context.Context, req client.HistoryRequest) (client.HistoryPage, error) {
	msgs, reachedTop, err := h.Journal.History(ctx, req.GuildID, req.ChannelID, req.BeforeMessage, req.Limit)
	if err != nil {
		return client.HistoryPage{}, err
	}
	return client.HistoryPage{Messages: msgs, ReachedTop: reachedTop}, nil
}

func (h *HistorySource) SendMessage(context.Context, client.SendMessageRequest) (uint64, error) {
	return 0, ErrOffline
}

func (h *HistorySource) UpdateMessageText(context.Context, client.UpdateMessageTextRequest) error {
	return ErrOffline
}

func (h *HistorySource) DeleteMessage(context.Context, client.DeleteMessageRequest) error {
	return ErrOffline
}

func (h *HistorySource) UpdateGuildInformation(context.Context, client.UpdateGuildInfoRequest) error {
	return ErrOffline
}
