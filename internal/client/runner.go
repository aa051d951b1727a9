package client

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/adamavenir/chatmirror/internal/events"
	"github.com/adamavenir/chatmirror/internal/media"
	"github.com/adamavenir/chatmirror/internal/types"
)

// EventMsg delivers one inbound event to the update loop.
type EventMsg struct {
	Event events.Event
}

// AssetMsg delivers fetched asset bytes to the thumbnail cache.
type AssetMsg struct {
	Ref  types.AssetRef
	Data []byte
	Err  error
}

// SubmitMsg asks the runner to send a new message.
type SubmitMsg struct {
	GuildID   uint64
	ChannelID uint64
	Content   types.Content
	Overrides *types.Overrides
}

// EditMsg asks the runner to edit a confirmed message.
type EditMsg struct {
	GuildID   uint64
	ChannelID uint64
	MessageID uint64
	Text      string
}

// DeleteMsg asks the runner to delete a confirmed message.
type DeleteMsg struct {
	GuildID   uint64
	ChannelID uint64
	MessageID uint64
}

// LoadHistoryMsg asks the runner to fetch the next older page of a channel.
type LoadHistoryMsg struct {
	GuildID   uint64
	ChannelID uint64
}

// UpdateGuildMsg asks the runner to change a guild's information.
type UpdateGuildMsg struct {
	Request UpdateGuildInfoRequest
}

type streamEventMsg struct {
	event events.Event
}

type eventsClosedMsg struct{}

// RequestHandler turns a follow-up request into a command, or nil to drop it.
type RequestHandler func(req PostProcess) tea.Cmd

// RunnerOptions configure a Runner.
type RunnerOptions struct {
	Context context.Context
	Cache   *media.ThumbnailCache
	Handle  RequestHandler
	// Events, when set, is drained into the update loop.
	Events <-chan events.Event
	// QuitWhenIdle stops the program once the event source is closed and no
	// dispatched action is waiting for its completion.
	QuitWhenIdle bool
}

// Runner owns a Client inside a bubbletea program. Every state change
// happens in Update, so the client is only ever touched by one goroutine.
type Runner struct {
	client       *Client
	cache        *media.ThumbnailCache
	ctx          context.Context
	handle       RequestHandler
	events       <-chan events.Event
	quitWhenIdle bool
	eventsDone   bool

	inFlight  int
	requests  []PostProcess
	errs      []error
	submitted []uint64
	sent      map[uint64]uint64
}

// NewRunner wraps client in a tea.Model.
func NewRunner(client *Client, opts RunnerOptions) *Runner {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Cache == nil {
		opts.Cache = media.NewThumbnailCache(0)
	}
	return &Runner{
		client:       client,
		cache:        opts.Cache,
		ctx:          opts.Context,
		handle:       opts.Handle,
		events:       opts.Events,
		quitWhenIdle: opts.QuitWhenIdle,
		eventsDone:   opts.Events == nil,
		sent:         make(map[uint64]uint64),
	}
}

func (r *Runner) Init() tea.Cmd {
	return r.listen()
}

func (r *Runner) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case EventMsg:
		return r, r.dispatch(r.client.ProcessEvent(msg.Event))
	case streamEventMsg:
		cmd := r.dispatch(r.client.ProcessEvent(msg.event))
		return r, tea.Batch(cmd, r.listen())
	case eventsClosedMsg:
		r.eventsDone = true
		return r, r.quitIfIdle()
	case HistoryMsg:
		return r.handleHistoryMsg(msg)
	case AssetMsg:
		return r.handleAssetMsg(msg)
	case SubmitMsg:
		transactionID, cmd := r.client.SubmitMessage(r.ctx, msg.GuildID, msg.ChannelID, msg.Content, msg.Overrides)
		if transactionID != 0 {
			r.submitted = append(r.submitted, transactionID)
		}
		return r, r.track(cmd)
	case SendMessageMsg:
		r.inFlight--
		return r, r.track(r.client.SendMessageCmd(r.ctx, msg.GuildID, msg.ChannelID, msg.RetryAfter, msg.Message))
	case MessageSentMsg:
		r.inFlight--
		r.client.AckMessage(msg.GuildID, msg.ChannelID, msg.TransactionID, msg.MessageID)
		r.sent[msg.TransactionID] = msg.MessageID
		return r, r.quitIfIdle()
	case SendCancelledMsg:
		r.inFlight--
		return r, r.quitIfIdle()
	case EditMsg:
		return r, r.track(r.client.EditMessageCmd(r.ctx, msg.GuildID, msg.ChannelID, msg.MessageID, msg.Text))
	case MessageEditedMsg:
		r.inFlight--
		r.recordErr(msg.Err)
		return r, r.quitIfIdle()
	case DeleteMsg:
		return r, r.track(r.client.DeleteMessageCmd(r.ctx, msg.GuildID, msg.ChannelID, msg.MessageID))
	case MessageDeletedMsg:
		r.inFlight--
		if msg.Err == nil {
			r.client.ApplyMessageDeleted(msg.GuildID, msg.ChannelID, msg.MessageID)
		}
		r.recordErr(msg.Err)
		return r, r.quitIfIdle()
	case LoadHistoryMsg:
		return r, r.track(r.client.FetchHistoryCmd(r.ctx, msg.GuildID, msg.ChannelID))
	case UpdateGuildMsg:
		return r, r.track(r.client.UpdateGuildInfoCmd(r.ctx, msg.Request))
	case GuildInfoUpdatedMsg:
		r.inFlight--
		r.recordErr(msg.Err)
		return r, r.quitIfIdle()
	}
	return r, nil
}

// View is empty; the runner is driven headless.
func (r *Runner) View() string {
	return ""
}

func (r *Runner) handleHistoryMsg(msg HistoryMsg) (tea.Model, tea.Cmd) {
	r.inFlight--
	if msg.Err != nil {
		r.client.historyFailed(msg.GuildID, msg.ChannelID)
		r.recordErr(msg.Err)
		return r, r.quitIfIdle()
	}
	cmd := r.dispatch(r.client.ProcessHistory(msg.GuildID, msg.ChannelID, msg.Messages, msg.ReachedTop))
	return r, tea.Batch(cmd, r.quitIfIdle())
}

func (r *Runner) handleAssetMsg(msg AssetMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		r.client.logger.Warn().Err(msg.Err).Str("ref", msg.Ref.String()).Msg("asset fetch failed")
		return r, nil
	}
	if !r.cache.Put(msg.Ref, media.NewBlob(msg.Data)) {
		r.client.logger.Debug().Str("ref", msg.Ref.String()).Int("bytes", len(msg.Data)).Msg("asset not cached")
	}
	return r, nil
}

func (r *Runner) dispatch(reqs []PostProcess) tea.Cmd {
	if len(reqs) == 0 {
		return nil
	}
	if r.handle == nil {
		r.requests = append(r.requests, reqs...)
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		cmds = append(cmds, r.handle(req))
	}
	return tea.Batch(cmds...)
}

// track counts a dispatched action until its completion message arrives.
func (r *Runner) track(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return r.quitIfIdle()
	}
	r.inFlight++
	return cmd
}

func (r *Runner) quitIfIdle() tea.Cmd {
	if r.quitWhenIdle && r.eventsDone && r.inFlight <= 0 {
		return tea.Quit
	}
	return nil
}

func (r *Runner) listen() tea.Cmd {
	if r.events == nil || r.eventsDone {
		return nil
	}
	ch := r.events
	return func() tea.Msg {
		select {
		case ev, ok := <-ch:
			if !ok {
				return eventsClosedMsg{}
			}
			return streamEventMsg{event: ev}
		case <-r.ctx.Done():
			return eventsClosedMsg{}
		}
	}
}

func (r *Runner) recordErr(err error) {
	if err == nil {
		return
	}
	r.client.logger.Error().Err(err).Msg("action failed")
	r.errs = append(r.errs, err)
}

// Client returns the owned client. Read it only from Update or after the
// program has exited.
func (r *Runner) Client() *Client {
	return r.client
}

// Cache returns the thumbnail cache fed by AssetMsg.
func (r *Runner) Cache() *media.ThumbnailCache {
	return r.cache
}

// Requests returns follow-up requests collected when no handler is set.
func (r *Runner) Requests() []PostProcess {
	return r.requests
}

// Errors returns the failed actions reported so far.
func (r *Runner) Errors() []error {
	return r.errs
}

// Submitted returns the transaction ids of messages submitted through the runner.
func (r *Runner) Submitted() []uint64 {
	return r.submitted
}

// SentMessageID returns the server id the homeserver assigned to a submitted
// transaction.
func (r *Runner) SentMessageID(transactionID uint64) (uint64, bool) {
	id, ok := r.sent[transactionID]
	return id, ok
}
