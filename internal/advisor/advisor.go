// Package advisor runs the routine conversation: it turns the current selection into a
// routine request, forwards the history to the worker and records the reply.
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"RoutineBuilder/internal/catalog"
	"RoutineBuilder/internal/chat"
	"RoutineBuilder/internal/errs"
	"RoutineBuilder/internal/selection"
	"RoutineBuilder/internal/session"
)

// ErrorReply replaces the worker's answer whenever a call fails.
const ErrorReply = "Sorry, something went wrong while contacting the routine advisor. Please try again."

// EmptySelectionReply is shown when a routine is requested with nothing selected.
const EmptySelectionReply = "Please select at least one product first."

// DefaultMaxTokens is the max_tokens hint sent with every request.
const DefaultMaxTokens = 1000

// Completer sends a conversation to the worker.
type Completer interface {
	Complete(ctx context.Context, messages []session.Message, maxTokens int) (string, error)
}

// SessionStore persists conversations.
type SessionStore interface {
	SaveSession(ctx context.Context, sess *session.Session) error
	LoadSession(ctx context.Context, id string) (*session.Session, error)
}

// Config holds Advisor settings.
type Config struct {
	MaxTokens int
	WorkerURL string
}

// Advisor owns the conversation and its status.
type Advisor struct {
	catalog   *catalog.Catalog
	selection *selection.Selection
	worker    Completer
	sessions  SessionStore
	logger    *slog.Logger
	maxTokens int
	workerURL string

	mu      sync.Mutex
	history *chat.History
	session *session.Session
	status  chat.Status
	seq     uint64

	saves   sync.WaitGroup
	writeMu sync.Mutex
	written map[string]uint64 // session id -> seq of the last stored snapshot
}

// snapshot is a copy of a session taken at one point of the conversation.
type snapshot struct {
	seq     uint64
	session session.Session
}

// New creates an Advisor. sessions may be nil to disable persistence.
func New(cfg Config, cat *catalog.Catalog, sel *selection.Selection, worker Completer, sessions SessionStore, logger *slog.Logger) *Advisor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	a := &Advisor{
		catalog:   cat,
		selection: sel,
		worker:    worker,
		sessions:  sessions,
		logger:    logger,
		maxTokens: cfg.MaxTokens,
		workerURL: cfg.WorkerURL,
		history:   chat.NewHistory(chat.SystemPrompt),
		status:    chat.StatusIdle,
		written:   make(map[string]uint64),
	}
	a.session = session.New(cfg.WorkerURL)
	logger.Info("created new session", "session_id", a.session.ID)
	return a
}

// GenerateRoutine asks the worker for a routine over the selected products.
// A worker failure is not returned: it is logged and ErrorReply becomes the answer.
func (a *Advisor) GenerateRoutine(ctx context.Context) (string, error) {
	items := a.selection.Items()
	if len(items) == 0 {
		return EmptySelectionReply, errs.ErrEmptySelection
	}

	prompt, err := chat.RoutinePrompt(items, a.catalog.Products())
	if err != nil {
		return "", err
	}

	a.logger.Info("generating routine", "products", len(items))
	return a.exchange(ctx, prompt), nil
}

// Ask sends a follow-up question. Blank questions are ignored and return "".
func (a *Advisor) Ask(ctx context.Context, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return ""
	}
	return a.exchange(ctx, question)
}

// exchange runs one idle → thinking → done|error cycle.
func (a *Advisor) exchange(ctx context.Context, content string) string {
	h := a.conversation()
	messages := h.AddUser(content)
	a.setStatus(chat.StatusThinking)

	reply, err := a.worker.Complete(ctx, messages, a.maxTokens)
	if err != nil {
		a.logger.Error("failed to get reply from worker", "error", err)
		h.AddAssistant(ErrorReply)
		a.setStatus(chat.StatusError)
		a.saveAsync()
		return ErrorReply
	}

	reply = chat.FormatRoutine(reply)
	h.AddAssistant(reply)
	a.setStatus(chat.StatusDone)
	a.saveAsync()
	return reply
}

// Status returns the current request status.
func (a *Advisor) Status() chat.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func (a *Advisor) setStatus(s chat.Status) {
	a.mu.Lock()
	a.status = s
	a.mu.Unlock()
	a.logger.Debug("chat status", "status", s.String())
}

// History returns the full conversation, system prompt included.
func (a *Advisor) History() []session.Message {
	return a.conversation().Messages()
}

// Visible returns the conversation as the user sees it.
func (a *Advisor) Visible() []session.Message {
	return a.conversation().Visible()
}

func (a *Advisor) conversation() *chat.History {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history
}

// SessionID returns the id of the conversation being recorded.
func (a *Advisor) SessionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.ID
}

// NewConversation saves the current conversation and starts an empty one.
func (a *Advisor) NewConversation(ctx context.Context) string {
	if err := a.Save(ctx); err != nil {
		a.logger.Error("failed to save current session", "error", err)
	}

	a.mu.Lock()
	a.history = chat.NewHistory(chat.SystemPrompt)
	a.session = session.New(a.workerURL)
	a.status = chat.StatusIdle
	id := a.session.ID
	a.mu.Unlock()

	a.logger.Info("created new session", "session_id", id)
	return id
}

// Resume replaces the conversation with a stored session.
func (a *Advisor) Resume(ctx context.Context, id string) error {
	if a.sessions == nil {
		return errs.NewNotFoundError("session", id)
	}
	sess, err := a.sessions.LoadSession(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to resume session: %w", err)
	}

	a.mu.Lock()
	a.session = sess
	a.history = chat.FromMessages(sess.Messages)
	a.status = chat.StatusIdle
	a.mu.Unlock()

	a.logger.Info("loaded existing session", "session_id", id, "messages", len(sess.Messages))
	return nil
}

// Save writes the conversation to the session store.
func (a *Advisor) Save(ctx context.Context) error {
	if a.sessions == nil {
		return nil
	}
	return a.write(ctx, a.snapshot())
}

// snapshot copies the current session and its messages.
func (a *Advisor) snapshot() snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	sess := *a.session
	sess.Messages = a.history.Messages()
	return snapshot{seq: a.seq, session: sess}
}

// write stores snap unless a later snapshot of the same session is already stored.
func (a *Advisor) write(ctx context.Context, snap snapshot) error {
	if len(chat.Visible(snap.session.Messages)) == 0 {
		return nil
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if snap.seq <= a.written[snap.session.ID] {
		a.logger.Debug("skipping stale session save", "session_id", snap.session.ID, "seq", snap.seq)
		return nil
	}
	if err := a.sessions.SaveSession(ctx, &snap.session); err != nil {
		return err
	}
	a.written[snap.session.ID] = snap.seq
	a.logger.Info("session saved", "session_id", snap.session.ID, "message_count", len(snap.session.Messages))
	return nil
}

// saveAsync snapshots the conversation now and stores it in the background.
func (a *Advisor) saveAsync() {
	if a.sessions == nil {
		return
	}
	snap := a.snapshot()
	a.saves.Add(1)
	go func() {
		defer a.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.write(ctx, snap); err != nil {
			a.logger.Error("failed to save session", "error", err)
		}
	}()
}

// Wait blocks until background saves have finished.
func (a *Advisor) Wait() {
	a.saves.Wait()
}
