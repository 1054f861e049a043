// Package chat orchestrates conversations: creating and selecting them,
// appending turns, deriving titles, dispatching message sends to the
// generation gateway, and persisting the full history on every change.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"mzassist/internal/gateway"
	"mzassist/internal/logging"
	"mzassist/internal/store"
	"mzassist/internal/types"
)

// ErrBusy is returned by Send while a previous send on the manager is
// still in flight.
var ErrBusy = errors.New("a message is already being processed")

// DefaultTitleLimit caps derived conversation titles, in runes.
const DefaultTitleLimit = 40

const defaultTitle = "محادثة جديدة"

// Responder produces a model reply for a turn history. Satisfied by
// *gateway.Client.
type Responder interface {
	Converse(ctx context.Context, turns []types.Turn, mode types.ChatMode) (*gateway.ChatResult, error)
}

// Manager owns the conversation list and the active selection. All
// methods are safe for concurrent use; only one Send may be in flight
// at a time.
type Manager struct {
	mu          sync.Mutex
	store       *store.Store
	responder   Responder
	titleLimit  int
	defaultMode types.ChatMode

	conversations []types.Conversation // newest first
	activeID      string
	sending       bool
}

// Open loads persisted history and returns a ready manager. When no
// conversation exists, a fresh one is seeded with the greeting turn.
// defaultMode is the configured fallback mode, used when neither the
// caller nor the stored settings pick one.
func Open(s *store.Store, r Responder, titleLimit int, defaultMode types.ChatMode) (*Manager, error) {
	if titleLimit <= 0 {
		titleLimit = DefaultTitleLimit
	}
	if !defaultMode.Valid() {
		defaultMode = types.ModeDefault
	}
	m := &Manager{store: s, responder: r, titleLimit: titleLimit, defaultMode: defaultMode}

	var history []types.Conversation
	found, err := s.ReadJSON(store.CollectionHistory, &history)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}
	if found && len(history) > 0 {
		sort.SliceStable(history, func(i, j int) bool {
			return history[i].Timestamp > history[j].Timestamp
		})
		m.conversations = history
		m.activeID = history[0].ID
		logging.Chat("Loaded %d conversations, active %s", len(history), m.activeID)
		return m, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.startNewLocked(); err != nil {
		return nil, err
	}
	return m, nil
}

// List returns all conversations, most recently touched first.
func (m *Manager) List() []types.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Conversation, len(m.conversations))
	copy(out, m.conversations)
	return out
}

// Active returns a copy of the currently selected conversation.
func (m *Manager) Active() types.Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conv := m.findLocked(m.activeID); conv != nil {
		return *conv
	}
	return types.Conversation{}
}

// StartNew creates a fresh conversation seeded with the greeting turn,
// selects it, and persists.
func (m *Manager) StartNew() (types.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startNewLocked()
}

func (m *Manager) startNewLocked() (types.Conversation, error) {
	conv := types.Conversation{
		ID:        uuid.NewString(),
		Title:     defaultTitle,
		Timestamp: time.Now().UnixMilli(),
		Messages:  []types.Turn{m.greetingTurn()},
	}
	m.conversations = append([]types.Conversation{conv}, m.conversations...)
	m.activeID = conv.ID
	if err := m.persistLocked(); err != nil {
		return types.Conversation{}, err
	}
	logging.Chat("Started conversation %s", conv.ID)
	return conv, nil
}

func (m *Manager) greetingTurn() types.Turn {
	greeting := "أهلاً بك! أنا MZ، مساعدك الذكي. كيف يمكنني مساعدتك اليوم؟ ✨"
	if p := m.store.LoadProfile(); p.UserName != "" {
		greeting = fmt.Sprintf("أهلاً بك يا %s! أنا MZ، مساعدك الذكي. كيف يمكنني مساعدتك اليوم؟ ✨", p.UserName)
	}
	return types.Turn{
		ID:    gateway.GreetingTurnID,
		Role:  types.RoleModel,
		Parts: []types.Part{types.TextPart(greeting)},
	}
}

// DefaultMode returns the effective default response mode: the one
// stored in settings when set, otherwise the configured fallback.
func (m *Manager) DefaultMode() types.ChatMode {
	if st := m.store.LoadSettings().DefaultMode; st.Valid() {
		return st
	}
	return m.defaultMode
}

// Select makes the conversation with the given id active. Selecting an
// unknown id is a silent no-op.
func (m *Manager) Select(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.findLocked(id) != nil {
		m.activeID = id
	}
}

// Delete removes a conversation. When the active one is deleted, the
// most recently touched survivor becomes active, or a fresh
// conversation is started if none remain.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i := range m.conversations {
		if m.conversations[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	m.conversations = append(m.conversations[:idx], m.conversations[idx+1:]...)
	logging.Chat("Deleted conversation %s", id)

	if m.activeID == id {
		if len(m.conversations) > 0 {
			m.activeID = m.conversations[0].ID
		} else {
			_, err := m.startNewLocked()
			return err
		}
	}
	return m.persistLocked()
}

// Rename sets a conversation title directly.
func (m *Manager) Rename(id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv := m.findLocked(id)
	if conv == nil {
		return fmt.Errorf("no conversation with id %q", id)
	}
	conv.Title = title
	return m.persistLocked()
}

// Send appends the user's message to the active conversation, asks the
// gateway for a reply, and appends the outcome. A gateway failure is
// converted into an error-role turn holding the user-facing message and
// is not returned as an error; the returned error covers orchestration
// failures only. The history is persisted on every exit path.
func (m *Manager) Send(ctx context.Context, parts []types.Part, mode types.ChatMode) (types.Turn, error) {
	if len(parts) == 0 {
		return types.Turn{}, errors.New("message has no content")
	}
	if !mode.Valid() {
		mode = m.DefaultMode()
	}

	m.mu.Lock()
	if m.sending {
		m.mu.Unlock()
		return types.Turn{}, ErrBusy
	}
	conv := m.findLocked(m.activeID)
	if conv == nil {
		m.mu.Unlock()
		return types.Turn{}, errors.New("no active conversation")
	}
	m.sending = true

	userTurn := types.Turn{
		ID:    uuid.NewString(),
		Role:  types.RoleUser,
		Parts: parts,
	}
	conv.Messages = append(conv.Messages, userTurn)
	m.deriveTitleLocked(conv, userTurn)

	// Snapshot before touchLocked: the reorder shifts elements within the
	// backing array, so conv points at a different conversation afterwards.
	convID := conv.ID
	history := make([]types.Turn, len(conv.Messages))
	copy(history, conv.Messages)

	m.touchLocked(convID)
	if err := m.persistLocked(); err != nil {
		m.sending = false
		m.mu.Unlock()
		return types.Turn{}, err
	}
	m.mu.Unlock()

	logging.Chat("Send: conversation=%s mode=%s turns=%d", convID, mode, len(history))
	result, convErr := m.responder.Converse(ctx, history, mode)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sending = false

	conv = m.findLocked(convID)
	if conv == nil {
		// Deleted mid-flight; nothing left to append to.
		return types.Turn{}, m.persistLocked()
	}

	var reply types.Turn
	if convErr != nil {
		logging.Chat("Send: conversation=%s failed: %v", convID, convErr)
		reply = types.Turn{
			ID:    uuid.NewString(),
			Role:  types.RoleError,
			Parts: []types.Part{types.TextPart(gateway.UserMessage(convErr))},
		}
	} else {
		reply = types.Turn{
			ID:               uuid.NewString(),
			Role:             types.RoleModel,
			Parts:            []types.Part{types.TextPart(result.Text)},
			GroundingSources: result.Sources,
		}
		if m.store.LoadSettings().DeveloperMode {
			debug := result.Debug
			reply.DebugInfo = &debug
		}
	}

	conv.Messages = append(conv.Messages, reply)
	m.touchLocked(convID)
	if err := m.persistLocked(); err != nil {
		return types.Turn{}, err
	}
	return reply, nil
}

// deriveTitleLocked sets the title from the first real user message of a
// still-untitled conversation, truncated to the rune limit.
func (m *Manager) deriveTitleLocked(conv *types.Conversation, userTurn types.Turn) {
	if len(conv.Messages) != 2 || conv.Messages[0].ID != gateway.GreetingTurnID {
		return
	}
	text := userTurn.Text()
	if text == "" {
		return
	}
	runes := []rune(text)
	if len(runes) > m.titleLimit {
		text = string(runes[:m.titleLimit]) + "..."
	}
	conv.Title = text
}

// touchLocked bumps a conversation's timestamp and moves it to the head
// of the list.
func (m *Manager) touchLocked(id string) {
	for i := range m.conversations {
		if m.conversations[i].ID != id {
			continue
		}
		m.conversations[i].Timestamp = time.Now().UnixMilli()
		conv := m.conversations[i]
		m.conversations = append(m.conversations[:i], m.conversations[i+1:]...)
		m.conversations = append([]types.Conversation{conv}, m.conversations...)
		return
	}
}

func (m *Manager) findLocked(id string) *types.Conversation {
	for i := range m.conversations {
		if m.conversations[i].ID == id {
			return &m.conversations[i]
		}
	}
	return nil
}

func (m *Manager) persistLocked() error {
	if err := m.store.WriteJSON(store.CollectionHistory, m.conversations); err != nil {
		return fmt.Errorf("failed to persist conversations: %w", err)
	}
	return nil
}
