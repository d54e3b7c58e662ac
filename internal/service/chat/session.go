package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/emotalk/backend/internal/model/chat"
	"github.com/zhouzirui/emotalk/backend/internal/service/ai"
	"github.com/zhouzirui/emotalk/backend/pkg/log"
)

var (
	ErrEmptyMessage   = errors.New("message text is required")
	ErrAuthentication = errors.New("api credential is required")
	ErrNotInitialized = errors.New("session not initialized")
	ErrTurnInProgress = errors.New("a response is still being generated")
)

// Options 会话的固定文案与默认模型。
type Options struct {
	SystemPrompt string
	Greeting     string
	DefaultModel string
}

// SubmitRequest carries one user turn. Credential is passed through to the
// completion client and never stored.
type SubmitRequest struct {
	Text       string
	Model      string
	Credential string
}

// Session holds the ordered message history of one conversation.
type Session struct {
	mu        sync.Mutex
	completer ai.Completer
	opts      Options

	id        string
	createdAt time.Time
	state     chat.State
	history   []chat.Message
}

// NewSession returns an uninitialized session; call Initialize before Submit.
func NewSession(completer ai.Completer, opts Options) *Session {
	return &Session{
		completer: completer,
		opts:      opts,
		id:        uuid.NewString(),
		createdAt: time.Now().UTC(),
		state:     chat.StateUninitialized,
	}
}

// Initialize sets the history to the system preamble.
func (s *Session) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = []chat.Message{chat.SystemMessage(s.opts.SystemPrompt)}
	s.state = chat.StateAwaitingInput
}

// Greeting 返回固定的开场白。
func (s *Session) Greeting() string {
	return s.opts.Greeting
}

// DefaultModel 返回未指定模型时使用的模型。
func (s *Session) DefaultModel() string {
	return s.opts.DefaultModel
}

// Submit appends the user message, asks the completer for a reply using the
// full history and appends the reply. On failure the user message is removed
// again so the history never ends with an unanswered turn.
func (s *Session) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", ErrEmptyMessage
	}
	if strings.TrimSpace(req.Credential) == "" {
		return "", ErrAuthentication
	}

	modelID := req.Model
	if modelID == "" {
		modelID = s.opts.DefaultModel
	}

	s.mu.Lock()
	switch s.state {
	case chat.StateUninitialized:
		s.mu.Unlock()
		return "", ErrNotInitialized
	case chat.StateGeneratingResponse:
		s.mu.Unlock()
		return "", ErrTurnInProgress
	}

	s.history = append(s.history, chat.UserMessage(req.Text))
	history := s.completionContext()
	s.state = chat.StateGeneratingResponse
	s.mu.Unlock()

	// 远端调用不持锁，期间其它写操作会收到 ErrTurnInProgress。
	reply, err := s.completer.Complete(ctx, history, modelID, req.Credential)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = chat.StateAwaitingInput

	if err != nil {
		s.history = s.history[:len(s.history)-1]
		log.Warnw("chat turn failed, user message rolled back",
			"session", s.id,
			"model", modelID,
			"error", err,
		)
		return "", err
	}

	s.history = append(s.history, chat.AssistantMessage(reply))
	return reply, nil
}

// Reset discards all turns; the history becomes the greeting alone. The
// preamble is still sent with every later completion.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == chat.StateGeneratingResponse {
		return ErrTurnInProgress
	}

	s.history = []chat.Message{chat.AssistantMessage(s.opts.Greeting)}
	s.state = chat.StateAwaitingInput
	log.Infow("chat session reset", "session", s.id)
	return nil
}

// History returns a copy of the ordered message history.
func (s *Session) History() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyHistory()
}

func (s *Session) State() chat.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot 返回会话的只读视图。
func (s *Session) Snapshot() chat.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return chat.Snapshot{
		ID:        s.id,
		State:     s.state,
		Messages:  s.copyHistory(),
		CreatedAt: s.createdAt,
	}
}

// completionContext 返回发送给模型的消息，首条始终是系统提示。
func (s *Session) completionContext() []chat.Message {
	if len(s.history) > 0 && s.history[0].Role == chat.RoleSystem {
		return s.copyHistory()
	}
	messages := make([]chat.Message, 0, len(s.history)+1)
	messages = append(messages, chat.SystemMessage(s.opts.SystemPrompt))
	return append(messages, s.history...)
}

func (s *Session) copyHistory() []chat.Message {
	copied := make([]chat.Message, len(s.history))
	copy(copied, s.history)
	return copied
}
