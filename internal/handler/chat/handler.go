package chat

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/emotalk/backend/internal/model/chat"
	speechmodel "github.com/zhouzirui/emotalk/backend/internal/model/speech"
	"github.com/zhouzirui/emotalk/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/emotalk/backend/internal/service/chat"
	"github.com/zhouzirui/emotalk/backend/pkg/log"
	"github.com/zhouzirui/emotalk/backend/pkg/utils"
)

const credentialNotice = "API key is required: send it in the X-Api-Key header or as Authorization: Bearer <key>"

// Session 是处理器依赖的会话操作。
type Session interface {
	Greeting() string
	DefaultModel() string
	Submit(ctx context.Context, req chatservice.SubmitRequest) (string, error)
	Reset() error
	Snapshot() chat.Snapshot
}

// Speaker 把回复合成为语音。
type Speaker interface {
	Speak(ctx context.Context, mode speechmodel.VoiceMode, userText, reply string) (*speechmodel.Audio, error)
	Voices() []speechmodel.VoiceMode
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	session Session
	speaker Speaker
	models  []string
}

// New 创建聊天处理器；speaker 可以为 nil，此时只提供 none 语音。
func New(session Session, speaker Speaker, models []string) *Handler {
	return &Handler{
		session: session,
		speaker: speaker,
		models:  models,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/chat", func(cr chi.Router) {
		cr.Get("/greeting", h.handleGreeting)
		cr.Post("/messages", h.handleSubmit)
		cr.Post("/reset", h.handleReset)
		cr.Get("/history", h.handleHistory)
		cr.Get("/options", h.handleOptions)
	})
}

type submitRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
	Voice string `json:"voice"`
}

type submitResponse struct {
	Reply      string             `json:"reply"`
	Model      string             `json:"model"`
	Audio      *speechmodel.Audio `json:"audio,omitempty"`
	AudioError string             `json:"audioError,omitempty"`
}

func (h *Handler) handleGreeting(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]string{"greeting": h.session.Greeting()})
}

// handleSubmit 提交一轮用户消息并返回回复，按需附带语音。
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var payload submitRequest
	if err := utils.DecodeJSON(r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	voice, err := speechmodel.ParseVoiceMode(payload.Voice)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	model := payload.Model
	if model == "" {
		model = h.session.DefaultModel()
	}

	reply, err := h.session.Submit(r.Context(), chatservice.SubmitRequest{
		Text:       payload.Text,
		Model:      model,
		Credential: credentialFrom(r),
	})
	if err != nil {
		status := statusFor(err)
		message := err.Error()
		if errors.Is(err, chatservice.ErrAuthentication) {
			message = credentialNotice
		}
		if status >= http.StatusInternalServerError {
			log.Errorf("[chat] submit failed: %v", err)
		}
		utils.RespondError(w, status, message)
		return
	}

	resp := submitResponse{Reply: reply, Model: model}
	if voice != speechmodel.VoiceNone {
		if h.speaker == nil {
			resp.AudioError = "speech synthesis unavailable"
		} else if audio, err := h.speaker.Speak(r.Context(), voice, payload.Text, reply); err != nil {
			// 语音失败不影响文本回复
			log.Warnf("[chat] speech synthesis failed: %v", err)
			resp.AudioError = err.Error()
		} else {
			resp.Audio = audio
		}
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := h.session.Reset(); err != nil {
		utils.RespondError(w, statusFor(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *Handler) handleHistory(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *Handler) handleOptions(w http.ResponseWriter, _ *http.Request) {
	voices := []speechmodel.VoiceMode{speechmodel.VoiceNone}
	if h.speaker != nil {
		voices = h.speaker.Voices()
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"models":       h.models,
		"defaultModel": h.session.DefaultModel(),
		"voices":       voices,
	})
}

// credentialFrom 读取调用方凭证，仅透传不保存。
func credentialFrom(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-Api-Key")); key != "" {
		return key
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, chatservice.ErrEmptyMessage), errors.Is(err, ai.ErrUnsupportedModel):
		return http.StatusBadRequest
	case errors.Is(err, chatservice.ErrAuthentication):
		return http.StatusUnauthorized
	case errors.Is(err, chatservice.ErrTurnInProgress):
		return http.StatusConflict
	case errors.Is(err, chatservice.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ai.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
