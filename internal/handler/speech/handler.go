package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	speechmodel "github.com/zhouzirui/emotalk/backend/internal/model/speech"
	speechsvc "github.com/zhouzirui/emotalk/backend/internal/service/speech"
	"github.com/zhouzirui/emotalk/backend/pkg/log"
	"github.com/zhouzirui/emotalk/backend/pkg/utils"
)

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	Enabled() bool
	Speak(ctx context.Context, mode speechmodel.VoiceMode, userText, reply string) (*speechmodel.Audio, error)
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
}

// New 创建语音处理器
func New(speechSvc SpeechService) *Handler {
	return &Handler{speechSvc: speechSvc}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(sr chi.Router) {
		sr.Post("/synthesize", h.handleSynthesize)
		sr.Get("/health", h.handleHealth)
	})
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

// handleSynthesize 合成任意文本；?raw=1 时直接返回音频字节。
func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	var req synthesizeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "text is required")
		return
	}

	mode, err := speechmodel.ParseVoiceMode(req.Voice)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if mode == speechmodel.VoiceNone {
		utils.RespondError(w, http.StatusBadRequest, "voice must be female or male")
		return
	}

	audio, err := h.speechSvc.Speak(r.Context(), mode, "", req.Text)
	if err != nil {
		if errors.Is(err, speechsvc.ErrNotConfigured) {
			utils.RespondError(w, http.StatusServiceUnavailable, "speech synthesis not configured")
			return
		}
		log.Errorf("[speech] TTS error: %v", err)
		utils.RespondError(w, http.StatusBadGateway, "speech synthesis failed")
		return
	}

	if r.URL.Query().Get("raw") != "1" {
		utils.RespondJSON(w, http.StatusOK, audio)
		return
	}

	data, err := base64.StdEncoding.DecodeString(audio.AudioBase64)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "invalid audio payload")
		return
	}
	w.Header().Set("Content-Type", "audio/"+audio.Format)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", "attachment; filename=speech."+audio.Format)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Warnf("failed to write audio response: %v", err)
	}
}

// handleHealth 健康检查端点
func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "speech",
		"enabled": h.speechSvc.Enabled(),
	})
}
