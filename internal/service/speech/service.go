package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"sync"

	"github.com/zhouzirui/emotalk/backend/internal/analysis/emotion"
	"github.com/zhouzirui/emotalk/backend/internal/config"
	speechmodel "github.com/zhouzirui/emotalk/backend/internal/model/speech"
	"github.com/zhouzirui/emotalk/backend/pkg/log"
)

// Synthesizer turns text into audio bytes.
type Synthesizer interface {
	Synthesize(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error)
}

// Service 语音服务：选择发音人、计算情绪参数、落盘并返回 base64 音频。
type Service struct {
	cfg config.SpeechConfig
	tts Synthesizer

	// 输出文件名固定，写入需要串行
	mu sync.Mutex
}

// NewService 创建语音服务实例；tts 为 nil 时使用火山引擎客户端。
func NewService(cfg config.SpeechConfig, tts Synthesizer) *Service {
	if tts == nil {
		tts = NewTTSClient(cfg)
	}
	return &Service{cfg: cfg, tts: tts}
}

// Enabled 表示是否提供了语音凭证。
func (s *Service) Enabled() bool {
	return s.cfg.Enabled
}

// Voices returns the voice modes a client may choose.
func (s *Service) Voices() []speechmodel.VoiceMode {
	if !s.Enabled() {
		return []speechmodel.VoiceMode{speechmodel.VoiceNone}
	}
	return append([]speechmodel.VoiceMode(nil), speechmodel.VoiceModes...)
}

// Speak synthesizes reply with the speaker bound to mode. The audio overwrites
// the configured output file and is returned base64 encoded. VoiceNone yields
// a nil Audio and no error.
func (s *Service) Speak(ctx context.Context, mode speechmodel.VoiceMode, userText, reply string) (*speechmodel.Audio, error) {
	if mode == speechmodel.VoiceNone {
		return nil, nil
	}
	if !s.Enabled() {
		return nil, ErrNotConfigured
	}

	speaker := speakerFor(s.cfg, mode)
	if speaker == "" {
		return nil, fmt.Errorf("%w: no speaker for voice %q", ErrNotConfigured, mode)
	}

	req := &speechmodel.TTSRequest{
		Text:     reply,
		Speaker:  speaker,
		Format:   "mp3",
		Language: s.cfg.TTSLanguage,
	}
	var label string
	if s.cfg.EmotionEnabled {
		label, req.EmotionScale = emotionParams(speaker, emotion.Analyze(userText, reply))
		req.Emotion = label
	}

	resp, err := s.tts.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.writeOutput(resp.AudioData); err != nil {
		return nil, err
	}

	log.Infow("speech synthesized",
		"voice", mode,
		"speaker", speaker,
		"emotion", label,
		"bytes", len(resp.AudioData),
		"request_id", resp.RequestID,
	)

	return &speechmodel.Audio{
		File:        s.cfg.OutputFile,
		Format:      resp.Format,
		Voice:       mode,
		Speaker:     speaker,
		Emotion:     label,
		Duration:    resp.Duration,
		AudioBase64: base64.StdEncoding.EncodeToString(resp.AudioData),
	}, nil
}

func (s *Service) writeOutput(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.cfg.OutputFile, data, 0o644); err != nil {
		return fmt.Errorf("write audio file %s: %w", s.cfg.OutputFile, err)
	}
	return nil
}
