package speech

import (
	"strings"

	"github.com/zhouzirui/emotalk/backend/internal/analysis/emotion"
	"github.com/zhouzirui/emotalk/backend/internal/config"
	speechmodel "github.com/zhouzirui/emotalk/backend/internal/model/speech"
)

const (
	resourceSeedTTS  = "seed-tts-2.0"
	resourceMegaTTS  = "volc.megatts.default"
	resourceStandard = "volc.service_type.10029"
)

// speakerFor 将语音模式映射为配置中的发音人，none 返回空字符串。
func speakerFor(cfg config.SpeechConfig, mode speechmodel.VoiceMode) string {
	switch mode {
	case speechmodel.VoiceFemale:
		return cfg.FemaleVoice
	case speechmodel.VoiceMale:
		return cfg.MaleVoice
	default:
		return ""
	}
}

// resourceFor picks the X-Api-Resource-Id matching the speaker family.
func resourceFor(speaker string) string {
	if strings.HasPrefix(speaker, "S_") {
		return resourceMegaTTS
	}

	normalized := strings.ToLower(speaker)
	for _, hint := range []string{"bigtts", "seed", "uranus", "venus", "jupiter", "saturn", "mars"} {
		if strings.Contains(normalized, hint) {
			return resourceSeedTTS
		}
	}
	return resourceStandard
}

var ttsEmotionNames = map[emotion.Label]string{
	emotion.Happy:    "happy",
	emotion.Sad:      "sad",
	emotion.Angry:    "angry",
	emotion.Excited:  "excited",
	emotion.Tender:   "tender",
	emotion.Comfort:  "comfort",
	emotion.Magnetic: "magnetic",
}

// emotionParams 返回情绪音色可用的 emotion 与 emotion_scale；其余音色返回空。
func emotionParams(speaker string, decision emotion.Decision) (string, float32) {
	if decision.Emotion == emotion.Neutral || decision.Score <= 0 {
		return "", 0
	}
	if !strings.Contains(strings.ToLower(speaker), "_emo") {
		return "", 0
	}

	name, ok := ttsEmotionNames[decision.Emotion]
	if !ok {
		return "", 0
	}

	scale := decision.Scale
	switch {
	case scale <= 0:
		scale = 3
	case scale < 1:
		scale = 1
	case scale > 5:
		scale = 5
	}
	return name, scale
}
