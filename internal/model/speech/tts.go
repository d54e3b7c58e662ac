package speech

import "time"

// TTSRequest 语音合成请求
type TTSRequest struct {
	Text         string  `json:"text"`
	Speaker      string  `json:"speaker"`
	Format       string  `json:"format"`   // mp3, ogg_opus, pcm
	Language     string  `json:"language"` // ko-KR, zh-CN, en-US
	Speed        float32 `json:"speed"`    // 语速倍率 0.5-2.0
	Volume       float32 `json:"volume"`   // 音量倍率
	Emotion      string  `json:"emotion,omitempty"`
	EmotionScale float32 `json:"emotionScale,omitempty"`
}

// TTSResponse 语音合成响应
type TTSResponse struct {
	AudioData []byte    `json:"-"`
	Duration  int64     `json:"duration"` // milliseconds
	Format    string    `json:"format"`
	RequestID string    `json:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Audio is a synthesized reply as handed to the presentation layer.
type Audio struct {
	File        string    `json:"file"`
	Format      string    `json:"format"`
	Voice       VoiceMode `json:"voice"`
	Speaker     string    `json:"speaker"`
	Emotion     string    `json:"emotion,omitempty"`
	Duration    int64     `json:"duration"`
	AudioBase64 string    `json:"audioBase64"`
}
