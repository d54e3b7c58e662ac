package speech

import (
	"fmt"
	"strings"
)

// VoiceMode 前端可选的语音模式。
type VoiceMode string

const (
	VoiceFemale VoiceMode = "female"
	VoiceMale   VoiceMode = "male"
	VoiceNone   VoiceMode = "none"
)

// VoiceModes lists the selectable modes in display order.
var VoiceModes = []VoiceMode{VoiceFemale, VoiceMale, VoiceNone}

// ParseVoiceMode 解析语音模式，空字符串视为 none。
func ParseVoiceMode(raw string) (VoiceMode, error) {
	mode := VoiceMode(strings.ToLower(strings.TrimSpace(raw)))
	switch mode {
	case "":
		return VoiceNone, nil
	case VoiceFemale, VoiceMale, VoiceNone:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown voice mode %q", raw)
	}
}
