package emotion

import (
	"strings"
)

// Label 表示TTS可以接受的情绪标签。
type Label string

const (
	Neutral  Label = "neutral"
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Excited  Label = "excited"
	Tender   Label = "tender"
	Comfort  Label = "comfort"
	Magnetic Label = "magnetic"
)

// labelOrder breaks score ties deterministically.
var labelOrder = []Label{Comfort, Sad, Angry, Tender, Happy, Excited, Magnetic}

// Decision 给出情绪识别结果以及推荐情绪强度。
type Decision struct {
	Emotion Label   `json:"emotion"`
	Scale   float32 `json:"scale"`
	Score   int     `json:"score"`
}

// Lexicon maps labels to lower-case keywords.
type Lexicon map[Label][]string

// Add 追加关键词，统一转为小写。
func (l Lexicon) Add(label Label, words ...string) {
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			l[label] = append(l[label], w)
		}
	}
}

// DefaultLexicon 覆盖韩语语料与中英文的常见情绪词。
func DefaultLexicon() Lexicon {
	l := Lexicon{}

	// 한국어
	l.Add(Happy, "기쁘", "행복", "좋아", "신나", "다행", "고마", "감사", "웃", "즐거")
	l.Add(Sad, "슬프", "슬퍼", "우울", "외로", "힘들", "눈물", "울고", "속상", "서운", "허무", "괴로")
	l.Add(Angry, "화나", "화가", "짜증", "억울", "열받", "분노", "미치겠", "답답")
	l.Add(Excited, "설레", "기대", "대박", "최고")
	l.Add(Tender, "천천히", "편안", "차분", "따뜻")
	l.Add(Comfort, "괜찮아", "괜찮을", "걱정하지", "힘내", "응원", "곁에", "이해해", "공감", "위로", "충분히")
	l.Add(Magnetic, "중요", "반드시", "꼭", "전문가", "상담")

	// English
	l.Add(Happy, "happy", "glad", "great", "thanks", "thank you", "love", "awesome")
	l.Add(Sad, "sad", "unhappy", "depressed", "lonely", "cry", "hurt", "upset")
	l.Add(Angry, "angry", "furious", "mad", "annoyed", "unfair")
	l.Add(Excited, "excited", "can't wait", "wow", "amazing")
	l.Add(Tender, "gentle", "calm", "softly", "slowly")
	l.Add(Comfort, "don't worry", "it's okay", "i'm here", "i understand", "take it easy", "you're safe")
	l.Add(Magnetic, "important", "must", "serious", "professional")

	// 中文
	l.Add(Happy, "开心", "高兴", "快乐", "太好了", "谢谢")
	l.Add(Sad, "难过", "伤心", "沮丧", "孤单", "失落", "委屈")
	l.Add(Angry, "生气", "愤怒", "气死", "烦死")
	l.Add(Excited, "期待", "激动", "惊喜")
	l.Add(Tender, "温柔", "慢慢", "平静")
	l.Add(Comfort, "别担心", "没事", "陪着", "抱抱", "我懂", "理解你")
	l.Add(Magnetic, "重要", "务必", "必须")

	return l
}

var defaultLexicon = DefaultLexicon()

// Analyze 根据用户话语与回复推断应使用的语音情绪。
func Analyze(userUtterance, reply string) Decision {
	return defaultLexicon.Analyze(userUtterance, reply)
}

// Analyze scores the reply first; a reply without emotional cues borrows a
// responsive emotion from the user's utterance.
func (l Lexicon) Analyze(userUtterance, reply string) Decision {
	best := l.score(reply)
	if best.Score == 0 {
		// 回复本身情感不明显时，按用户情绪给出共情的语气。
		best = respondTo(l.score(userUtterance))
	}
	if best.Score == 0 {
		return Decision{Emotion: Neutral, Scale: 3}
	}

	scale := 2 + float32(best.Score)/4
	switch best.Emotion {
	case Excited:
		scale++
	case Magnetic:
		scale = minScale(scale, 4)
	case Comfort, Tender:
		scale = minScale(scale, 3.5)
	}
	best.Scale = clampScale(scale)
	return best
}

func (l Lexicon) score(text string) Decision {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return Decision{Emotion: Neutral}
	}

	scores := make(map[Label]int, len(labelOrder))
	for label, words := range l {
		for _, w := range words {
			if strings.Contains(normalized, w) {
				scores[label] += 3
			}
		}
	}

	if bangs := strings.Count(text, "!") + strings.Count(text, "！"); bangs > 0 {
		scores[Excited] += bangs * 3
		if bangs == 1 {
			scores[Happy] += 2
		}
	}

	best := Decision{Emotion: Neutral}
	for _, label := range labelOrder {
		if scores[label] > best.Score {
			best = Decision{Emotion: label, Score: scores[label]}
		}
	}
	return best
}

func respondTo(user Decision) Decision {
	switch user.Emotion {
	case Sad:
		user.Emotion = Comfort
	case Angry:
		user.Emotion = Magnetic
	case Tender, Comfort:
		user.Emotion = Tender
	}
	return user
}

func minScale(v, limit float32) float32 {
	if v > limit {
		return limit
	}
	return v
}

func clampScale(v float32) float32 {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}
