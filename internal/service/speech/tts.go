package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/emotalk/backend/internal/config"
	speechmodel "github.com/zhouzirui/emotalk/backend/internal/model/speech"
	"github.com/zhouzirui/emotalk/backend/pkg/log"
)

var (
	// ErrNotConfigured 缺少 AppID 或 AccessToken。
	ErrNotConfigured = errors.New("speech synthesis not configured")
	// ErrSynthesis 服务端返回错误或音频为空。
	ErrSynthesis = errors.New("speech synthesis failed")
)

// TTSClient 火山引擎单向流式 TTS WebSocket 客户端。
type TTSClient struct {
	cfg    config.SpeechConfig
	dialer *websocket.Dialer
}

// NewTTSClient 创建 TTS 客户端
func NewTTSClient(cfg config.SpeechConfig) *TTSClient {
	return &TTSClient{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
	}
}

type ttsPayload struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string         `json:"speaker"`
		Text        string         `json:"text"`
		AudioParams ttsAudioParams `json:"audio_params"`
		Additions   string         `json:"additions,omitempty"`
		Language    string         `json:"language,omitempty"`
	} `json:"req_params"`
}

type ttsAudioParams struct {
	Format          string  `json:"format"`
	SampleRate      int     `json:"sample_rate"`
	EnableTimestamp bool    `json:"enable_timestamp"`
	SpeedRatio      float32 `json:"speed_ratio,omitempty"`
	VolumeRatio     float32 `json:"volume_ratio,omitempty"`
	Emotion         string  `json:"emotion,omitempty"`
	EmotionScale    float32 `json:"emotion_scale,omitempty"`
}

type ttsServerMessage struct {
	ReqID    string `json:"reqid"`
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
	Addition struct {
		Duration string `json:"duration,omitempty"`
	} `json:"addition,omitempty"`
}

// Synthesize 建立一次 WebSocket 连接，发送合成请求并收集全部音频分片。
func (c *TTSClient) Synthesize(ctx context.Context, req *speechmodel.TTSRequest) (*speechmodel.TTSResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrSynthesis)
	}

	appID := strings.TrimSpace(c.cfg.AppID)
	token := strings.TrimSpace(c.cfg.AccessToken)
	if appID == "" || token == "" {
		return nil, ErrNotConfigured
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.cfg.Timeout)*time.Second)
		defer cancel()
	}

	connectID := uuid.NewString()
	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resourceFor(req.Speaker))
	header.Set("X-Api-Connect-Id", connectID)

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.Endpoint, header)
	if err != nil {
		return nil, fmt.Errorf("connect tts websocket: %w", err)
	}
	defer conn.Close()

	if resp != nil {
		if logID := resp.Header.Get("X-Tt-Logid"); logID != "" {
			log.Debugf("[TTS] connected, logid=%s", logID)
		}
	}

	// ReadMessage 不感知 ctx，取消时关闭连接以解除阻塞。
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	body, err := sonic.Marshal(c.buildPayload(req))
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}
	body, err = compress(body, NoCompression)
	if err != nil {
		return nil, err
	}
	frame, err := NewClientRequest(body, NoCompression).MarshalBinary()
	if err != nil {
		return nil, err
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return nil, fmt.Errorf("send tts request: %w", err)
	}

	result, err := c.collect(conn, req.Format)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	if result.RequestID == "" {
		result.RequestID = connectID
	}
	return result, nil
}

func (c *TTSClient) collect(conn *websocket.Conn, format string) (*speechmodel.TTSResponse, error) {
	var (
		audio    bytes.Buffer
		reqID    string
		duration int64
	)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("read tts response: %w", err)
		}

		frame, err := ParseFrame(data)
		if err != nil {
			return nil, err
		}

		payload, err := decompress(frame.Payload, frame.Compression)
		if err != nil {
			return nil, fmt.Errorf("decompress tts payload: %w", err)
		}

		switch frame.Type {
		case ErrorMessage:
			return nil, fmt.Errorf("%w: code=%d: %s", ErrSynthesis, frame.ErrorCode, payload)

		case AudioOnlyServerResponse:
			audio.Write(payload)

		case FullServerResponse:
			if len(payload) > 0 {
				var msg ttsServerMessage
				if err := sonic.Unmarshal(payload, &msg); err != nil {
					log.Warnf("[TTS] unparseable server payload: %v", err)
				} else {
					// 3000 表示成功
					if msg.Code != 0 && msg.Code != 3000 {
						return nil, fmt.Errorf("%w: api error %d: %s", ErrSynthesis, msg.Code, msg.Message)
					}
					if msg.ReqID != "" {
						reqID = msg.ReqID
					}
					if msg.Addition.Duration != "" {
						if ms, err := strconv.ParseInt(msg.Addition.Duration, 10, 64); err == nil {
							duration = ms
						}
					}
					if msg.Data != "" {
						chunk, err := base64.StdEncoding.DecodeString(msg.Data)
						if err != nil {
							return nil, fmt.Errorf("%w: decode audio chunk: %v", ErrSynthesis, err)
						}
						audio.Write(chunk)
					}
					if msg.Sequence < 0 {
						frame.Flags = NegativeSequenceNumber
					}
				}
			}

		default:
			log.Debugf("[TTS] ignoring frame type %d", frame.Type)
		}

		if frame.Finished() {
			break
		}
	}

	if audio.Len() == 0 {
		return nil, fmt.Errorf("%w: audio is empty", ErrSynthesis)
	}
	return &speechmodel.TTSResponse{
		AudioData: audio.Bytes(),
		Duration:  duration,
		Format:    format,
		RequestID: reqID,
		CreatedAt: time.Now(),
	}, nil
}

func (c *TTSClient) buildPayload(req *speechmodel.TTSRequest) *ttsPayload {
	p := &ttsPayload{}
	p.User.UID = uuid.NewString()
	p.ReqParams.Speaker = req.Speaker
	p.ReqParams.Text = req.Text
	p.ReqParams.Additions = `{"disable_markdown_filter":false}`

	p.ReqParams.AudioParams = ttsAudioParams{
		Format:          req.Format,
		SampleRate:      24000,
		EnableTimestamp: true,
		Emotion:         req.Emotion,
		EmotionScale:    req.EmotionScale,
	}

	speed := req.Speed
	if speed <= 0 {
		speed = c.cfg.TTSSpeed
	}
	if speed > 0 && speed != 1.0 {
		p.ReqParams.AudioParams.SpeedRatio = speed
	}

	volume := req.Volume
	if volume <= 0 {
		volume = c.cfg.TTSVolume
	}
	if volume > 0 && volume != 1.0 {
		p.ReqParams.AudioParams.VolumeRatio = volume
	}

	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = strings.TrimSpace(c.cfg.TTSLanguage)
	}
	p.ReqParams.Language = language

	return p
}
