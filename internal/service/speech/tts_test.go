package speech

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/emotalk/backend/internal/config"
	speechmodel "github.com/zhouzirui/emotalk/backend/internal/model/speech"
)

type ttsServer struct {
	t         *testing.T
	header    http.Header
	payload   ttsPayload
	responses func(conn *websocket.Conn)
}

func (s *ttsServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.header = r.Header.Clone()
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.t.Errorf("upgrade: %v", err)
		return
	}
	defer conn.Close()

	_, data, err := conn.ReadMessage()
	if err != nil {
		s.t.Errorf("read request: %v", err)
		return
	}
	frame, err := ParseFrame(data)
	if err != nil {
		s.t.Errorf("parse request frame: %v", err)
		return
	}
	if frame.Type != FullClientRequest {
		s.t.Errorf("unexpected frame type %d", frame.Type)
	}
	if err := sonic.Unmarshal(frame.Payload, &s.payload); err != nil {
		s.t.Errorf("decode request payload: %v", err)
	}

	s.responses(conn)
}

func sendFrame(t *testing.T, conn *websocket.Conn, f *Frame) {
	data, err := f.MarshalBinary()
	if err != nil {
		t.Errorf("marshal frame: %v", err)
		return
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		t.Errorf("write frame: %v", err)
	}
}

func newTestClient(srv *httptest.Server) *TTSClient {
	return NewTTSClient(config.SpeechConfig{
		AppID:       "app-1",
		AccessToken: "token-1",
		Endpoint:    "ws" + strings.TrimPrefix(srv.URL, "http"),
		TTSSpeed:    1.2,
		TTSVolume:   1.0,
		TTSLanguage: "ko-KR",
		Timeout:     5,
	})
}

func TestTTSClientSynthesize(t *testing.T) {
	server := &ttsServer{t: t}
	server.responses = func(conn *websocket.Conn) {
		sendFrame(t, conn, &Frame{Type: FullServerResponse, Flags: WithEvent, Event: EventSessionStarted, SessionID: "s1"})

		packed, err := compress([]byte("abc"), GzipCompression)
		if err != nil {
			t.Errorf("compress: %v", err)
		}
		sendFrame(t, conn, &Frame{Type: AudioOnlyServerResponse, Compression: GzipCompression, Payload: packed})

		body := `{"reqid":"req-7","code":3000,"data":"` + base64.StdEncoding.EncodeToString([]byte("def")) + `","addition":{"duration":"1200"}}`
		sendFrame(t, conn, &Frame{Type: FullServerResponse, Serialization: JSONSerialization, Payload: []byte(body)})

		sendFrame(t, conn, &Frame{Type: FullServerResponse, Flags: WithEvent, Event: EventSessionFinished, SessionID: "s1"})
	}
	srv := httptest.NewServer(server)
	defer srv.Close()

	resp, err := newTestClient(srv).Synthesize(context.Background(), &speechmodel.TTSRequest{
		Text:         "괜찮아요",
		Speaker:      "zh_female_tianxinxiaomei_emo_v2_mars_bigtts",
		Format:       "mp3",
		Emotion:      "comfort",
		EmotionScale: 3.5,
	})
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}

	if string(resp.AudioData) != "abcdef" {
		t.Fatalf("unexpected audio %q", resp.AudioData)
	}
	if resp.Duration != 1200 || resp.RequestID != "req-7" || resp.Format != "mp3" {
		t.Fatalf("unexpected response %+v", resp)
	}

	if server.header.Get("X-Api-App-Key") != "app-1" || server.header.Get("X-Api-Access-Key") != "token-1" {
		t.Fatalf("credentials not sent: %v", server.header)
	}
	if got := server.header.Get("X-Api-Resource-Id"); got != resourceSeedTTS {
		t.Fatalf("unexpected resource id %q", got)
	}

	params := server.payload.ReqParams
	if params.Text != "괜찮아요" || params.Language != "ko-KR" {
		t.Fatalf("unexpected request params %+v", params)
	}
	if params.AudioParams.Emotion != "comfort" || params.AudioParams.EmotionScale != 3.5 {
		t.Fatalf("emotion not forwarded: %+v", params.AudioParams)
	}
	if params.AudioParams.SpeedRatio != 1.2 || params.AudioParams.VolumeRatio != 0 {
		t.Fatalf("unexpected ratios: %+v", params.AudioParams)
	}
}

func TestTTSClientServerError(t *testing.T) {
	server := &ttsServer{t: t}
	server.responses = func(conn *websocket.Conn) {
		sendFrame(t, conn, &Frame{Type: ErrorMessage, ErrorCode: 45000000, Payload: []byte("speaker not found")})
	}
	srv := httptest.NewServer(server)
	defer srv.Close()

	_, err := newTestClient(srv).Synthesize(context.Background(), &speechmodel.TTSRequest{Text: "hi", Speaker: "x", Format: "mp3"})
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
	if !strings.Contains(err.Error(), "speaker not found") {
		t.Fatalf("error should carry server message: %v", err)
	}
}

func TestTTSClientEmptyAudio(t *testing.T) {
	server := &ttsServer{t: t}
	server.responses = func(conn *websocket.Conn) {
		sendFrame(t, conn, &Frame{Type: FullServerResponse, Flags: LastPacketNoSequence})
	}
	srv := httptest.NewServer(server)
	defer srv.Close()

	_, err := newTestClient(srv).Synthesize(context.Background(), &speechmodel.TTSRequest{Text: "hi", Speaker: "x", Format: "mp3"})
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis, got %v", err)
	}
}

func TestTTSClientRequiresCredentials(t *testing.T) {
	client := NewTTSClient(config.SpeechConfig{Endpoint: "ws://127.0.0.1:1"})

	_, err := client.Synthesize(context.Background(), &speechmodel.TTSRequest{Text: "hi"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}

	_, err = client.Synthesize(context.Background(), &speechmodel.TTSRequest{Text: " "})
	if !errors.Is(err, ErrSynthesis) {
		t.Fatalf("expected ErrSynthesis for empty text, got %v", err)
	}
}
