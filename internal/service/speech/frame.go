package speech

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrMalformedFrame 二进制帧无法解析。
var ErrMalformedFrame = errors.New("malformed tts frame")

const protocolVersion uint8 = 0b0001

// MessageType 帧类型（header 第二字节高 4 位）。
type MessageType uint8

const (
	FullClientRequest       MessageType = 0b0001
	FullServerResponse      MessageType = 0b1001
	AudioOnlyServerResponse MessageType = 0b1011
	ErrorMessage            MessageType = 0b1111
)

// MessageFlags 帧标志（header 第二字节低 4 位）。
type MessageFlags uint8

const (
	NoSequenceNumber       MessageFlags = 0b0000
	PositiveSequenceNumber MessageFlags = 0b0001
	LastPacketNoSequence   MessageFlags = 0b0010
	NegativeSequenceNumber MessageFlags = 0b0011
	WithEvent              MessageFlags = 0b0100
)

const sequenceMask MessageFlags = 0b0011

// EventType 服务端事件。
type EventType int32

const (
	EventNone               EventType = 0
	EventStartConnection    EventType = 1
	EventFinishConnection   EventType = 2
	EventConnectionStarted  EventType = 50
	EventConnectionFailed   EventType = 51
	EventConnectionFinished EventType = 52
	EventSessionStarted     EventType = 150
	EventSessionFinished    EventType = 152
	EventSessionFailed      EventType = 153
)

// connection-level events carry no session id; server connection events carry a connect id.
func (e EventType) hasSessionID() bool {
	switch e {
	case EventStartConnection, EventFinishConnection,
		EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return false
	default:
		return true
	}
}

func (e EventType) hasConnectID() bool {
	switch e {
	case EventConnectionStarted, EventConnectionFailed, EventConnectionFinished:
		return true
	default:
		return false
	}
}

// Serialization 与 Compression 占 header 第三字节。
type Serialization uint8

const (
	RawSerialization  Serialization = 0b0000
	JSONSerialization Serialization = 0b0001
)

type Compression uint8

const (
	NoCompression   Compression = 0b0000
	GzipCompression Compression = 0b0001
)

// Frame is one binary message of the unidirectional TTS stream.
type Frame struct {
	Type          MessageType
	Flags         MessageFlags
	Serialization Serialization
	Compression   Compression

	Sequence  int32
	Event     EventType
	SessionID string
	ConnectID string
	ErrorCode uint32
	Payload   []byte
}

// NewClientRequest 构造携带 JSON 参数的客户端请求帧。
func NewClientRequest(payload []byte, compression Compression) *Frame {
	return &Frame{
		Type:          FullClientRequest,
		Flags:         NoSequenceNumber,
		Serialization: JSONSerialization,
		Compression:   compression,
		Payload:       payload,
	}
}

func (f *Frame) hasSequence() bool {
	switch f.Flags & sequenceMask {
	case PositiveSequenceNumber, NegativeSequenceNumber:
		return true
	}
	return false
}

func (f *Frame) hasEvent() bool {
	return f.Flags&WithEvent == WithEvent
}

// IsLast 判断是否为最后一包。
func (f *Frame) IsLast() bool {
	switch f.Flags & sequenceMask {
	case LastPacketNoSequence, NegativeSequenceNumber:
		return true
	}
	return false
}

// Finished reports whether the server closed the synthesis session.
func (f *Frame) Finished() bool {
	return f.IsLast() || (f.hasEvent() && f.Event == EventSessionFinished)
}

// MarshalBinary 按 4 字节 header + 可选字段 + 长度前缀 payload 编码。
func (f *Frame) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write([]byte{
		protocolVersion<<4 | 0b0001,
		uint8(f.Type)<<4 | uint8(f.Flags),
		uint8(f.Serialization)<<4 | uint8(f.Compression),
		0x00,
	})

	if f.hasSequence() {
		writeUint32(&buf, uint32(f.Sequence))
	}
	if f.hasEvent() {
		writeUint32(&buf, uint32(f.Event))
		if f.Event.hasSessionID() {
			writeSized(&buf, []byte(f.SessionID))
		}
		if f.Event.hasConnectID() {
			writeSized(&buf, []byte(f.ConnectID))
		}
	}
	if f.Type == ErrorMessage {
		writeUint32(&buf, f.ErrorCode)
	}
	writeSized(&buf, f.Payload)

	return buf.Bytes(), nil
}

// ParseFrame decodes one frame received from the server.
func ParseFrame(data []byte) (*Frame, error) {
	r := bytes.NewReader(data)

	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrMalformedFrame, err)
	}
	if version := header[0] >> 4; version != protocolVersion {
		return nil, fmt.Errorf("%w: unsupported protocol version %d", ErrMalformedFrame, version)
	}

	f := &Frame{
		Type:          MessageType(header[1] >> 4),
		Flags:         MessageFlags(header[1] & 0x0F),
		Serialization: Serialization(header[2] >> 4),
		Compression:   Compression(header[2] & 0x0F),
	}

	// header size 以 4 字节为单位，多出的扩展部分直接跳过
	if extra := int(header[0]&0x0F)*4 - 4; extra > 0 {
		if r.Len() < extra {
			return nil, fmt.Errorf("%w: extended header", ErrMalformedFrame)
		}
		_, _ = r.Seek(int64(extra), io.SeekCurrent)
	}

	if f.hasSequence() {
		seq, err := readUint32(r, "sequence")
		if err != nil {
			return nil, err
		}
		f.Sequence = int32(seq)
	}

	if f.hasEvent() {
		event, err := readUint32(r, "event")
		if err != nil {
			return nil, err
		}
		f.Event = EventType(int32(event))

		if f.Event.hasSessionID() {
			session, err := readSized(r, "session id")
			if err != nil {
				return nil, err
			}
			f.SessionID = string(session)
		}
		if f.Event.hasConnectID() {
			connect, err := readSized(r, "connect id")
			if err != nil {
				return nil, err
			}
			f.ConnectID = string(connect)
		}
	}

	if f.Type == ErrorMessage {
		code, err := readUint32(r, "error code")
		if err != nil {
			return nil, err
		}
		f.ErrorCode = code
	}

	payload, err := readSized(r, "payload")
	if err != nil {
		return nil, err
	}
	f.Payload = payload
	return f, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeSized(buf *bytes.Buffer, data []byte) {
	writeUint32(buf, uint32(len(data)))
	buf.Write(data)
}

func readUint32(r *bytes.Reader, field string) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrMalformedFrame, field, err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readSized(r *bytes.Reader, field string) ([]byte, error) {
	size, err := readUint32(r, field+" size")
	if err != nil {
		return nil, err
	}
	if int64(size) > int64(r.Len()) {
		return nil, fmt.Errorf("%w: %s: want %d bytes, have %d", ErrMalformedFrame, field, size, r.Len())
	}
	if size == 0 {
		return nil, nil
	}
	data := make([]byte, size)
	_, _ = io.ReadFull(r, data)
	return data, nil
}
