// Package protocol defines the WebSocket message types exchanged between the
// scene core and a browser renderer or hand detector.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-treeform/pkg/gesture"
)

// ErrNoData is returned when a message that requires a payload has none.
var ErrNoData = errors.New("message has no data")

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Renderer/detector → core
	TypeHands      MessageType = "hands"       // Landmarks of one video frame
	TypeAudio      MessageType = "audio"       // Frequency spectrum of one audio frame
	TypeViewport   MessageType = "viewport"    // Renderer viewport size
	TypeDetector   MessageType = "detector"    // Hand detector finished loading (or failed)
	TypeAudioError MessageType = "audio_error" // Renderer could not play a track

	// Core → renderer
	TypeFrame MessageType = "frame" // Per-tick scene state
	TypeMusic MessageType = "music" // Track the renderer should play

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data any) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s data: %w", msgType, err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v any) error {
	if len(m.Data) == 0 {
		return fmt.Errorf("%s: %w", m.Type, ErrNoData)
	}
	if err := json.Unmarshal(m.Data, v); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", m.Type, err)
	}
	return nil
}

// Time returns the message timestamp, or fallback when none was sent.
func (m *Message) Time(fallback time.Time) time.Time {
	if m.Timestamp == 0 {
		return fallback
	}
	return time.UnixMilli(m.Timestamp)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, errors.New("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Renderer/detector → core message types
// =============================================================================

// HandsData carries every hand the detector found in one video frame.
// An empty list is a real observation: no hands are visible.
type HandsData struct {
	Hands []gesture.HandSample `json:"hands"`
}

// AudioData carries the byte frequency spectrum of the playing track.
type AudioData struct {
	Bins    string `json:"bins,omitempty"` // base64 encoded
	Stopped bool   `json:"stopped,omitempty"`
}

// ViewportData is the renderer's drawable size in CSS pixels.
type ViewportData struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectorData reports that the in-browser hand detector finished loading.
type DetectorData struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// AudioErrorData reports a track the renderer failed to play.
type AudioErrorData struct {
	TrackID string `json:"track_id"`
	Reason  string `json:"reason,omitempty"`
}

// =============================================================================
// Core → renderer message types
// =============================================================================

// MusicData tells the renderer what to play.
type MusicData struct {
	TrackID string `json:"track_id"`
	Name    string `json:"name"`
	URL     string `json:"url"` // remote URL or the server's download path
	Playing bool   `json:"playing"`
}

// =============================================================================
// Bidirectional message types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
