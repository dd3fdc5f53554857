package protocol

import (
	"encoding/base64"

	"github.com/teslashibe/go-treeform/pkg/audio"
	"github.com/teslashibe/go-treeform/pkg/gesture"
	"github.com/teslashibe/go-treeform/pkg/scene"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewHandsMessage creates a hands message
func NewHandsMessage(hands []gesture.HandSample) (*Message, error) {
	if hands == nil {
		hands = []gesture.HandSample{}
	}
	return NewMessage(TypeHands, HandsData{Hands: hands})
}

// NewAudioMessage creates an audio message from a byte spectrum. A nil
// spectrum reports that playback stopped.
func NewAudioMessage(bins []byte) (*Message, error) {
	if bins == nil {
		return NewMessage(TypeAudio, AudioData{Stopped: true})
	}
	return NewMessage(TypeAudio, AudioData{
		Bins: base64.StdEncoding.EncodeToString(bins),
	})
}

// NewViewportMessage creates a viewport message
func NewViewportMessage(width, height int) (*Message, error) {
	return NewMessage(TypeViewport, ViewportData{Width: width, Height: height})
}

// NewDetectorMessage creates a detector readiness message
func NewDetectorMessage(err error) (*Message, error) {
	d := DetectorData{Ready: err == nil}
	if err != nil {
		d.Error = err.Error()
	}
	return NewMessage(TypeDetector, d)
}

// NewAudioErrorMessage creates a track failure report
func NewAudioErrorMessage(trackID, reason string) (*Message, error) {
	return NewMessage(TypeAudioError, AudioErrorData{TrackID: trackID, Reason: reason})
}

// NewFrameMessage creates a frame message
func NewFrameMessage(f *scene.Frame) (*Message, error) {
	return NewMessage(TypeFrame, f)
}

// NewMusicMessage tells the renderer to play t. url overrides the track's
// own URL for uploaded tracks served by the core.
func NewMusicMessage(t audio.Track, url string, playing bool) (*Message, error) {
	if url == "" {
		url = t.URL
	}
	return NewMessage(TypeMusic, MusicData{
		TrackID: t.ID.String(),
		Name:    t.Name,
		URL:     url,
		Playing: playing,
	})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string, ts int64) (*Message, error) {
	return NewMessage(TypePing, PingData{ID: id, Timestamp: ts})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetHandsData extracts hands from a message
func (m *Message) GetHandsData() (*HandsData, error) {
	var data HandsData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAudioData extracts audio data from a message
func (m *Message) GetAudioData() (*AudioData, error) {
	var data AudioData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeBins decodes the spectrum. It returns nil when playback stopped.
func (a *AudioData) DecodeBins() ([]byte, error) {
	if a.Stopped {
		return nil, nil
	}
	bins, err := base64.StdEncoding.DecodeString(a.Bins)
	if err != nil {
		return nil, err
	}
	if bins == nil {
		bins = []byte{}
	}
	return bins, nil
}

// GetViewportData extracts viewport data from a message
func (m *Message) GetViewportData() (*ViewportData, error) {
	var data ViewportData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetDetectorData extracts detector readiness from a message
func (m *Message) GetDetectorData() (*DetectorData, error) {
	var data DetectorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAudioErrorData extracts a track failure report from a message
func (m *Message) GetAudioErrorData() (*AudioErrorData, error) {
	var data AudioErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFrame extracts a scene frame from a message
func (m *Message) GetFrame() (*scene.Frame, error) {
	var data scene.Frame
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetMusicData extracts music data from a message
func (m *Message) GetMusicData() (*MusicData, error) {
	var data MusicData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
