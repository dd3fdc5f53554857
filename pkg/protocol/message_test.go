package protocol

import (
	"errors"
	"strings"
	"testing"
	"time"

	"cogentcore.org/core/math32"

	"github.com/teslashibe/go-treeform/pkg/audio"
	"github.com/teslashibe/go-treeform/pkg/camera"
	"github.com/teslashibe/go-treeform/pkg/gesture"
	"github.com/teslashibe/go-treeform/pkg/morph"
	"github.com/teslashibe/go-treeform/pkg/scene"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
		wantErr bool
	}{
		{
			name:    "viewport message",
			msgType: TypeViewport,
			data:    ViewportData{Width: 1280, Height: 720},
		},
		{
			name:    "audio message",
			msgType: TypeAudio,
			data:    AudioData{Bins: "AAEC"},
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeFrame,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MessageType
		wantErr bool
	}{
		{"hands", `{"type":"hands","data":{"hands":[]}}`, TypeHands, false},
		{"no data", `{"type":"ping"}`, TypePing, false},
		{"missing type", `{"data":{}}`, "", true},
		{"not json", `hello`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := ParseMessage([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && msg.Type != tt.want {
				t.Errorf("Type = %v, want %v", msg.Type, tt.want)
			}
		})
	}
}

func TestParseData_NoData(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"viewport"}`))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if _, err := msg.GetViewportData(); !errors.Is(err, ErrNoData) {
		t.Errorf("GetViewportData() error = %v, want ErrNoData", err)
	}
}

func TestMessageTime(t *testing.T) {
	fallback := time.Date(2026, 12, 24, 0, 0, 0, 0, time.UTC)

	msg := &Message{Type: TypeHands}
	if got := msg.Time(fallback); !got.Equal(fallback) {
		t.Errorf("Time() without timestamp = %v, want fallback", got)
	}

	msg.Timestamp = fallback.Add(time.Second).UnixMilli()
	if got := msg.Time(fallback); !got.Equal(fallback.Add(time.Second)) {
		t.Errorf("Time() = %v, want %v", got, fallback.Add(time.Second))
	}
}

func TestHandsMessage(t *testing.T) {
	var h gesture.HandSample
	h.Handedness = gesture.Left
	h.Score = 0.87
	h.Landmarks[gesture.IndexTip] = gesture.Point{X: 0.25, Y: 0.75}

	msg, err := NewHandsMessage([]gesture.HandSample{h})
	if err != nil {
		t.Fatalf("NewHandsMessage() error = %v", err)
	}

	b, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	parsed, err := ParseMessage(b)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}

	data, err := parsed.GetHandsData()
	if err != nil {
		t.Fatalf("GetHandsData() error = %v", err)
	}
	if len(data.Hands) != 1 {
		t.Fatalf("Hands = %d, want 1", len(data.Hands))
	}
	got := data.Hands[0]
	if got.Handedness != gesture.Left {
		t.Errorf("Handedness = %v, want Left", got.Handedness)
	}
	if got.Landmarks[gesture.IndexTip] != h.Landmarks[gesture.IndexTip] {
		t.Errorf("IndexTip = %v, want %v", got.Landmarks[gesture.IndexTip], h.Landmarks[gesture.IndexTip])
	}
}

func TestHandsMessage_EmptyIsNotNull(t *testing.T) {
	msg, err := NewHandsMessage(nil)
	if err != nil {
		t.Fatalf("NewHandsMessage() error = %v", err)
	}
	if !strings.Contains(string(msg.Data), `"hands":[]`) {
		t.Errorf("Data = %s, want an empty hands list", msg.Data)
	}
}

func TestAudioMessage(t *testing.T) {
	bins := []byte{0, 64, 128, 255}

	msg, err := NewAudioMessage(bins)
	if err != nil {
		t.Fatalf("NewAudioMessage() error = %v", err)
	}
	data, err := msg.GetAudioData()
	if err != nil {
		t.Fatalf("GetAudioData() error = %v", err)
	}
	decoded, err := data.DecodeBins()
	if err != nil {
		t.Fatalf("DecodeBins() error = %v", err)
	}
	if string(decoded) != string(bins) {
		t.Errorf("DecodeBins() = %v, want %v", decoded, bins)
	}

	stopped, err := NewAudioMessage(nil)
	if err != nil {
		t.Fatalf("NewAudioMessage(nil) error = %v", err)
	}
	data, err = stopped.GetAudioData()
	if err != nil {
		t.Fatalf("GetAudioData() error = %v", err)
	}
	if decoded, err := data.DecodeBins(); err != nil || decoded != nil {
		t.Errorf("stopped DecodeBins() = %v, %v; want nil, nil", decoded, err)
	}

	bad := AudioData{Bins: "%%%"}
	if _, err := bad.DecodeBins(); err == nil {
		t.Error("DecodeBins() should reject invalid base64")
	}
}

func TestDetectorMessage(t *testing.T) {
	msg, err := NewDetectorMessage(errors.New("model failed to load"))
	if err != nil {
		t.Fatalf("NewDetectorMessage() error = %v", err)
	}
	data, err := msg.GetDetectorData()
	if err != nil {
		t.Fatalf("GetDetectorData() error = %v", err)
	}
	if data.Ready || data.Error != "model failed to load" {
		t.Errorf("DetectorData = %+v", data)
	}

	msg, _ = NewDetectorMessage(nil)
	data, _ = msg.GetDetectorData()
	if !data.Ready || data.Error != "" {
		t.Errorf("ready DetectorData = %+v", data)
	}
}

func TestFrameMessage(t *testing.T) {
	f := scene.Frame{
		Seq:      7,
		Time:     1.5,
		GroupYaw: 0.25,
		Camera: camera.State{
			Position: math32.Vec3(0, 2, 6),
			Mode:     camera.Focus,
		},
		Layers: []morph.LayerState{{Name: "photo", Explosion: 0.5, Opacity: 1}},
		Beat:   0.3,
		Transforms: []morph.Transform{
			{ID: 12, Kind: morph.KindPhoto, Position: math32.Vec3(1, 2, 3), Opacity: 1},
		},
	}

	msg, err := NewFrameMessage(&f)
	if err != nil {
		t.Fatalf("NewFrameMessage() error = %v", err)
	}
	if !strings.Contains(string(msg.Data), `"mode":"focus"`) {
		t.Errorf("camera mode should be encoded by name: %s", msg.Data)
	}
	if !strings.Contains(string(msg.Data), `"kind":"photo"`) {
		t.Errorf("entity kind should be encoded by name: %s", msg.Data)
	}

	got, err := msg.GetFrame()
	if err != nil {
		t.Fatalf("GetFrame() error = %v", err)
	}
	if got.Seq != 7 || got.Camera.Mode != camera.Focus {
		t.Errorf("frame header = seq %d mode %v", got.Seq, got.Camera.Mode)
	}
	if len(got.Transforms) != 1 || got.Transforms[0].Kind != morph.KindPhoto {
		t.Fatalf("Transforms = %+v", got.Transforms)
	}
	if got.Transforms[0].Position != f.Transforms[0].Position {
		t.Errorf("Position = %v, want %v", got.Transforms[0].Position, f.Transforms[0].Position)
	}
}

func TestMusicMessage(t *testing.T) {
	tracks := audio.NewTracks(0)
	cur, playing := tracks.Current()

	msg, err := NewMusicMessage(cur, "", playing)
	if err != nil {
		t.Fatalf("NewMusicMessage() error = %v", err)
	}
	data, err := msg.GetMusicData()
	if err != nil {
		t.Fatalf("GetMusicData() error = %v", err)
	}
	if data.URL != audio.DefaultTrackURL || !data.Playing {
		t.Errorf("MusicData = %+v", data)
	}
	if data.TrackID != cur.ID.String() {
		t.Errorf("TrackID = %v, want %v", data.TrackID, cur.ID)
	}

	msg, _ = NewMusicMessage(cur, "/api/music/abc", true)
	data, _ = msg.GetMusicData()
	if data.URL != "/api/music/abc" {
		t.Errorf("URL override = %v", data.URL)
	}
}

func TestAudioErrorMessage(t *testing.T) {
	msg, err := NewAudioErrorMessage("track-1", "NotSupportedError")
	if err != nil {
		t.Fatalf("NewAudioErrorMessage() error = %v", err)
	}
	data, err := msg.GetAudioErrorData()
	if err != nil {
		t.Fatalf("GetAudioErrorData() error = %v", err)
	}
	if data.TrackID != "track-1" || data.Reason != "NotSupportedError" {
		t.Errorf("AudioErrorData = %+v", data)
	}
}

func TestPingPongMessage(t *testing.T) {
	sent := time.Now().UnixMilli()
	pingMsg, err := NewPingMessage("test-123", sent)
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}

	pingData, err := pingMsg.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "test-123" {
		t.Errorf("ID = %v, want test-123", pingData.ID)
	}

	pongMsg, err := NewPongMessage(pingData.ID, pingData.Timestamp, sent+15)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	if pongMsg.Type != TypePong {
		t.Errorf("Type = %v, want %v", pongMsg.Type, TypePong)
	}

	pongData, err := pongMsg.GetPongData()
	if err != nil {
		t.Fatalf("GetPongData() error = %v", err)
	}
	if pongData.LatencyMs != 15 {
		t.Errorf("LatencyMs = %v, want 15", pongData.LatencyMs)
	}
}
