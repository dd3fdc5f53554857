package web

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-treeform/pkg/hub"
	"github.com/teslashibe/go-treeform/pkg/protocol"
)

// handleInput applies one message from the detector/analyser socket. Bad
// messages are logged and dropped; they never close the connection.
func (s *Server) handleInput(c *hub.Client, data []byte) {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		s.logger.Debug("dropping input", "error", err)
		return
	}
	if err := s.applyInput(c, msg); err != nil {
		s.logger.Debug("dropping input", "type", msg.Type, "error", err)
	}
}

func (s *Server) applyInput(c *hub.Client, msg *protocol.Message) error {
	switch msg.Type {
	case protocol.TypeHands:
		d, err := msg.GetHandsData()
		if err != nil {
			return err
		}
		// stamped on arrival: staleness is judged against the server clock
		s.director.SubmitHands(d.Hands, time.Now())

	case protocol.TypeAudio:
		d, err := msg.GetAudioData()
		if err != nil {
			return err
		}
		bins, err := d.DecodeBins()
		if err != nil {
			return err
		}
		s.director.SubmitBins(bins)

	case protocol.TypeViewport:
		d, err := msg.GetViewportData()
		if err != nil {
			return err
		}
		s.director.SetViewport(d.Width)

	case protocol.TypeDetector:
		d, err := msg.GetDetectorData()
		if err != nil {
			return err
		}
		var derr error
		if !d.Ready {
			derr = errors.New(d.Error)
			if d.Error == "" {
				derr = errors.New("hand detector failed")
			}
		}
		s.director.Readiness().Resolve(derr)

	case protocol.TypeAudioError:
		d, err := msg.GetAudioErrorData()
		if err != nil {
			return err
		}
		id, err := uuid.Parse(d.TrackID)
		if err != nil {
			return err
		}
		next, ok := s.director.Tracks().Failed(id)
		s.logger.Warn("track failed to play", "track", d.TrackID, "reason", d.Reason,
			"next", next.Name, "playing", ok)
		s.announceMusic()

	case protocol.TypePing:
		d, err := msg.GetPingData()
		if err != nil {
			return err
		}
		pong, err := protocol.NewPongMessage(d.ID, d.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		return s.inputHub.SendJSONTo(c, pong)

	default:
		return errors.New("unexpected message type")
	}
	return nil
}

// greetRenderer tells a new renderer what music to play.
func (s *Server) greetRenderer(c *hub.Client) {
	msg, err := s.musicMessage()
	if err != nil {
		s.logger.Error("encode music", "error", err)
		return
	}
	if err := s.frameHub.SendJSONTo(c, msg); err != nil {
		s.logger.Error("encode music", "error", err)
	}
}

// announceMusic tells every renderer about a change of track.
func (s *Server) announceMusic() {
	msg, err := s.musicMessage()
	if err != nil {
		s.logger.Error("encode music", "error", err)
		return
	}
	if err := s.frameHub.BroadcastJSON(msg); err != nil {
		s.logger.Error("encode music", "error", err)
	}
}

func (s *Server) musicMessage() (*protocol.Message, error) {
	t, playing := s.director.Tracks().Current()
	url := ""
	if t.Uploaded {
		url = "/api/music/" + t.ID.String()
	}
	return protocol.NewMusicMessage(t, url, playing)
}
