package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/teslashibe/go-treeform/internal/log"
	"github.com/teslashibe/go-treeform/pkg/protocol"
)

var (
	replayURL   string
	replaySpeed float64
	replayLoop  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <recording.jsonl>",
	Short: "Send recorded input messages to a running server",
	Long: `replay reads one protocol message per line (hands, audio, viewport, ...)
and sends them to the server's /ws/input socket, keeping the recorded gaps
between message timestamps.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayURL, "url", "u", "ws://localhost:8080/ws/input", "input websocket URL")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1, "playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayLoop, "loop", false, "start over at the end of the recording")
}

func runReplay(cmd *cobra.Command, args []string) error {
	level := logLevel
	if level == "" {
		level = "info"
	}
	log.Init(level)

	if replaySpeed <= 0 {
		return fmt.Errorf("speed must be positive, got %v", replaySpeed)
	}
	if _, err := url.Parse(replayURL); err != nil {
		return fmt.Errorf("bad url: %w", err)
	}

	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	msgs, err := readRecording(f)
	f.Close()
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return fmt.Errorf("%s: no messages", args[0])
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, replayURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", replayURL, err)
	}
	defer conn.Close()

	// drain pongs and anything else the server sends
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(b []byte) error { return conn.WriteMessage(websocket.TextMessage, b) }
	log.Info("replaying", "file", args[0], "messages", len(msgs), "url", replayURL, "speed", replaySpeed)

	for {
		n, err := playback(ctx, msgs, replaySpeed, send)
		log.Info("replay finished", "sent", n)
		if err != nil || !replayLoop {
			if ctx.Err() != nil {
				err = nil
			}
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return err
		}
	}
}

// readRecording parses one protocol message per line. Blank lines are skipped.
func readRecording(r io.Reader) ([]*protocol.Message, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4<<20)

	var msgs []*protocol.Message
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		m, err := protocol.ParseMessage(b)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, sc.Err()
}

// playback sends msgs in order, sleeping for the recorded gap between
// timestamps divided by speed. Messages without a timestamp go out right
// after their predecessor. It returns the number of messages sent.
func playback(ctx context.Context, msgs []*protocol.Message, speed float64, send func([]byte) error) (int, error) {
	var prev time.Time
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for i, m := range msgs {
		at := m.Time(prev)
		if !prev.IsZero() {
			if gap := time.Duration(float64(at.Sub(prev)) / speed); gap > 0 {
				timer.Reset(gap)
				select {
				case <-ctx.Done():
					return i, ctx.Err()
				case <-timer.C:
				}
			}
		}
		prev = at

		if err := ctx.Err(); err != nil {
			return i, err
		}
		b, err := m.Bytes()
		if err != nil {
			return i, err
		}
		if err := send(b); err != nil {
			return i, fmt.Errorf("send message %d: %w", i, err)
		}
	}
	return len(msgs), nil
}
