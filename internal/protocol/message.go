package protocol

import (
	"errors"
	"fmt"
	"io"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
)

// FrameSize is the length of every frame on the wire: one kind byte, two argument bytes and the
// game number.
const FrameSize = 4

type Kind byte

const (
	KindHello Kind = 'H' // host -> joiner: a = host role, b = joiner role
	KindAck   Kind = 'A' // joiner -> host: a = joiner role
	KindMove  Kind = 'M' // a = row, b = col, game = game the move belongs to
	KindReset Kind = 'R' // either side started game number `game`
)

const maxCoord = entity.BoardSide - 1

var ErrMalformedFrame = fmt.Errorf("%w: malformed frame", apperror.ErrProtocolViolation)

// Message is one decoded frame.
type Message struct {
	Kind Kind
	A    byte
	B    byte
	Game byte
}

// MoveMsg is the payload of a move frame.
type MoveMsg struct {
	Row uint8
	Col uint8
}

func NewMove(row, col int, game uint8) (Message, error) {
	if row < 0 || row > maxCoord || col < 0 || col > maxCoord {
		return Message{}, fmt.Errorf("%w: row %d, col %d", entity.ErrOutOfRange, row, col)
	}

	return Message{Kind: KindMove, A: byte(row), B: byte(col), Game: game}, nil
}

func NewHello(hostRole, joinerRole entity.Mark) Message {
	return Message{Kind: KindHello, A: roleByte(hostRole), B: roleByte(joinerRole)}
}

func NewAck(joinerRole entity.Mark) Message {
	return Message{Kind: KindAck, A: roleByte(joinerRole)}
}

func NewReset(game uint8) Message {
	return Message{Kind: KindReset, Game: game}
}

// Move returns the coordinates carried by a move frame.
func (that Message) Move() MoveMsg {
	return MoveMsg{Row: that.A, Col: that.B}
}

// Roles returns the marks carried by a hello (host, joiner) or ack (joiner, Empty) frame.
func (that Message) Roles() (entity.Mark, entity.Mark) {
	return markOf(that.A), markOf(that.B)
}

// Encode - renders the message as a fixed-size frame.
func Encode(msg Message) ([]byte, error) {
	if err := validate(msg); err != nil {
		return nil, err
	}

	return []byte{byte(msg.Kind), msg.A, msg.B, msg.Game}, nil
}

// Decode - parses exactly one frame.
func Decode(frame []byte) (Message, error) {
	if len(frame) != FrameSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrMalformedFrame, len(frame))
	}

	msg := Message{Kind: Kind(frame[0]), A: frame[1], B: frame[2], Game: frame[3]}
	if err := validate(msg); err != nil {
		return Message{}, err
	}

	return msg, nil
}

// WriteMessage - writes one frame.
func WriteMessage(w io.Writer, msg Message) error {
	frame, err := Encode(msg)
	if err != nil {
		return err
	}

	if _, err = w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	return nil
}

// ReadMessage - blocks until one full frame is read. A clean end of stream is returned as io.EOF.
func ReadMessage(r io.Reader) (Message, error) {
	frame := make([]byte, FrameSize)

	n, err := io.ReadFull(r, frame)
	switch {
	case errors.Is(err, io.EOF):
		return Message{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return Message{}, fmt.Errorf("%w: stream ended after %d bytes", ErrMalformedFrame, n)
	case err != nil:
		return Message{}, fmt.Errorf("failed to read frame: %w", err)
	}

	return Decode(frame)
}

func validate(msg Message) error {
	switch msg.Kind {
	case KindMove:
		if msg.A > maxCoord || msg.B > maxCoord {
			return fmt.Errorf("%w: move (%d, %d) out of range", ErrMalformedFrame, msg.A, msg.B)
		}
	case KindHello:
		host, joiner := markOf(msg.A), markOf(msg.B)
		if !host.IsPlayer() || joiner != host.Opponent() || msg.Game != 0 {
			return fmt.Errorf("%w: hello roles %q/%q", ErrMalformedFrame, msg.A, msg.B)
		}
	case KindAck:
		if !markOf(msg.A).IsPlayer() || msg.B != 0 || msg.Game != 0 {
			return fmt.Errorf("%w: ack role %q", ErrMalformedFrame, msg.A)
		}
	case KindReset:
		if msg.A != 0 || msg.B != 0 {
			return fmt.Errorf("%w: reset carries arguments", ErrMalformedFrame)
		}
	default:
		return fmt.Errorf("%w: unknown kind %#x", ErrMalformedFrame, byte(msg.Kind))
	}

	return nil
}

func roleByte(mark entity.Mark) byte {
	if len(mark) != 1 {
		return 0
	}

	return mark[0]
}

func markOf(b byte) entity.Mark {
	if b == 0 {
		return entity.Empty
	}

	return entity.Mark([]byte{b})
}
