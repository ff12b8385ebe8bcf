package ipc

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"time"
)

// DefaultIdleTimeout drops a host that sent nothing for this long. Hosts
// send a game_state every turn, so silence means the game is gone.
const DefaultIdleTimeout = 2 * time.Minute

// Handler processes a received envelope. Return nil to send no reply.
type Handler func(env Envelope) (*Envelope, error)

// Connection is a single game host talking to the sidecar. Each AI player
// gets its own connection, identified after the hello handshake.
type Connection struct {
	conn     net.Conn
	handlers map[string]Handler
	Player   string
	// IdleTimeout overrides DefaultIdleTimeout. Zero or negative disables it.
	IdleTimeout time.Duration
	handled     int
}

func NewConnection(conn net.Conn, handlers map[string]Handler) *Connection {
	if handlers == nil {
		handlers = make(map[string]Handler)
	}
	return &Connection{
		conn:        conn,
		handlers:    handlers,
		IdleTimeout: DefaultIdleTimeout,
	}
}

func (c *Connection) RegisterHandler(msgType string, handler Handler) {
	c.handlers[msgType] = handler
}

func (c *Connection) Send(msgType string, data any) error {
	env, err := NewEnvelope(msgType, data)
	if err != nil {
		return err
	}
	return WriteEnvelope(c.conn, env)
}

// Handled is the number of envelopes a handler accepted.
func (c *Connection) Handled() int { return c.handled }

// ReadLoop blocks until the connection closes, errors or idles out. It owns
// the conn lifetime so callers don't need to track cleanup.
//
// A handler error is answered with an ack carrying status "error" so the
// host can tell a skipped turn from a lost sidecar.
func (c *Connection) ReadLoop() {
	defer c.conn.Close()

	for {
		if c.IdleTimeout > 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.IdleTimeout))
		}
		env, err := ReadEnvelope(c.conn)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			slog.Info("connection closed", "player", c.Player, "handled", c.handled)
			return
		case errors.Is(err, os.ErrDeadlineExceeded):
			slog.Warn("connection idle, dropping", "player", c.Player, "timeout", c.IdleTimeout)
			return
		default:
			slog.Info("connection read ended", "player", c.Player, "error", err)
			return
		}

		handler, ok := c.handlers[env.Type]
		if !ok {
			slog.Warn("no handler for message type", "type", env.Type, "player", c.Player)
			continue
		}

		resp, err := handler(env)
		if err != nil {
			slog.Error("handler error", "type", env.Type, "player", c.Player, "error", err)
			nack, nerr := NewEnvelope(TypeAck, AckMessage{Status: StatusError, Error: err.Error()})
			if nerr != nil {
				continue
			}
			resp = &nack
		} else {
			c.handled++
		}

		if resp != nil {
			if err := WriteEnvelope(c.conn, *resp); err != nil {
				slog.Error("failed to send response", "type", resp.Type, "error", err)
				return
			}
			slog.Debug("sent response", "type", resp.Type, "player", c.Player)
		}
	}
}
