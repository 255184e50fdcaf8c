package rcon

import (
	"context"
	"net"
	"strconv"
	"time"

	gorcon "github.com/gorcon/rcon"
	"github.com/rs/zerolog"

	"github.com/sparkpanel/sparkd/internal/core/domain"
	"github.com/sparkpanel/sparkd/internal/core/ports"
	"github.com/sparkpanel/sparkd/internal/metrics"
)

const (
	DefaultHost    = "127.0.0.1"
	DefaultTimeout = 5 * time.Second
)

// Bridge sends single commands over fresh RCON connections. Connections are never reused.
type Bridge struct {
	timeout time.Duration
	logger  zerolog.Logger
}

func NewBridge(timeout time.Duration, logger zerolog.Logger) *Bridge {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Bridge{timeout: timeout, logger: logger}
}

// SendCommand connects, authenticates, runs command and returns the reply.
// The connection is closed before returning in every case.
func (b *Bridge) SendCommand(ctx context.Context, host string, port int, password, command string) (reply string, err error) {
	defer func() { metrics.ConsoleCommandsTotal.WithLabelValues(metrics.Result(err)).Inc() }()

	if command == "" {
		return "", &domain.ConfigurationError{Field: "command", Err: domain.ErrEmptyCommand}
	}
	if port <= 0 || port > 65535 {
		return "", &domain.ConfigurationError{Field: "port", Err: domain.ErrInvalidPort}
	}
	if host == "" {
		host = DefaultHost
	}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	timeout := b.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return "", &domain.ConsoleConnectionError{Op: "connect", Addr: addr, Err: err}
	}

	conn, err := gorcon.Dial(addr, password, gorcon.SetDialTimeout(timeout), gorcon.SetDeadline(timeout))
	if err != nil {
		return "", &domain.ConsoleConnectionError{Op: "connect", Addr: addr, Err: err}
	}
	defer conn.Close()

	reply, err = conn.Execute(command)
	if err != nil {
		return "", &domain.ConsoleConnectionError{Op: "execute", Addr: addr, Err: err}
	}

	b.logger.Debug().Str("addr", addr).Str("command", command).Msg("console command sent")
	return reply, nil
}

var _ ports.ConsoleBridge = (*Bridge)(nil)
