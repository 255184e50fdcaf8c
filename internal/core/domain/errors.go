package domain

import (
	"errors"
	"fmt"
)

// Configuration failures detected before any engine call.
var (
	ErrMissingID    = errors.New("server id is required")
	ErrInvalidID    = errors.New("server id contains invalid characters")
	ErrMissingImage = errors.New("image is required")
	ErrInvalidPort  = errors.New("port must be between 1 and 65535")
	ErrInvalidLimit = errors.New("resource limits must be positive")
	ErrPartialRcon  = errors.New("rcon requires rconEnabled, rconPort and rconPassword together")
	ErrEmptyCommand = errors.New("console command is empty")
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("not found")

// StorageError reports a data directory that could not be created or accessed.
type StorageError struct {
	Op       string
	ServerID string
	Path     string
	Err      error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s %s (%s): %v", e.Op, e.ServerID, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RuntimeEngineError reports a failure talking to the container engine.
type RuntimeEngineError struct {
	Op       string
	ServerID string
	Err      error
}

func (e *RuntimeEngineError) Error() string {
	return fmt.Sprintf("engine: %s %s: %v", e.Op, e.ServerID, e.Err)
}

func (e *RuntimeEngineError) Unwrap() error { return e.Err }

// ConsoleConnectionError reports a connect, auth or timeout failure on the remote console.
type ConsoleConnectionError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConsoleConnectionError) Error() string {
	return fmt.Sprintf("console: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConsoleConnectionError) Unwrap() error { return e.Err }

// ConfigurationError reports invalid caller input.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "invalid configuration: " + e.Err.Error()
	}
	return fmt.Sprintf("invalid configuration: %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
