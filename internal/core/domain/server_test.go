package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCreateServerOptionsValidate(t *testing.T) {
	base := CreateServerOptions{ID: "srv-1", Image: "demo/image:1", Port: 25565}

	tests := []struct {
		name    string
		mutate  func(o *CreateServerOptions)
		wantErr error
	}{
		{"valid", func(o *CreateServerOptions) {}, nil},
		{"missing id", func(o *CreateServerOptions) { o.ID = "" }, ErrMissingID},
		{"traversal id", func(o *CreateServerOptions) { o.ID = "../etc" }, ErrInvalidID},
		{"slash id", func(o *CreateServerOptions) { o.ID = "a/b" }, ErrInvalidID},
		{"missing image", func(o *CreateServerOptions) { o.Image = "" }, ErrMissingImage},
		{"zero port", func(o *CreateServerOptions) { o.Port = 0 }, ErrInvalidPort},
		{"port too high", func(o *CreateServerOptions) { o.Port = 70000 }, ErrInvalidPort},
		{"negative memory", func(o *CreateServerOptions) { o.MemoryLimitMB = ptr(int64(-1)) }, ErrInvalidLimit},
		{"zero cpu", func(o *CreateServerOptions) { o.CPULimit = ptr(0.0) }, ErrInvalidLimit},
		{"rcon without password", func(o *CreateServerOptions) {
			o.RconEnabled = true
			o.RconPort = ptr(25575)
		}, ErrPartialRcon},
		{"rcon without port", func(o *CreateServerOptions) {
			o.RconEnabled = true
			o.RconPassword = ptr("x")
		}, ErrPartialRcon},
		{"rcon port without enabled", func(o *CreateServerOptions) {
			o.RconPort = ptr(25575)
			o.RconPassword = ptr("x")
		}, ErrPartialRcon},
		{"rcon password without enabled", func(o *CreateServerOptions) {
			o.RconPassword = ptr("x")
		}, ErrPartialRcon},
		{"rcon bad port", func(o *CreateServerOptions) {
			o.RconEnabled = true
			o.RconPort = ptr(0)
			o.RconPassword = ptr("x")
		}, ErrInvalidPort},
		{"rcon complete", func(o *CreateServerOptions) {
			o.RconEnabled = true
			o.RconPort = ptr(25575)
			o.RconPassword = ptr("x")
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := base
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestRcon(t *testing.T) {
	opts := CreateServerOptions{RconEnabled: true, RconPort: ptr(25575), RconPassword: ptr("secret")}
	cfg, ok := opts.Rcon()
	require.True(t, ok)
	assert.Equal(t, RconConfig{Port: 25575, Password: "secret"}, cfg)

	opts.RconEnabled = false
	_, ok = opts.Rcon()
	assert.False(t, ok)
}

func TestTypedErrorsUnwrap(t *testing.T) {
	cause := errors.New("daemon unreachable")

	err := error(&RuntimeEngineError{Op: "create", ServerID: "srv-1", Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "srv-1")

	err = &StorageError{Op: "ensure", ServerID: "srv-1", Path: "/data/srv-1", Err: cause}
	assert.ErrorIs(t, err, cause)

	err = &ConsoleConnectionError{Op: "connect", Addr: "127.0.0.1:25575", Err: cause}
	assert.ErrorIs(t, err, cause)
}
