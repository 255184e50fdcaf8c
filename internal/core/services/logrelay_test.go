package services

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *lineSink) add(l string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, l)
}

func (s *lineSink) get() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func TestFollowLogsAbsent(t *testing.T) {
	relay := NewLogRelay(newFakeEngine(), Config{}, zerolog.Nop())

	h, err := relay.FollowLogs(context.Background(), "srv-1", func(string) {})
	require.NoError(t, err)
	assert.Nil(t, h)
}

func TestFollowLogsFramed(t *testing.T) {
	var buf bytes.Buffer
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte("[Server] Starting\n[Server] Do"))
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stderr).Write([]byte("warning\n"))
	_, _ = stdcopy.NewStdWriter(&buf, stdcopy.Stdout).Write([]byte("ne\n"))

	engine := newFakeEngine()
	engine.logs = buf.String()
	engine.addInstance("c1", "spark_mc_srv-1", true)
	relay := NewLogRelay(engine, Config{}, zerolog.Nop())

	sink := &lineSink{}
	h, err := relay.FollowLogs(context.Background(), "srv-1", sink.add)
	require.NoError(t, err)
	require.NotNil(t, h)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not finish")
	}
	require.NoError(t, h.Err())
	assert.Equal(t, []string{"[Server] Starting", "warning", "[Server] Done"}, sink.get())
	assert.Contains(t, engine.Calls(), "logs:c1:100")
	require.NoError(t, h.Close())
}

func TestFollowLogsTTY(t *testing.T) {
	engine := newFakeEngine()
	engine.tty = true
	engine.logs = "line one\r\nline two\r\n"
	engine.addInstance("c1", "spark_mc_srv-1", true)
	relay := NewLogRelay(engine, Config{}, zerolog.Nop())

	sink := &lineSink{}
	h, err := relay.FollowLogs(context.Background(), "srv-1", sink.add)
	require.NoError(t, err)
	<-h.Done()

	assert.Equal(t, []string{"line one", "line two"}, sink.get())
}

// blockingLogs never ends until closed.
type blockingLogs struct {
	*fakeEngine
	pr *io.PipeReader
	pw *io.PipeWriter
}

func (b *blockingLogs) InstanceLogs(ctx context.Context, id string, tail int) (io.ReadCloser, error) {
	return b.pr, nil
}

func TestFollowLogsClose(t *testing.T) {
	pr, pw := io.Pipe()
	engine := &blockingLogs{fakeEngine: newFakeEngine(), pr: pr, pw: pw}
	engine.tty = true
	engine.addInstance("c1", "spark_mc_srv-1", true)
	relay := NewLogRelay(engine, Config{}, zerolog.Nop())

	sink := &lineSink{}
	h, err := relay.FollowLogs(context.Background(), "srv-1", sink.add)
	require.NoError(t, err)

	_, err = pw.Write([]byte("hello\n"))
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return len(sink.get()) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, h.Close())
	<-h.Done()
	assert.NoError(t, h.Err())
	// closing twice is fine
	require.NoError(t, h.Close())
}
