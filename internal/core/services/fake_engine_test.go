package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sparkpanel/sparkd/internal/core/domain"
)

// fakeEngine simulates instance state transitions and records every call in order.
type fakeEngine struct {
	mu        sync.Mutex
	calls     []string
	instances map[string]*domain.Instance // by id
	specs     []domain.InstanceSpec
	nextID    int

	pullErr  error
	findErr  error
	startErr error
	stats    domain.StatsSnapshot
	logs     string
	tty      bool
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{instances: make(map[string]*domain.Instance)}
}

func (f *fakeEngine) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeEngine) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Ops returns the recorded calls without their arguments.
func (f *fakeEngine) Ops() []string {
	var ops []string
	for _, c := range f.Calls() {
		ops = append(ops, strings.SplitN(c, ":", 2)[0])
	}
	return ops
}

func (f *fakeEngine) Ping(ctx context.Context) error { return nil }

func (f *fakeEngine) PullImage(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("pull:%s", ref)
	return f.pullErr
}

func (f *fakeEngine) FindInstance(ctx context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("find:%s", name)
	if f.findErr != nil {
		return "", f.findErr
	}
	for id, inst := range f.instances {
		if inst.Name == name {
			return id, nil
		}
	}
	return "", nil
}

func (f *fakeEngine) InspectInstance(ctx context.Context, id string) (domain.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("inspect:%s", id)
	inst, ok := f.instances[id]
	if !ok {
		return domain.Instance{}, fmt.Errorf("no such container: %s", id)
	}
	return *inst, nil
}

func (f *fakeEngine) ListInstances(ctx context.Context) ([]domain.Instance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list")
	var out []domain.Instance
	for _, inst := range f.instances {
		out = append(out, *inst)
	}
	return out, nil
}

func (f *fakeEngine) CreateInstance(ctx context.Context, spec domain.InstanceSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("create:%s", spec.Name)
	f.nextID++
	id := fmt.Sprintf("c%d", f.nextID)
	f.instances[id] = &domain.Instance{
		ID:     id,
		Name:   spec.Name,
		Image:  spec.Image,
		State:  "created",
		TTY:    f.tty,
		Labels: spec.Labels,
	}
	f.specs = append(f.specs, spec)
	return id, nil
}

func (f *fakeEngine) StartInstance(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start:%s", id)
	if f.startErr != nil {
		return f.startErr
	}
	inst := f.instances[id]
	inst.Running = true
	inst.State = "running"
	inst.StartedAt = time.Now().Add(-time.Minute)
	return nil
}

func (f *fakeEngine) StopInstance(ctx context.Context, id string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stop:%s", id)
	inst := f.instances[id]
	inst.Running = false
	inst.State = "exited"
	return nil
}

func (f *fakeEngine) RemoveInstance(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("remove:%s", id)
	delete(f.instances, id)
	return nil
}

func (f *fakeEngine) InstanceStats(ctx context.Context, id string) (domain.StatsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stats:%s", id)
	return f.stats, nil
}

func (f *fakeEngine) InstanceLogs(ctx context.Context, id string, tail int) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("logs:%s:%d", id, tail)
	return io.NopCloser(strings.NewReader(f.logs)), nil
}

// addInstance seeds an existing instance.
func (f *fakeEngine) addInstance(id, name string, running bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := "exited"
	if running {
		state = "running"
	}
	f.instances[id] = &domain.Instance{ID: id, Name: name, State: state, Running: running, TTY: f.tty}
}

type fakePaths struct {
	root string
	err  error
}

func (p fakePaths) Resolve(id string) (string, error) {
	return filepath.Join(p.root, id), nil
}

func (p fakePaths) Ensure(id string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return filepath.Join(p.root, id), nil
}

type fakeBuilder struct {
	built []string
	err   error
}

func (b *fakeBuilder) BuildImage(ctx context.Context, src domain.ImageSource, imageName string) error {
	b.built = append(b.built, src.Repository+"->"+imageName)
	return b.err
}
