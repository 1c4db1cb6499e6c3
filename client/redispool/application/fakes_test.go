package application

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"kvpool/client/redispool/domain"
)

type fakeCmd struct{ name string }

func (c fakeCmd) Name() string { return c.name }
func (c fakeCmd) Args() []any  { return []any{c.name} }

// fakeConn devolve os erros de script em ordem; depois disso, sucesso.
type fakeConn struct {
	id int

	mu     sync.Mutex
	script []error
	calls  int
	closed bool

	active  atomic.Int32
	overlap *atomic.Bool
	hold    time.Duration

	started     chan struct{}
	startedOnce sync.Once
	block       chan struct{}
}

func (c *fakeConn) Exec(ctx context.Context, _ domain.Command) error {
	if c.active.Add(1) > 1 && c.overlap != nil {
		c.overlap.Store(true)
	}
	defer c.active.Add(-1)

	if c.started != nil {
		c.startedOnce.Do(func() { close(c.started) })
	}
	if c.block != nil {
		<-c.block
	}
	if c.hold > 0 {
		time.Sleep(c.hold)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.closed {
		return domain.AsNetwork("exec", net.ErrClosed)
	}
	if len(c.script) == 0 {
		return nil
	}
	err := c.script[0]
	c.script = c.script[1:]
	return err
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *fakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// fakeFactory: errs é consumido por Open (nil = sucesso); scripts define o
// comportamento de cada conexão nova, em ordem.
type fakeFactory struct {
	mu      sync.Mutex
	opens   int
	errs    []error
	scripts [][]error
	conns   []*fakeConn
}

func (f *fakeFactory) Open(ctx context.Context) (domain.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	c := &fakeConn{id: 100 + f.opens}
	if len(f.scripts) > 0 {
		c.script = f.scripts[0]
		f.scripts = f.scripts[1:]
	}
	f.conns = append(f.conns, c)
	return c, nil
}

func (f *fakeFactory) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens
}

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func (r *sleepRecorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

type chanLock struct{ sem chan struct{} }

func newChanLock() domain.SlotLock { return &chanLock{sem: make(chan struct{}, 1)} }

func (l *chanLock) Acquire(ctx context.Context) (func(), bool) {
	select {
	case l.sem <- struct{}{}:
		return func() { <-l.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

type recordingStats struct {
	mu    sync.Mutex
	kinds []domain.EventKind
}

func (s *recordingStats) Record(_ context.Context, ev domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kinds = append(s.kinds, ev.Kind)
	return nil
}

func (s *recordingStats) Kinds() []domain.EventKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.EventKind(nil), s.kinds...)
}

type countingGate struct {
	calls atomic.Int32
	err   error
}

func (g *countingGate) Wait(ctx context.Context) error {
	g.calls.Add(1)
	return g.err
}
