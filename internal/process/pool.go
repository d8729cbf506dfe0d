package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Pool errors. Returned errors wrap these, check with errors.Is.
var (
	ErrNotFound    = errors.New("process not found")
	ErrExists      = errors.New("process already exists")
	ErrActiveLimit = errors.New("active process limit reached")
	ErrNotActive   = errors.New("process is not active")
	ErrSpawn       = errors.New("process failed to start")
	ErrClosed      = errors.New("pool is shut down")
	ErrStopTimeout = errors.New("process did not exit after stop")
)

// Pool manages named processes with lifecycle control.
type Pool interface {
	// Start spawns argv under id and returns once the spawn succeeded or failed.
	Start(id string, args []string) error

	// Stop gracefully stops an active process and waits for it to exit.
	// It returns ErrStopTimeout when the process outlives both timeouts.
	Stop(id string) (*StopResult, error)

	// GetStatus returns process info, or nil if id is unknown.
	GetStatus(id string) *Info

	// IsActive reports whether id is pending, running or stopping.
	IsActive(id string) bool

	// Active returns every non-terminal process, oldest first.
	Active() []*Info

	// List returns every tracked process, newest first.
	List() []*Info

	// StopAll gracefully stops all active processes. The pool refuses new
	// starts afterwards.
	StopAll()
}

// managedProcess tracks a process within the pool.
type managedProcess struct {
	proc      *Process
	id        string
	args      []string
	state     State
	startedAt time.Time
	endedAt   time.Time
	exitCode  int
	stop      *StopResult
	lastError error
	done      chan struct{}
}

func (mp *managedProcess) info() *Info {
	info := &Info{
		ID:        mp.id,
		State:     mp.state,
		Args:      slices.Clone(mp.args),
		PID:       mp.proc.PID(),
		StartedAt: mp.startedAt,
		EndedAt:   mp.endedAt,
		ExitCode:  mp.exitCode,
		LastError: mp.lastError,
	}
	if mp.stop != nil {
		res := *mp.stop
		info.Stop = &res
	}
	return info
}

// pool implements the Pool interface.
type pool struct {
	opts      PoolOptions
	processes map[string]*managedProcess
	order     []string // start order, oldest first
	mu        sync.RWMutex
	notifier  *notifier
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewPool creates a new process pool. opts may be nil.
func NewPool(opts *PoolOptions) Pool {
	var o PoolOptions
	if opts != nil {
		o = *opts
	}
	if o.HistorySize <= 0 {
		o.HistorySize = defaultHistorySize
	}
	if o.GracefulTimeout <= 0 {
		o.GracefulTimeout = defaultGracefulTimeout
	}
	if o.KillTimeout <= 0 {
		o.KillTimeout = defaultKillTimeout
	}

	logger := o.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &pool{
		opts:      o,
		processes: make(map[string]*managedProcess),
		notifier:  &notifier{fn: o.OnStateChange},
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start spawns a process and waits for the spawn outcome.
func (p *pool) Start(id string, args []string) error {
	p.mu.Lock()
	if p.ctx.Err() != nil {
		p.mu.Unlock()
		return fmt.Errorf("start %s: %w", id, ErrClosed)
	}
	if _, exists := p.processes[id]; exists {
		p.mu.Unlock()
		return fmt.Errorf("start %s: %w", id, ErrExists)
	}
	if p.opts.MaxActive > 0 && p.activeCountLocked() >= p.opts.MaxActive {
		p.mu.Unlock()
		return fmt.Errorf("start %s: %w (max %d)", id, ErrActiveLimit, p.opts.MaxActive)
	}

	mp := &managedProcess{
		id:        id,
		args:      slices.Clone(args),
		state:     StatePending,
		startedAt: time.Now(),
		done:      make(chan struct{}),
	}
	mp.proc = NewProcess(id, args, p.logger)
	mp.proc.SetTimeouts(p.opts.GracefulTimeout, p.opts.KillTimeout)
	if p.opts.ConfigureProcess != nil {
		p.opts.ConfigureProcess(id, mp.proc)
	}

	p.processes[id] = mp
	p.order = append(p.order, id)
	p.notifier.push(stateChange{id: id, newState: StatePending})

	spawned := make(chan error, 1)
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer close(mp.done)
		p.runProcess(mp, spawned)
	}()

	return <-spawned
}

// activeCountLocked counts non-terminal processes (must hold lock).
func (p *pool) activeCountLocked() int {
	n := 0
	for _, mp := range p.processes {
		if mp.state.IsActive() {
			n++
		}
	}
	return n
}

// runProcess runs the process and handles state transitions.
func (p *pool) runProcess(mp *managedProcess, spawned chan<- error) {
	exitCh := make(chan int, 1)
	go func() {
		exitCh <- mp.proc.Run()
	}()

	if err := <-mp.proc.Started(); err != nil {
		<-exitCh
		p.mu.Lock()
		mp.endedAt = time.Now()
		mp.exitCode = 1
		mp.lastError = err
		p.transitionLocked(mp, StateFailed, err)
		p.mu.Unlock()
		spawned <- fmt.Errorf("%w: %w", ErrSpawn, err)
		p.pruneHistory()
		return
	}

	p.mu.Lock()
	if mp.state == StatePending {
		p.transitionLocked(mp, StateRunning, nil)
	}
	p.mu.Unlock()
	spawned <- nil

	exitCode := <-exitCh

	p.mu.Lock()
	mp.endedAt = time.Now()
	mp.exitCode = exitCode
	mp.stop = mp.proc.StopResult()
	var newState State
	switch {
	case mp.state == StateStopping || mp.stop != nil:
		newState = StateStopped
	case exitCode != 0:
		newState = StateFailed
		mp.lastError = fmt.Errorf("process exited with code %d", exitCode)
		p.logger.Error("Process crashed", "id", mp.id, "exit_code", exitCode)
	default:
		newState = StateStopped
	}
	p.transitionLocked(mp, newState, mp.lastError)
	p.mu.Unlock()

	p.logger.Info("Process finished", "id", mp.id, "state", newState, "exit_code", exitCode)
	p.pruneHistory()
}

// transitionLocked changes state and queues the notification (must hold lock).
func (p *pool) transitionLocked(mp *managedProcess, newState State, err error) {
	oldState := mp.state
	if oldState == newState {
		return
	}
	mp.state = newState
	p.notifier.push(stateChange{id: mp.id, oldState: oldState, newState: newState, err: err})
}

// Stop gracefully stops a process by ID.
func (p *pool) Stop(id string) (*StopResult, error) {
	p.mu.Lock()
	mp, exists := p.processes[id]
	if !exists {
		p.mu.Unlock()
		return nil, fmt.Errorf("stop %s: %w", id, ErrNotFound)
	}
	if !mp.state.IsActive() {
		p.mu.Unlock()
		return nil, fmt.Errorf("stop %s: %w", id, ErrNotActive)
	}
	p.transitionLocked(mp, StateStopping, nil)
	p.mu.Unlock()

	p.logger.Info("Stopping process", "id", id)
	mp.proc.Shutdown()

	select {
	case <-mp.done:
	case <-time.After(p.opts.GracefulTimeout + p.opts.KillTimeout + time.Second):
		p.logger.Warn("Timeout waiting for process to stop", "id", id)
		return nil, fmt.Errorf("stop %s: %w", id, ErrStopTimeout)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if mp.stop != nil {
		res := *mp.stop
		return &res, nil
	}
	// exited on its own while the stop was in flight
	return &StopResult{ExitCode: mp.exitCode}, nil
}

// GetStatus returns process info.
func (p *pool) GetStatus(id string) *Info {
	p.mu.RLock()
	defer p.mu.RUnlock()

	mp, exists := p.processes[id]
	if !exists {
		return nil
	}
	return mp.info()
}

// IsActive checks if a process occupies an active slot.
func (p *pool) IsActive(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	mp, exists := p.processes[id]
	return exists && mp.state.IsActive()
}

// Active returns all non-terminal processes, oldest first.
func (p *pool) Active() []*Info {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var infos []*Info
	for _, id := range p.order {
		if mp := p.processes[id]; mp.state.IsActive() {
			infos = append(infos, mp.info())
		}
	}
	return infos
}

// List returns all tracked processes, newest first.
func (p *pool) List() []*Info {
	p.mu.RLock()
	defer p.mu.RUnlock()

	infos := make([]*Info, 0, len(p.order))
	for i := len(p.order) - 1; i >= 0; i-- {
		infos = append(infos, p.processes[p.order[i]].info())
	}
	return infos
}

// pruneHistory evicts the oldest terminal entries beyond HistorySize.
func (p *pool) pruneHistory() {
	p.mu.Lock()
	defer p.mu.Unlock()

	terminal := 0
	for _, id := range p.order {
		if p.processes[id].state.IsTerminal() {
			terminal++
		}
	}
	excess := terminal - p.opts.HistorySize
	if excess <= 0 {
		return
	}

	kept := make([]string, 0, len(p.order)-excess)
	for _, id := range p.order {
		if excess > 0 && p.processes[id].state.IsTerminal() {
			delete(p.processes, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	p.order = kept
}

// StopAll gracefully stops all active processes.
func (p *pool) StopAll() {
	p.logger.Info("Stopping all processes")
	p.mu.Lock()
	p.cancel()
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, info := range p.Active() {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := p.Stop(id); err != nil && !errors.Is(err, ErrNotActive) {
				p.logger.Warn("Failed to stop process", "id", id, "error", err)
			}
		}(info.ID)
	}
	wg.Wait()

	p.wg.Wait()
	p.notifier.wait()
	p.logger.Info("All processes stopped")
}
