package cloth

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Runner owns the simulation thread: a single goroutine that drives the
// mesh step loop at a configured cadence. Consumers may optionally pace
// themselves against completed frames via WaitFrame; the simulation never
// blocks waiting on a consumer.
type Runner struct {
	mesh  *Mesh
	delay time.Duration

	paused atomic.Bool

	mu    sync.Mutex
	cond  *sync.Cond
	frame uint64

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewRunner creates a runner for the given mesh. The step cadence comes
// from the mesh's physics configuration.
func NewRunner(mesh *Mesh) *Runner {
	delay := time.Duration(mesh.cfg.Physics.FrameDelayMillis) * time.Millisecond
	if delay <= 0 {
		delay = time.Millisecond
	}
	r := &Runner{
		mesh:  mesh,
		delay: delay,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Start launches the simulation goroutine.
func (r *Runner) Start() {
	go r.loop()
}

func (r *Runner) loop() {
	// Wake any consumer parked in WaitFrame on every exit path, not just
	// an explicit Stop; a step error must not strand waiters.
	defer func() {
		r.mu.Lock()
		close(r.done)
		r.mu.Unlock()
		r.cond.Broadcast()
	}()
	ticker := time.NewTicker(r.delay)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
		}
		if r.paused.Load() {
			continue
		}
		if err := r.mesh.Step(); err != nil {
			// Lock timeouts and phase failures leave the mesh in an
			// unknown state; stop the subsystem instead of stepping on.
			slog.Error("simulation step failed, stopping", "error", err)
			return
		}
		r.publishFrame()
	}
}

func (r *Runner) publishFrame() {
	r.mu.Lock()
	r.frame++
	r.mu.Unlock()
	r.cond.Broadcast()
}

// Frame returns the number of completed steps.
func (r *Runner) Frame() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frame
}

// WaitFrame blocks until a frame newer than last has completed or the
// runner stopped, and returns the current frame counter. Cooperative
// pacing for consumers; never required for correctness.
func (r *Runner) WaitFrame(last uint64) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.frame <= last {
		select {
		case <-r.done:
			return r.frame
		default:
		}
		r.cond.Wait()
	}
	return r.frame
}

// SetPaused pauses or resumes stepping.
func (r *Runner) SetPaused(paused bool) { r.paused.Store(paused) }

// Paused reports whether stepping is paused.
func (r *Runner) Paused() bool { return r.paused.Load() }

// StepOnce performs a single step while paused.
func (r *Runner) StepOnce() error {
	if err := r.mesh.Step(); err != nil {
		return err
	}
	r.publishFrame()
	return nil
}

// Stop halts the simulation goroutine, waits for the in-flight step to
// finish and drains the mesh's worker pool.
func (r *Runner) Stop() error {
	r.once.Do(func() { close(r.stop) })
	<-r.done
	r.cond.Broadcast()
	return r.mesh.Close()
}
