// Package core drives one analysis job from submission to its results.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pfamflow/pfam-int/internal/alert"
	"github.com/pfamflow/pfam-int/internal/api"
	"github.com/pfamflow/pfam-int/internal/constants"
	"github.com/pfamflow/pfam-int/internal/events"
	"github.com/pfamflow/pfam-int/internal/logging"
	"github.com/pfamflow/pfam-int/internal/models"
	"github.com/pfamflow/pfam-int/internal/progress"
	"github.com/pfamflow/pfam-int/internal/schedule"
)

// User-facing texts of the controller.
const (
	StartErrorMessage    = "Error starting analysis. Please try again."
	FailedAlertPrefix    = "Analysis failed: "
	StartLabel           = "Start Analysis"
	StartingLabel        = "Starting..."
	timeoutMessageFormat = "Analysis timed out after %s"
)

// ErrSessionActive is returned by Submit when a job is already being tracked.
var ErrSessionActive = errors.New("an analysis session is already active")

// JobService is the server side of a job.
type JobService interface {
	Start(ctx context.Context) (*models.StartResponse, error)
	Status(ctx context.Context) (*models.JobSnapshot, error)
}

// RenderSink receives everything the user should see.
type RenderSink interface {
	ShowProgress()
	RenderProgress(v progress.View)
	RenderSuccess()
	RenderFailure(msg string)
	CloseProgress()
	ShowAlert(kind alert.Kind, msg string)
}

// Affordance is the control that starts an analysis.
type Affordance interface {
	Disable()
	Enable()
	SetLabel(label string)
}

// Navigator presents the results of a finished job.
type Navigator interface {
	ShowResults()
}

// SessionState is the lifecycle position of the current job.
type SessionState int

const (
	Idle SessionState = iota
	Submitting
	Polling
	Succeeded
	Failed
)

func (s SessionState) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Submitting:
		return "Submitting"
	case Polling:
		return "Polling"
	case Succeeded:
		return "Succeeded"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// JobSession describes the job currently tracked by a Controller.
type JobSession struct {
	ID        string
	State     SessionState
	StartedAt time.Time
}

// Options tunes a Controller. Zero durations take the package defaults.
type Options struct {
	PollInterval    time.Duration
	SuccessDelay    time.Duration
	FailureDelay    time.Duration
	MaxPollDuration time.Duration // zero polls until the server reports an end state

	Scheduler schedule.Scheduler
	Logger    *logging.Logger
	Events    *events.EventBus
}

// Controller is the submit and poll state machine:
//
//	Idle → Submitting → Polling → {Succeeded | Failed} → Idle
//
// All transitions run to completion under mu. Network calls run outside the
// lock and their results are dropped if the session changed meanwhile.
// The poll task is armed exactly while the state is Polling.
type Controller struct {
	svc     JobService
	sink    RenderSink
	trigger Affordance
	nav     Navigator

	pollInterval    time.Duration
	successDelay    time.Duration
	failureDelay    time.Duration
	maxPollDuration time.Duration

	sched  schedule.Scheduler
	logger *logging.Logger
	bus    *events.EventBus

	mu            sync.Mutex
	state         SessionState
	session       JobSession
	gen           uint64
	sessionCtx    context.Context
	cancelSession context.CancelFunc
	pollTask      schedule.Task
	finalizeTask  schedule.Task
	timeoutTask   schedule.Task
	inFlight      bool
	cancelRequest context.CancelFunc
	surfaceOpen   bool
	settled       chan struct{}
}

// NewController wires a controller to its collaborators.
func NewController(svc JobService, sink RenderSink, trigger Affordance, nav Navigator, opts Options) *Controller {
	c := &Controller{
		svc:             svc,
		sink:            sink,
		trigger:         trigger,
		nav:             nav,
		pollInterval:    orDefault(opts.PollInterval, constants.PollInterval),
		successDelay:    orDefault(opts.SuccessDelay, constants.SuccessDelay),
		failureDelay:    orDefault(opts.FailureDelay, constants.FailureDelay),
		maxPollDuration: opts.MaxPollDuration,
		sched:           opts.Scheduler,
		logger:          opts.Logger,
		bus:             opts.Events,
		settled:         make(chan struct{}),
	}
	if c.sched == nil {
		c.sched = schedule.NewReal()
	}
	if c.logger == nil {
		c.logger = logging.NewNopLogger()
	}
	close(c.settled)
	return c
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

// State returns the current lifecycle state.
func (c *Controller) State() SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns a copy of the current session.
func (c *Controller) Session() JobSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	s.State = c.state
	return s
}

// Done returns a channel that is closed once the controller is back to Idle.
// It is already closed while idle.
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settled
}

// Wait blocks until the current session settles or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	select {
	case <-c.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit asks the server to start an analysis and, once accepted, begins
// polling for progress. It blocks only for the start request. Cancelling ctx
// ends the session as if Cancel had been called.
//
// A transport failure or a rejection returns the controller to Idle with an
// alert and is also returned to the caller.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrSessionActive
	}

	c.gen++
	gen := c.gen
	c.session = JobSession{ID: uuid.NewString(), StartedAt: time.Now()}
	c.sessionCtx, c.cancelSession = context.WithCancel(ctx)
	c.settled = make(chan struct{})
	sessionCtx := c.sessionCtx

	c.trigger.Disable()
	c.trigger.SetLabel(StartingLabel)
	c.setStateLocked(Submitting)
	c.mu.Unlock()

	resp, err := c.svc.Start(sessionCtx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != Submitting {
		c.logger.Debug().Str("session", c.session.ID).Msg("Dropping start response for cancelled session")
		return context.Canceled
	}

	if err != nil {
		if sessionCtx.Err() != nil {
			c.cancelLocked()
			return sessionCtx.Err()
		}
		c.logger.Warn().Err(err).Str("session", c.session.ID).Msg("Failed to start analysis")
		c.showAlertLocked(alert.KindDanger, StartErrorMessage)
		c.resetLocked()
		c.toIdleLocked()
		return fmt.Errorf("failed to start analysis: %w", err)
	}

	if resp.Rejected() {
		c.logger.Warn().Str("session", c.session.ID).Str("reason", resp.Error).Msg("Analysis rejected")
		c.showAlertLocked(alert.KindDanger, resp.Error)
		c.resetLocked()
		c.toIdleLocked()
		return api.RejectionError(resp)
	}

	c.logger.Info().Str("session", c.session.ID).Str("message", resp.Message).Msg("Analysis started")
	c.setStateLocked(Polling)
	c.surfaceOpen = true
	c.sink.ShowProgress()
	if c.bus != nil {
		c.bus.PublishSurface(true)
	}
	c.renderLocked(progress.InitialView())
	if c.maxPollDuration > 0 {
		c.timeoutTask = c.sched.AfterFunc(c.maxPollDuration, func() { c.timeout(gen) })
	}
	c.pollTask = c.sched.Every(c.pollInterval, func() { c.tick(gen) })
	return nil
}

// tick issues one status request. A tick that fires while the previous
// request is outstanding does nothing.
func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != Polling || c.inFlight {
		c.mu.Unlock()
		return
	}
	c.inFlight = true
	reqCtx, cancel := context.WithTimeout(c.sessionCtx, constants.StatusRequestTimeout)
	c.cancelRequest = cancel
	sessionCtx := c.sessionCtx
	c.mu.Unlock()

	snap, err := c.svc.Status(reqCtx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != Polling {
		return
	}
	c.inFlight = false
	c.cancelRequest = nil

	if err != nil {
		if sessionCtx.Err() != nil {
			c.cancelLocked()
			return
		}
		c.logger.Warn().Err(err).Str("session", c.session.ID).Msg("Status request failed")
		c.failLocked(progress.ConnectionError)
		return
	}

	view := progress.Render(*snap)
	c.logger.Debug().
		Str("session", c.session.ID).
		Int("progress", view.Percent).
		Str("step", string(snap.CurrentStep)).
		Bool("running", snap.Running).
		Msg("Status")
	c.renderLocked(view)

	if !snap.Terminal() {
		return
	}
	if snap.Failed() {
		c.failLocked(snap.ErrorText())
		return
	}
	c.succeedLocked()
}

func (c *Controller) timeout(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != Polling {
		return
	}
	c.timeoutTask = nil
	if c.cancelRequest != nil {
		c.cancelRequest()
		c.cancelRequest = nil
	}
	c.inFlight = false
	c.failLocked(fmt.Sprintf(timeoutMessageFormat, c.maxPollDuration))
}

// Cancel abandons the current session from any state. It never raises an
// alert, and calling it repeatedly is harmless.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Controller) cancelLocked() {
	was := c.state
	c.gen++
	c.stopTasksLocked()
	if c.cancelRequest != nil {
		c.cancelRequest()
		c.cancelRequest = nil
	}
	c.inFlight = false
	c.closeSurfaceLocked()
	if was != Idle {
		c.logger.Info().Str("session", c.session.ID).Str("state", was.String()).Msg("Analysis cancelled")
	}
	c.resetLocked()
	c.toIdleLocked()
}

func (c *Controller) succeedLocked() {
	c.stopTasksLocked()
	c.setStateLocked(Succeeded)
	c.sink.RenderSuccess()
	c.resetLocked()
	c.publishComplete(true, progress.SuccessMessage)

	gen := c.gen
	c.finalizeTask = c.sched.AfterFunc(c.successDelay, func() {
		c.finalize(gen, Succeeded, func() {
			c.closeSurfaceLocked()
			c.nav.ShowResults()
		})
	})
}

func (c *Controller) failLocked(msg string) {
	c.stopTasksLocked()
	c.setStateLocked(Failed)
	c.sink.RenderFailure(msg)
	c.resetLocked()
	c.publishComplete(false, msg)

	gen := c.gen
	c.finalizeTask = c.sched.AfterFunc(c.failureDelay, func() {
		c.finalize(gen, Failed, func() {
			c.closeSurfaceLocked()
			c.showAlertLocked(alert.KindDanger, FailedAlertPrefix+msg)
		})
	})
}

// finalize runs the delayed end of a terminal state and returns to Idle.
func (c *Controller) finalize(gen uint64, from SessionState, action func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.state != from {
		return
	}
	c.finalizeTask = nil
	action()
	c.toIdleLocked()
}

func (c *Controller) toIdleLocked() {
	if c.cancelSession != nil {
		c.cancelSession()
		c.cancelSession = nil
	}
	c.setStateLocked(Idle)
	select {
	case <-c.settled:
	default:
		close(c.settled)
	}
}

// resetLocked re-enables the start control.
func (c *Controller) resetLocked() {
	c.trigger.Enable()
	c.trigger.SetLabel(StartLabel)
}

// stopTasksLocked disarms every pending task. Stopping a nil or already
// stopped task is a no-op.
func (c *Controller) stopTasksLocked() {
	for _, t := range []*schedule.Task{&c.pollTask, &c.finalizeTask, &c.timeoutTask} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

func (c *Controller) closeSurfaceLocked() {
	if c.surfaceOpen {
		c.sink.CloseProgress()
		c.surfaceOpen = false
		if c.bus != nil {
			c.bus.PublishSurface(false)
		}
	}
}

func (c *Controller) renderLocked(v progress.View) {
	c.sink.RenderProgress(v)
	if c.bus != nil {
		c.bus.PublishProgress(c.session.ID, v.Percent, v.Label, v.Message)
	}
}

func (c *Controller) showAlertLocked(kind alert.Kind, msg string) {
	c.sink.ShowAlert(kind, msg)
	if c.bus != nil {
		c.bus.PublishAlert(string(kind), msg)
	}
}

func (c *Controller) setStateLocked(s SessionState) {
	old := c.state
	c.state = s
	if old == s {
		return
	}
	c.logger.Debug().Str("session", c.session.ID).Str("from", old.String()).Str("state", s.String()).Msg("Session state changed")
	if c.bus != nil {
		c.bus.PublishStateChange(c.session.ID, old.String(), s.String())
	}
}

func (c *Controller) publishComplete(success bool, msg string) {
	if c.bus != nil {
		c.bus.PublishComplete(c.session.ID, success, msg, time.Since(c.session.StartedAt))
	}
}
