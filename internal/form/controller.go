package form

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abzagency/signup-api/internal/models"
	"github.com/abzagency/signup-api/internal/validation"
	"github.com/abzagency/signup-api/pkg/abzapi"
	"github.com/abzagency/signup-api/pkg/logger"
	"github.com/abzagency/signup-api/pkg/metrics"
	"go.uber.org/zap"
)

// DefaultSessionEndDelay is how long the success view stays before the
// session ends
const DefaultSessionEndDelay = 3 * time.Second

// ErrUnmounted is returned by calls made after Unmount
var ErrUnmounted = errors.New("form controller unmounted")

// UserAPI is the remote side of the form
type UserAPI interface {
	GetToken(ctx context.Context) (string, error)
	GetPositions(ctx context.Context) ([]models.Position, error)
	CreateUser(ctx context.Context, token string, record models.FormRecord) (*abzapi.CreateUserResponse, error)
}

// Options configures a Controller
type Options struct {
	// SessionEndDelay defaults to DefaultSessionEndDelay
	SessionEndDelay time.Duration

	// OnUserAdded is called once per successful submit whose response carried
	// a complete user
	OnUserAdded func(models.User)

	// OnSessionEnd is called after the form leaves the success view
	OnSessionEnd func()
}

type envelope struct {
	event Event
	reply chan State

	// waitSubmit keeps reply pending until an in-flight submit resolves
	waitSubmit bool
}

// Controller runs one form. Events are applied one at a time on a single
// goroutine; effects that block (network calls, image decoding) run on their
// own goroutines and report back through events.
type Controller struct {
	api     UserAPI
	rules   *validation.Engine
	reducer Reducer
	opts    Options

	events  chan envelope
	current atomic.Pointer[State]

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	mounted chan struct{}

	mountOnce   sync.Once
	unmountOnce sync.Once

	// owned by the loop goroutine
	state          State
	submitWaiters  []chan State
	sessionEndTime *time.Timer
}

// NewController creates an unmounted controller
func NewController(api UserAPI, rules *validation.Engine, opts Options) *Controller {
	if opts.SessionEndDelay <= 0 {
		opts.SessionEndDelay = DefaultSessionEndDelay
	}

	c := &Controller{
		api:     api,
		rules:   rules,
		reducer: NewReducer(rules),
		opts:    opts,
		events:  make(chan envelope, 16),
		done:    make(chan struct{}),
		mounted: make(chan struct{}),
		state:   NewState(),
	}
	initial := c.state
	c.current.Store(&initial)
	return c
}

// Mount starts the event loop and fetches the token and positions
// concurrently. It returns immediately; Mounted is closed once both fetches
// have resolved. ctx bounds the controller's lifetime.
func (c *Controller) Mount(ctx context.Context) {
	c.mountOnce.Do(func() {
		c.ctx, c.cancel = context.WithCancel(ctx)
		go c.run()

		go func() {
			c.fetchSessionData()
			close(c.mounted)
		}()
	})
}

// Mounted is closed when the fetches started by Mount have been applied
func (c *Controller) Mounted() <-chan struct{} {
	return c.mounted
}

// Unmount stops the loop and any pending session-end timer. Results of
// calls still in flight are discarded.
func (c *Controller) Unmount() {
	c.unmountOnce.Do(func() {
		// a later Mount must not start the loop
		c.mountOnce.Do(func() {})
		if c.cancel == nil {
			close(c.done)
			return
		}
		c.cancel()
		<-c.done
	})
}

// Snapshot returns the latest state. The maps inside must not be modified.
func (c *Controller) Snapshot() State {
	return *c.current.Load()
}

// Dispatch queues ev without waiting for it to be applied. It is a no-op
// after Unmount.
func (c *Controller) Dispatch(ev Event) {
	if c.ctx == nil {
		return
	}
	select {
	case c.events <- envelope{event: ev}:
	case <-c.ctx.Done():
	}
}

// Apply queues ev and returns the state right after it was applied
func (c *Controller) Apply(ctx context.Context, ev Event) (State, error) {
	return c.send(ctx, envelope{event: ev, reply: make(chan State, 1)})
}

// Submit runs the submit action and waits for the attempt to resolve. When
// validation fails, or the form is not Idle, it returns at once with the
// resulting state.
func (c *Controller) Submit(ctx context.Context) (State, error) {
	return c.send(ctx, envelope{event: SubmitRequested{}, reply: make(chan State, 1), waitSubmit: true})
}

func (c *Controller) send(ctx context.Context, env envelope) (State, error) {
	if c.ctx == nil {
		return State{}, ErrUnmounted
	}

	select {
	case c.events <- env:
	case <-c.ctx.Done():
		return State{}, ErrUnmounted
	case <-ctx.Done():
		return State{}, ctx.Err()
	}

	select {
	case s, ok := <-env.reply:
		if !ok {
			return State{}, ErrUnmounted
		}
		return s, nil
	case <-c.ctx.Done():
		return State{}, ErrUnmounted
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (c *Controller) run() {
	defer close(c.done)
	defer c.shutdown()

	for {
		select {
		case <-c.ctx.Done():
			return
		case env := <-c.events:
			c.handle(env)
		}
	}
}

func (c *Controller) handle(env envelope) {
	prev := c.state
	c.apply(env.event)
	next := c.state

	if _, ok := env.event.(SubmitRequested); ok {
		observeSubmitRequest(prev, next)
	}

	if env.reply == nil {
		return
	}
	if env.waitSubmit && next.Phase == PhaseSubmitting {
		c.submitWaiters = append(c.submitWaiters, env.reply)
		return
	}
	env.reply <- next
}

// apply reduces ev and runs the resulting effects. Effects that complete
// synchronously are applied before apply returns.
func (c *Controller) apply(ev Event) {
	prev := c.state
	next, effects := c.reducer.Reduce(c.state, ev)
	c.state = next
	c.current.Store(&next)

	for _, eff := range effects {
		c.perform(eff)
	}

	if prev.Phase == PhaseSubmitting && c.state.Phase != PhaseSubmitting {
		c.releaseSubmitWaiters()
	}
}

func (c *Controller) perform(eff Effect) {
	switch eff := eff.(type) {
	case CheckPhotoDimensions:
		go func() {
			msg := c.rules.CheckPhotoDimensions(eff.Photo)
			c.Dispatch(PhotoDimensionsChecked{Seq: eff.Seq, Message: msg})
		}()

	case SubmitUser:
		go c.submitUser(eff)

	case NotifyUserAdded:
		metrics.UsersAdded.WithLabelValues("true").Inc()
		if c.opts.OnUserAdded != nil {
			go c.opts.OnUserAdded(eff.User)
		}

	case ScheduleSessionEnd:
		if c.state.LastUser == nil || !c.state.LastUser.IsComplete() {
			metrics.UsersAdded.WithLabelValues("false").Inc()
		}
		if c.sessionEndTime != nil {
			c.sessionEndTime.Stop()
		}
		c.sessionEndTime = time.AfterFunc(c.opts.SessionEndDelay, func() {
			c.Dispatch(SessionEnded{})
		})

	case AcknowledgeFailure:
		c.apply(FailureAcknowledged{})

	case FetchSessionData:
		go c.fetchSessionData()

	case EndSession:
		c.sessionEndTime = nil
		if c.opts.OnSessionEnd != nil {
			go c.opts.OnSessionEnd()
		}
	}
}

func (c *Controller) submitUser(eff SubmitUser) {
	resp, err := c.api.CreateUser(c.ctx, eff.Token, eff.Record)
	if c.ctx.Err() != nil {
		return
	}

	outcome := InterpretSubmission(resp, err)
	metrics.FormSubmissions.WithLabelValues(string(outcome.Kind)).Inc()

	switch outcome.Kind {
	case OutcomeSucceeded:
		fields := []zap.Field{}
		if outcome.User != nil {
			fields = append(fields, zap.Int("user_id", outcome.User.ID))
		}
		logger.Info("Sign-up submitted", fields...)
	case OutcomeRejected:
		logger.Warn("Sign-up rejected by users API",
			zap.Int("status_code", outcome.StatusCode),
			zap.String("form_error", outcome.FormError))
	default:
		logger.Error("An error occurred while submitting the form", zap.Error(outcome.Err))
	}

	c.Dispatch(SubmitFinished{Outcome: outcome})
}

// fetchSessionData runs both fetches concurrently and returns once both
// results have been applied
func (c *Controller) fetchSessionData() {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		token, err := c.api.GetToken(c.ctx)
		if err != nil && c.ctx.Err() == nil {
			metrics.BackgroundFetchFailures.WithLabelValues("token").Inc()
			logger.Error("An error occurred while fetching token", zap.Error(err))
		}
		_, _ = c.Apply(c.ctx, TokenFetched{Token: token, Err: err})
	}()

	go func() {
		defer wg.Done()
		positions, err := c.api.GetPositions(c.ctx)
		if err != nil && c.ctx.Err() == nil {
			metrics.BackgroundFetchFailures.WithLabelValues("positions").Inc()
			logger.Error("An error occurred while fetching positions", zap.Error(err))
		}
		_, _ = c.Apply(c.ctx, PositionsFetched{Positions: positions, Err: err})
	}()

	wg.Wait()
}

func (c *Controller) releaseSubmitWaiters() {
	for _, w := range c.submitWaiters {
		w <- c.state
	}
	c.submitWaiters = nil
}

func (c *Controller) shutdown() {
	if c.sessionEndTime != nil {
		c.sessionEndTime.Stop()
	}
	for _, w := range c.submitWaiters {
		close(w)
	}
	c.submitWaiters = nil
}

func observeSubmitRequest(prev, next State) {
	if prev.Phase != PhaseIdle || next.Phase != PhaseIdle {
		return
	}
	for field, msg := range next.Errors {
		if msg != "" {
			metrics.FieldValidationFailures.WithLabelValues(string(field)).Inc()
		}
	}
	metrics.FormSubmissions.WithLabelValues("invalid").Inc()
}
