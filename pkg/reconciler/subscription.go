package reconciler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/cenkalti/backoff/v5"

	"github.com/Farcas-Consult/rams-sub000/pkg/metrics"
)

var ErrAlreadyStarted = errors.New("subscription already started")

// Config tunes a Subscription
type Config struct {
	// PollInterval is the pull period while the push channel is connected
	PollInterval time.Duration
	// DisconnectedPollInterval is the pull period without a push channel
	DisconnectedPollInterval time.Duration
	// NewBackOff builds the reconnect schedule. Defaults to ReconnectSchedule.
	NewBackOff func() backoff.BackOff
	Store      Options

	// OnUpdate is called after every change to the view
	OnUpdate func()
	Now      func() time.Time
}

func DefaultConfig() Config {
	return Config{
		PollInterval:             30 * time.Second,
		DisconnectedPollInterval: 10 * time.Second,
		NewBackOff:               func() backoff.BackOff { return NewStepBackOff() },
		Store:                    DefaultOptions(),
		Now:                      time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.DisconnectedPollInterval <= 0 {
		c.DisconnectedPollInterval = d.DisconnectedPollInterval
	}
	if c.NewBackOff == nil {
		c.NewBackOff = d.NewBackOff
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

// Subscription keeps a Store fed from a puller and an optional push source.
// Without a push source it runs pull-only.
type Subscription struct {
	puller Puller
	source PushSource
	store  *Store
	logger ectologger.Logger
	config Config

	connected atomic.Bool
	// dropped is signalled when the push channel goes down
	dropped chan struct{}

	mu       sync.Mutex
	cancel   context.CancelFunc
	stream   PushStream
	stopping bool
	wg       sync.WaitGroup
}

func NewSubscription(puller Puller, source PushSource, logger ectologger.Logger, config Config) *Subscription {
	config = config.withDefaults()
	return &Subscription{
		puller: puller,
		source: source,
		store:   NewStore(config.Store),
		logger:  logger,
		config:  config,
		dropped: make(chan struct{}, 1),
	}
}

func (s *Subscription) Store() *Store {
	return s.store
}

// Connected reports whether the push channel is currently up
func (s *Subscription) Connected() bool {
	return s.connected.Load()
}

// Start launches the pull loop and, with a push source, the push loop. A
// subscription can be started once.
func (s *Subscription) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel != nil || s.stopping {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.pullLoop(ctx)

	if s.source != nil {
		s.wg.Add(1)
		go s.pushLoop(ctx)
	}
	return nil
}

// Stop cancels both loops, closes the open push connection and waits for the
// loops to exit. Nothing reconnects after Stop returns.
func (s *Subscription) Stop() {
	s.mu.Lock()
	s.stopping = true
	cancel := s.cancel
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if stream != nil {
		if err := stream.Close(); err != nil {
			s.logger.WithError(err).Debug("Error closing push stream")
		}
	}
	s.wg.Wait()
	s.connected.Store(false)
}

func (s *Subscription) pullLoop(ctx context.Context) {
	defer s.wg.Done()

	for {
		s.pull(ctx)

		interval := s.config.DisconnectedPollInterval
		if s.Connected() {
			interval = s.config.PollInterval
		}
		if !s.idle(ctx, interval) {
			return
		}
	}
}

// idle waits for the next pull. A dropped push channel cuts the wait short
// since notifications may have been missed.
func (s *Subscription) idle(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-s.dropped:
		return true
	case <-timer.C:
		return true
	}
}

func (s *Subscription) pull(ctx context.Context) {
	rows, err := s.puller.Pull(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.WithContext(ctx).WithError(err).Warn("Live view pull failed")
		}
		return
	}
	s.store.ApplyPull(rows, s.config.Now())
	s.notify()
}

func (s *Subscription) pushLoop(ctx context.Context) {
	defer s.wg.Done()

	b := s.config.NewBackOff()
	for {
		if ctx.Err() != nil {
			return
		}

		stream, err := s.source.Connect(ctx)
		metrics.RecordReconnect(err)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if !s.wait(ctx, b, err) {
				return
			}
			continue
		}

		if !s.attach(stream) {
			_ = stream.Close()
			return
		}
		s.connected.Store(true)
		s.logger.WithContext(ctx).Info("Push channel connected")

		err = s.consume(ctx, stream, b)

		s.connected.Store(false)
		s.signalDropped()
		s.detach(stream)
		if ctx.Err() != nil {
			return
		}
		if !s.wait(ctx, b, err) {
			return
		}
	}
}

// wait sleeps for the next backoff step and reports whether to try again
func (s *Subscription) wait(ctx context.Context, b backoff.BackOff, cause error) bool {
	delay := b.NextBackOff()
	if delay == backoff.Stop {
		s.logger.WithContext(ctx).WithError(cause).Error("Push channel retries exhausted, continuing pull-only")
		return false
	}
	s.logger.WithContext(ctx).WithError(cause).Warnf("Push channel unavailable, reconnecting in %s", delay)
	return sleep(ctx, delay)
}

// consume applies notifications until the stream fails. The reconnect
// schedule restarts only once the stream has delivered something, so a
// channel that accepts connections and drops them straight away keeps
// backing off.
func (s *Subscription) consume(ctx context.Context, stream PushStream, b backoff.BackOff) error {
	delivered := false
	for {
		data, err := stream.Next(ctx)
		if err != nil {
			return err
		}
		if !delivered {
			delivered = true
			b.Reset()
		}

		n, err := DecodeNotification(data)
		if err != nil {
			metrics.ReconcilerDroppedTotal.WithLabelValues("invalid").Inc()
			s.logger.WithContext(ctx).WithError(err).Warn("Dropping malformed push notification")
			continue
		}

		if s.store.ApplyPush(n, s.config.Now()) {
			s.notify()
		}
	}
}

// attach records the open stream so Stop can close it. It fails once Stop
// has begun.
func (s *Subscription) attach(stream PushStream) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.stream = stream
	return true
}

// detach closes stream unless Stop already took ownership of it
func (s *Subscription) detach(stream PushStream) {
	s.mu.Lock()
	owned := s.stream == stream
	if owned {
		s.stream = nil
	}
	s.mu.Unlock()

	if owned {
		_ = stream.Close()
	}
}

func (s *Subscription) signalDropped() {
	select {
	case s.dropped <- struct{}{}:
	default:
	}
}

func (s *Subscription) notify() {
	if s.config.OnUpdate != nil {
		s.config.OnUpdate()
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
