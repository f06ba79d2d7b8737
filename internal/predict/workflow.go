// Package predict runs one bid prediction at a time for a client surface, with
// simulated progress feedback and cooperative cancellation.
package predict

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/david/tender-scout/internal/ai"
	"github.com/david/tender-scout/internal/amount"
	"github.com/david/tender-scout/internal/models"
)

// Service is the external prediction backend.
type Service interface {
	Predict(ctx context.Context, req ai.PredictionRequest) (*ai.Prediction, error)
}

type Config struct {
	// TickInterval is the period of simulated progress updates.
	TickInterval time.Duration
	// MaxIncrement bounds a single progress step.
	MaxIncrement float64
	// Timeout bounds the backend call; zero means no limit beyond the client's own.
	Timeout time.Duration
	// SessionTTL is how long a Registry keeps a surface nobody has touched.
	SessionTTL time.Duration
	Rand       func() float64
	Now        func() time.Time
}

func DefaultConfig() Config {
	return Config{
		TickInterval: 300 * time.Millisecond,
		MaxIncrement: 15,
		SessionTTL:   30 * time.Minute,
		Rand:         rand.Float64,
		Now:          time.Now,
	}
}

// StartOptions override the prepared session right before submitting.
type StartOptions struct {
	BidText       *string
	BidAmount     *float64
	ContractStart *time.Time
	ContractEnd   *time.Time
}

// Workflow owns a single prediction session. All mutations happen under mu and
// every asynchronous callback carries the token of the session it was started for;
// a callback whose token is no longer current is dropped.
type Workflow struct {
	mu        sync.Mutex
	svc       Service
	cfg       Config
	token     uint64
	session   Snapshot
	stop      context.CancelFunc
	observers []func(Snapshot)
}

func NewWorkflow(svc Service, cfg Config) *Workflow {
	def := DefaultConfig()
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = def.TickInterval
	}
	if cfg.MaxIncrement <= 0 {
		cfg.MaxIncrement = def.MaxIncrement
	}
	if cfg.Rand == nil {
		cfg.Rand = def.Rand
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &Workflow{
		svc:     svc,
		cfg:     cfg,
		session: Snapshot{State: StateIdle},
	}
}

// Subscribe registers fn for every session change. Observers run synchronously
// while the workflow is locked and must not call back into it.
func (w *Workflow) Subscribe(fn func(Snapshot)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.observers = append(w.observers, fn)
}

// Snapshot returns a copy of the current session.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.clone()
}

// Open prepares a fresh Idle session for opp: the bid is seeded just under the
// budget and the contract window spans one year from today. Any running request
// is cancelled first.
func (w *Workflow) Open(opp models.Opportunity) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.abortLocked()

	today := truncateDay(w.cfg.Now())
	bid := amount.Round(opp.BudgetAmount * SuggestedBidRatio)
	w.session = Snapshot{
		State:         StateIdle,
		Opportunity:   &opp,
		BidAmount:     bid,
		BidText:       amount.Format(bid),
		ContractStart: models.NewDate(today),
		ContractEnd:   models.NewDate(today.AddDate(1, 0, 0)),
	}
	w.notifyLocked()
}

// SetBidText feeds raw user input into the bid amount field.
func (w *Workflow) SetBidText(text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session.State == StateRequesting {
		return ErrRequestInFlight
	}
	w.applyBidTextLocked(text)
	w.notifyLocked()
	return nil
}

// SetBidAmount sets the bid directly and re-renders its display text.
func (w *Workflow) SetBidAmount(v float64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session.State == StateRequesting {
		return ErrRequestInFlight
	}
	w.session.BidAmount = amount.Round(v)
	w.session.BidText = amount.Format(w.session.BidAmount)
	w.notifyLocked()
	return nil
}

// SetContractWindow sets the proposed contract dates.
func (w *Workflow) SetContractWindow(start, end time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session.State == StateRequesting {
		return ErrRequestInFlight
	}
	w.session.ContractStart = models.NewDate(start)
	w.session.ContractEnd = models.NewDate(end)
	w.notifyLocked()
	return nil
}

// Start submits the prepared session to the backend. An active request is
// cancelled first. Validation problems are returned as *ValidationError and do
// not move the session into Requesting.
func (w *Workflow) Start(ctx context.Context, opts StartOptions) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.session.State == StateRequesting {
		w.cancelLocked()
	}

	if opts.BidText != nil {
		w.applyBidTextLocked(*opts.BidText)
	} else if opts.BidAmount != nil {
		w.session.BidAmount = amount.Round(*opts.BidAmount)
		w.session.BidText = amount.Format(w.session.BidAmount)
	}
	if opts.ContractStart != nil {
		w.session.ContractStart = models.NewDate(*opts.ContractStart)
	}
	if opts.ContractEnd != nil {
		w.session.ContractEnd = models.NewDate(*opts.ContractEnd)
	}

	if w.session.Opportunity == nil {
		return &ValidationError{Field: "opportunity", Message: ErrNoOpportunity.Error()}
	}
	if w.session.BidAmount <= 0 {
		verr := &ValidationError{Field: "bid_amount", Message: "must be greater than zero"}
		w.session.Notice = "Enter a bid amount greater than zero."
		w.notifyLocked()
		return verr
	}

	var start, end time.Time
	if w.session.ContractStart != nil {
		start = w.session.ContractStart.Time
	}
	if w.session.ContractEnd != nil {
		end = w.session.ContractEnd.Time
	}
	days := ContractDays(start, end)

	w.token++
	token := w.token
	reqCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if w.cfg.Timeout > 0 {
		var timeoutCancel context.CancelFunc
		reqCtx, timeoutCancel = context.WithTimeout(reqCtx, w.cfg.Timeout)
		parent := cancel
		cancel = func() { timeoutCancel(); parent() }
	}
	w.stop = cancel

	w.session.State = StateRequesting
	w.session.ContractDays = days
	w.session.Progress = 0
	w.session.Message = msgStarting
	w.session.Result = nil
	w.session.Error = ""
	w.session.Notice = ""
	w.session.CostIncurred = false
	w.notifyLocked()

	req := ai.PredictionRequest{
		TenderData:           ai.NewTenderData(*w.session.Opportunity),
		BidAmount:            w.session.BidAmount,
		ContractDurationDays: days,
	}
	log.Printf("[predict] session %d started: tender=%s bid=%.2f days=%d",
		token, w.session.Opportunity.ExternalID, req.BidAmount, days)

	go w.tick(reqCtx, token)
	go w.call(reqCtx, token, req)
	return nil
}

// Cancel stops the running request. The backend response, if it still arrives,
// is discarded. It reports whether a request was running.
func (w *Workflow) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session.State != StateRequesting {
		return false
	}
	w.cancelLocked()
	w.notifyLocked()
	return true
}

// Reset releases the session entirely and returns to Idle.
func (w *Workflow) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.abortLocked()
	w.session = Snapshot{State: StateIdle}
	w.notifyLocked()
}

func (w *Workflow) tick(ctx context.Context, token uint64) {
	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.advance(token) {
				return
			}
		}
	}
}

// advance applies one progress step. It returns false once the session it was
// scheduled for is no longer the active request.
func (w *Workflow) advance(token uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if token != w.token || w.session.State != StateRequesting {
		return false
	}
	if w.session.Progress >= progressCeiling {
		return true
	}
	next := w.session.Progress + w.cfg.Rand()*w.cfg.MaxIncrement
	if next > progressCeiling {
		next = progressCeiling
	}
	w.session.Progress = next
	w.session.Message = progressMessage(next, w.session.Message)
	w.notifyLocked()
	return true
}

func (w *Workflow) call(ctx context.Context, token uint64, req ai.PredictionRequest) {
	res, err := w.svc.Predict(ctx, req)
	w.resolve(token, res, err)
}

func (w *Workflow) resolve(token uint64, res *ai.Prediction, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if token != w.token || w.session.State != StateRequesting {
		log.Printf("[predict] session %d: dropping late response", token)
		return
	}
	w.stopLocked()

	if err == nil && res == nil {
		err = ErrEmptyResponse
	}
	if err != nil {
		w.session.State = StateFailed
		w.session.Progress = 0
		w.session.Message = ""
		w.session.Error = Classify(err)
		log.Printf("[predict] session %d failed: %v", token, err)
		w.notifyLocked()
		return
	}

	w.session.Progress = 100
	w.session.Message = msgDone
	w.notifyLocked()

	w.session.State = StateCompleted
	w.session.CostIncurred = true
	w.session.Result = &Result{Probability: res.WinProbability, Recommendation: res.Recommendation}
	log.Printf("[predict] session %d completed: probability=%.3f", token, res.WinProbability)
	w.notifyLocked()
}

// cancelLocked moves a Requesting session to Cancelled.
func (w *Workflow) cancelLocked() {
	w.token++
	w.stopLocked()
	w.session.State = StateCancelled
	w.session.Progress = 0
	w.session.Message = ""
	w.session.Notice = noticeCanceled
	w.session.CostIncurred = false
	log.Printf("[predict] session %d cancelled", w.token-1)
}

// abortLocked invalidates any in-flight request without recording a cancellation.
func (w *Workflow) abortLocked() {
	if w.session.State == StateRequesting {
		w.token++
		w.stopLocked()
	}
}

func (w *Workflow) stopLocked() {
	if w.stop != nil {
		w.stop()
		w.stop = nil
	}
}

func (w *Workflow) applyBidTextLocked(text string) {
	value, display := amount.Normalize(text)
	w.session.BidAmount = value
	w.session.BidText = display
}

func (w *Workflow) notifyLocked() {
	if len(w.observers) == 0 {
		return
	}
	snap := w.session.clone()
	for _, fn := range w.observers {
		fn(snap)
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
