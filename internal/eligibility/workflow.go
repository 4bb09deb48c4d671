package eligibility

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"shieldcare/internal/eligibility/metrics"
	"shieldcare/internal/eligibility/ports"
	"shieldcare/internal/health"
	dErrors "shieldcare/pkg/domain-errors"
	"shieldcare/pkg/platform/latency"
	"shieldcare/pkg/platform/sentinel"
)

const tracerName = "shieldcare/internal/eligibility"

var errPanicked = errors.New("panic in eligibility run")

// recoverInto must be deferred directly. It turns a panic into a CodeInternal
// error stored in *err.
func recoverInto(err *error) {
	if r := recover(); r != nil {
		*err = dErrors.Wrap(fmt.Errorf("%w: %v", errPanicked, r), dErrors.CodeInternal, "eligibility run failed unexpectedly")
	}
}

// Snapshot is a copy of the workflow state at one point in time.
type Snapshot struct {
	RunID     uuid.UUID             `json:"runId"`
	Stage     Stage                 `json:"stage"`
	Message   string                `json:"message"`
	Form      health.Form           `json:"form"`
	Encrypted health.EncryptedInput `json:"encrypted"`
	Receipt   *health.Receipt       `json:"receipt,omitempty"`
	Result    *health.Result        `json:"result,omitempty"`
	Failure   string                `json:"failure,omitempty"`
}

func (s Snapshot) clone() Snapshot {
	if s.Receipt != nil {
		rc := *s.Receipt
		s.Receipt = &rc
	}
	if s.Result != nil {
		res := *s.Result
		s.Result = &res
	}
	return s
}

// Workflow drives one eligibility check at a time through the five stages.
// All state lives here and changes only through advance, fail, Reset and
// SetField. Every continuation of a run carries the generation it was started
// with; once Reset bumps the generation, those continuations are discarded.
type Workflow struct {
	encryption ports.EncryptionService
	contract   ports.ContractService
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	stagePause time.Duration
	now        func() time.Time

	mu             sync.Mutex
	gen            uint64
	state          Snapshot
	stageEnteredAt time.Time
	cancel         context.CancelFunc

	hub *hub
}

type Option func(*Workflow)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Workflow) {
		w.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(w *Workflow) {
		w.tracer = tracer
	}
}

// WithStagePause holds the Encrypted stage for d before submitting, so
// renderers get a chance to show it.
func WithStagePause(d time.Duration) Option {
	return func(w *Workflow) {
		w.stagePause = d
	}
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		w.now = now
	}
}

// New constructs a workflow in the Idle stage.
func New(encryption ports.EncryptionService, contract ports.ContractService, opts ...Option) (*Workflow, error) {
	if encryption == nil {
		return nil, errors.New("encryption service is required")
	}
	if contract == nil {
		return nil, errors.New("contract service is required")
	}

	w := &Workflow{
		encryption: encryption,
		contract:   contract,
		logger:     slog.New(slog.DiscardHandler),
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		state:      Snapshot{Stage: StageIdle, Message: StageIdle.Message()},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.hub = newHub(w.metrics.IncrementDropped)
	return w, nil
}

// Snapshot returns a copy of the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.clone()
}

// Subscribe registers for state change events. Call the returned func to
// unsubscribe; the channel is closed afterwards. A buffer of 0 picks a
// default size.
func (w *Workflow) Subscribe(buffer int) (<-chan Event, func()) {
	return w.hub.subscribe(buffer)
}

// Close unsubscribes every observer and abandons any in-flight run.
func (w *Workflow) Close() {
	w.mu.Lock()
	w.gen++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.mu.Unlock()
	w.hub.closeAll()
}

// SetField records one form edit. Edits are accepted in any stage; an
// in-flight run keeps the figures it was submitted with.
func (w *Workflow) SetField(ctx context.Context, metric health.Metric, raw string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	form, err := w.state.Form.Set(metric, raw)
	if err != nil {
		return err
	}
	w.state.Form = form
	w.publishLocked(EventFormChanged)
	return nil
}

// FieldEdit is one form field to set as part of a submission.
type FieldEdit struct {
	Metric health.Metric
	Raw    string
}

// Submit validates the form and starts a run. Validation failures are
// returned synchronously and leave the workflow untouched. Submitting while
// a run is in flight is rejected with CodeConflict.
//
// The run outlives ctx's cancellation but keeps its values; use Reset to
// abandon it.
func (w *Workflow) Submit(ctx context.Context) (*Run, error) {
	return w.SubmitWith(ctx)
}

// SubmitWith applies edits to the form and submits it as one step. The edits
// are kept only when the run starts; a rejected submission leaves the form as
// it was.
func (w *Workflow) SubmitWith(ctx context.Context, edits ...FieldEdit) (*Run, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.state.Stage.CanSubmit() {
		return nil, dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeConflict, "an eligibility check is already in progress")
	}

	form := w.state.Form
	for _, edit := range edits {
		next, err := form.Set(edit.Metric, edit.Raw)
		if err != nil {
			return nil, err
		}
		form = next
	}

	input, err := form.Parse()
	if err != nil {
		w.metrics.IncrementOutcome("rejected")
		w.logger.InfoContext(ctx, "eligibility submission rejected", "error", err)
		return nil, err
	}

	if len(edits) > 0 {
		w.state.Form = form
		w.publishLocked(EventFormChanged)
	}

	w.gen++
	gen := w.gen
	run := newRun()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel

	w.state.RunID = run.ID()
	w.state.Encrypted = health.EncryptedInput{}
	w.state.Receipt = nil
	w.state.Result = nil
	w.state.Failure = ""
	w.enterLocked(StageEncrypting)
	w.publishLocked(EventTransition)

	w.logger.InfoContext(ctx, "eligibility run started", "run_id", run.ID())

	go w.execute(runCtx, cancel, gen, run, input)
	return run, nil
}

// Reset returns the workflow to Idle and clears all data, whatever the stage.
// An in-flight run is cancelled and none of its later completions are applied.
func (w *Workflow) Reset(ctx context.Context) Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	previous := w.state.Stage
	w.gen++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.state = Snapshot{}
	w.enterLocked(StageIdle)
	w.publishLocked(EventReset)

	w.logger.InfoContext(ctx, "eligibility workflow reset", "previous_stage", previous.String())
	return w.state.clone()
}

func (w *Workflow) execute(ctx context.Context, cancel context.CancelFunc, gen uint64, run *Run, input health.Input) {
	defer cancel()
	start := time.Now()

	ctx, span := w.tracer.Start(ctx, "eligibility.run",
		trace.WithAttributes(attribute.String("run_id", run.ID().String())))
	defer span.End()

	result, err := w.runStages(ctx, gen, input)
	if err == nil {
		outcome := "not_eligible"
		if result.Eligible {
			outcome = "eligible"
		}
		w.metrics.IncrementOutcome(outcome)
		w.metrics.ObserveRun(time.Since(start))
		w.logger.InfoContext(ctx, "eligibility run completed",
			"run_id", run.ID(),
			"eligible", result.Eligible,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		run.resolve(result, nil)
		return
	}

	if !errors.Is(err, sentinel.ErrStaleCompletion) {
		err = w.fail(ctx, gen, run.ID(), err)
	}
	if errors.Is(err, sentinel.ErrStaleCompletion) {
		w.metrics.IncrementStale()
		w.metrics.IncrementOutcome("superseded")
		w.logger.DebugContext(ctx, "eligibility run superseded", "run_id", run.ID())
		span.SetStatus(codes.Error, "superseded")
		run.resolve(nil, dErrors.Wrap(sentinel.ErrStaleCompletion, dErrors.CodeCanceled, "eligibility run superseded by reset"))
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "failed")
	run.resolve(nil, err)
}

// runStages performs stages 2 to 5. Each result is applied through advance,
// which refuses it if the run was superseded. A panicking collaborator fails
// the run like any other error.
func (w *Workflow) runStages(ctx context.Context, gen uint64, input health.Input) (_ *health.Result, err error) {
	defer recoverInto(&err)

	encrypted, err := w.encryptAll(ctx, input)
	if err != nil {
		return nil, err
	}
	if err := w.advance(gen, StageEncrypting, StageEncrypted, func(s *Snapshot) {
		s.Encrypted = encrypted
	}); err != nil {
		return nil, err
	}

	if err := latency.Wait(ctx, w.stagePause); err != nil {
		return nil, err
	}
	if err := w.advance(gen, StageEncrypted, StageSubmitting, nil); err != nil {
		return nil, err
	}

	receipt, err := w.submit(ctx, encrypted, input)
	if err != nil {
		return nil, err
	}
	if err := w.advance(gen, StageSubmitting, StageDecrypting, func(s *Snapshot) {
		s.Receipt = &receipt
	}); err != nil {
		return nil, err
	}

	eligible, err := w.decrypt(ctx, receipt)
	if err != nil {
		return nil, err
	}
	result := &health.Result{Eligible: eligible, Conditions: receipt.Conditions}
	if err := w.advance(gen, StageDecrypting, StageDone, func(s *Snapshot) {
		res := *result
		s.Result = &res
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// encryptAll encrypts the three figures in parallel and returns once all
// three ciphertexts are in.
func (w *Workflow) encryptAll(ctx context.Context, input health.Input) (health.EncryptedInput, error) {
	ctx, span := w.tracer.Start(ctx, "eligibility.encrypt")
	defer span.End()

	var out health.EncryptedInput
	targets := map[health.Metric]*health.Ciphertext{
		health.MetricAge:           &out.Age,
		health.MetricBloodPressure: &out.SystolicBP,
		health.MetricBloodSugar:    &out.BloodSugar,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, metric := range health.Metrics {
		target := targets[metric]
		g.Go(func() (err error) {
			defer recoverInto(&err)
			ct, err := w.encryption.Encrypt(gctx, input.Value(metric), metric)
			if err != nil {
				return fmt.Errorf("encrypt %s: %w", metric, err)
			}
			if ct == "" {
				return fmt.Errorf("encrypt %s: empty ciphertext", metric)
			}
			*target = ct
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		if errors.Is(err, errPanicked) {
			return health.EncryptedInput{}, err
		}
		return health.EncryptedInput{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "encryption service failed")
	}
	return out, nil
}

func (w *Workflow) submit(ctx context.Context, encrypted health.EncryptedInput, input health.Input) (health.Receipt, error) {
	ctx, span := w.tracer.Start(ctx, "eligibility.contract")
	defer span.End()

	receipt, err := w.contract.CheckEligibility(ctx, encrypted, input)
	if err != nil {
		span.RecordError(err)
		return health.Receipt{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "contract call failed")
	}
	if receipt == nil {
		return health.Receipt{}, dErrors.New(dErrors.CodeInvariantViolation, "contract returned no receipt")
	}
	span.SetAttributes(
		attribute.String("tx_hash", receipt.TransactionHash),
		attribute.Int64("block_number", int64(receipt.BlockNumber)),
	)
	return *receipt, nil
}

func (w *Workflow) decrypt(ctx context.Context, receipt health.Receipt) (bool, error) {
	ctx, span := w.tracer.Start(ctx, "eligibility.decrypt")
	defer span.End()

	eligible, err := w.encryption.Decrypt(ctx, receipt.ResultCiphertext, receipt.IsEligible)
	if err != nil {
		span.RecordError(err)
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "decryption failed")
	}
	return eligible, nil
}

// advance applies one linear transition for the run with generation gen.
func (w *Workflow) advance(gen uint64, from, to Stage, mutate func(*Snapshot)) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.gen {
		return sentinel.ErrStaleCompletion
	}
	if next, ok := from.next(); !ok || next != to || w.state.Stage != from {
		return dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInvariantViolation,
			fmt.Sprintf("illegal transition %s -> %s from %s", from, to, w.state.Stage))
	}

	if mutate != nil {
		mutate(&w.state)
	}
	w.metrics.ObserveStage(from.String(), w.now().Sub(w.stageEnteredAt))
	w.enterLocked(to)
	w.publishLocked(EventTransition)
	return nil
}

// fail aborts the run with generation gen, discarding partial data. It
// returns ErrStaleCompletion when the run was already superseded.
func (w *Workflow) fail(ctx context.Context, gen uint64, runID uuid.UUID, cause error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if gen != w.gen {
		return sentinel.ErrStaleCompletion
	}

	w.logger.ErrorContext(ctx, "eligibility run failed",
		"run_id", runID,
		"stage", w.state.Stage.String(),
		"error", cause,
	)
	w.metrics.IncrementOutcome("failed")

	w.cancel = nil
	w.state.Encrypted = health.EncryptedInput{}
	w.state.Receipt = nil
	w.state.Result = nil
	w.enterLocked(StageIdle)
	w.state.Message = FailureNotice
	w.state.Failure = FailureNotice
	w.publishLocked(EventFailed)
	return cause
}

func (w *Workflow) enterLocked(stage Stage) {
	w.state.Stage = stage
	w.state.Message = stage.Message()
	w.stageEnteredAt = w.now()
}

// publishLocked must be called with w.mu held so events leave in the order
// the state changed.
func (w *Workflow) publishLocked(kind EventKind) {
	snap := w.state.clone()
	w.hub.publish(Event{
		Kind:     kind,
		RunID:    snap.RunID,
		Stage:    snap.Stage,
		Message:  snap.Message,
		Snapshot: snap,
		At:       w.now(),
	})
}
