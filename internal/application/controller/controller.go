// Package controller implements the interaction state machine that sits
// between a host (web form, terminal, CLI) and the counting adapters.
//
// Handle is a pure transition over caller-owned state: it never mutates the
// state it is given and keeps nothing between calls. Every adapter failure
// is turned into a Notice on the returned Render and never escapes.
package controller

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/jbctechsolutions/tokencalc/internal/application/ports"
	"github.com/jbctechsolutions/tokencalc/internal/domain/encoding"
	domainErrors "github.com/jbctechsolutions/tokencalc/internal/domain/errors"
	"github.com/jbctechsolutions/tokencalc/internal/domain/session"
	"github.com/jbctechsolutions/tokencalc/internal/domain/tokencount"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/logging"
	"github.com/jbctechsolutions/tokencalc/internal/infrastructure/tracing"
)

// Controller drives session state in response to user events.
type Controller struct {
	counter   ports.TokenCounter
	extractor ports.TextExtractor
	logger    *logging.Logger
	tracer    *tracing.Tracer
	now       func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTracer sets the controller's tracer.
func WithTracer(t *tracing.Tracer) Option {
	return func(c *Controller) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithClock overrides the time source used to stamp state updates.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// New creates a Controller over the given adapters.
func New(counter ports.TokenCounter, extractor ports.TextExtractor, opts ...Option) *Controller {
	c := &Controller{
		counter:   counter,
		extractor: extractor,
		logger:    logging.Nop(),
		tracer:    tracing.Default(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Handle applies ev to st and returns the next state with what to render.
// A nil st is treated as a fresh session.
func (c *Controller) Handle(ctx context.Context, st *session.State, ev Event) (*session.State, Render) {
	next := st.Clone()

	var r Render
	if replaced := next.Normalize(); replaced != "" {
		r.warn(domainErrors.CodeValidation, fmt.Sprintf(
			"Saved encoding %q is not supported; using %s", replaced, next.Encoding))
	}

	ctx = logging.WithEncoding(ctx, next.Encoding.String())
	tracing.AddEvent(ctx, "controller.event", attribute.String("event.kind", ev.Kind()))
	c.logger.DebugContext(ctx, "handling event", "event", ev.Kind(), "phase", string(next.Phase))

	if _, ok := ev.(Submitted); ok {
		sr := c.submit(ctx, next)
		sr.Notices = append(r.Notices, sr.Notices...)
		r = sr
	} else {
		// The first render after a successful submission presents an
		// empty input field.
		r.ClearInput = next.PendingClear
		next.PendingClear = false

		switch e := ev.(type) {
		case ModeSelected:
			c.selectMode(next, e, &r)
		case TextEntered:
			c.enterText(next, e, &r)
		case FileSelected:
			c.selectFile(ctx, next, e, &r)
		case EncodingSelected:
			c.selectEncoding(next, e, &r)
		case Rendered:
		default:
			r.warn(domainErrors.CodeValidation, fmt.Sprintf("unsupported event %q", ev.Kind()))
		}
		settle(next)
	}

	next.UpdatedAt = c.now()
	c.fill(next, &r)
	return next, r
}

// Apply handles events in order, feeding each resulting state into the next
// event. The returned Render describes the final state and carries the
// notices of every step. With no events it behaves like a single Rendered.
func (c *Controller) Apply(ctx context.Context, st *session.State, events ...Event) (*session.State, Render) {
	if len(events) == 0 {
		events = []Event{Rendered{}}
	}

	var (
		r       Render
		notices []Notice
		cleared bool
		next    = st
	)
	for _, ev := range events {
		next, r = c.Handle(ctx, next, ev)
		notices = append(notices, r.Notices...)
		cleared = cleared || r.ClearInput
	}
	r.Notices = notices
	r.ClearInput = cleared
	return next, r
}

func (c *Controller) selectMode(st *session.State, e ModeSelected, r *Render) {
	if !e.Mode.IsValid() {
		r.warn(domainErrors.CodeValidation, fmt.Sprintf("unknown input mode %q", e.Mode))
		return
	}
	if e.Mode == st.Mode {
		return
	}
	st.Mode = e.Mode
	st.Text = ""
	st.FileName = ""
	st.PageWarnings = nil
}

func (c *Controller) enterText(st *session.State, e TextEntered, r *Render) {
	if st.Mode != session.ModeText {
		r.warn(domainErrors.CodeValidation, "text entry is only available in Text mode")
		return
	}
	st.Text = e.Text
}

func (c *Controller) selectFile(ctx context.Context, st *session.State, e FileSelected, r *Render) {
	if st.Mode != session.ModePDF {
		r.warn(domainErrors.CodeValidation, "file upload is only available in PDF Upload mode")
		return
	}

	st.PageWarnings = nil
	if e.Name == "" && len(e.Data) == 0 {
		st.Text = ""
		st.FileName = ""
		return
	}

	st.FileName = e.Name
	ext, err := c.extractor.Extract(ctx, e.Data)
	if err != nil {
		st.Text = ""
		r.fail("Could not read PDF", err)
		return
	}

	st.Text = ext.Text
	st.PageWarnings = append([]session.PageWarning(nil), ext.Warnings...)
	for _, w := range ext.Warnings {
		r.warn(domainErrors.CodeExtraction, fmt.Sprintf("Page %d: %s", w.Page, w.Message))
	}
}

func (c *Controller) selectEncoding(st *session.State, e EncodingSelected, r *Render) {
	id, err := encoding.Parse(e.Encoding)
	if err != nil {
		r.fail("Encoding not changed", err)
		return
	}
	st.Encoding = id
}

// submit counts the draft. Only a successful count replaces LastResult.
func (c *Controller) submit(ctx context.Context, st *session.State) Render {
	var r Render
	st.PendingClear = false

	ctx = logging.WithEncoding(ctx, st.Encoding.String())
	ctx, span := c.tracer.StartSubmitSpan(ctx, string(st.Mode), st.Encoding.String())

	if !st.HasInput() {
		st.Phase = session.PhaseAwaitingInput
		w := domainErrors.NewMissingInputWarning()
		r.warn(w.Code, MessageMissingInput)
		span.SetRejected(string(w.Code))
		span.End()
		logging.LogSubmission(ctx, c.logger, st.Encoding.String(), 0, false)
		return r
	}

	st.Phase = session.PhaseComputing
	n, err := c.counter.CountTokens(ctx, st.Text, st.Encoding)
	if err == nil {
		var res tokencount.Result
		res, err = tokencount.NewResult(n, st.Encoding)
		if err == nil {
			st.LastResult = &res
		}
	}
	if err != nil {
		st.Phase = session.PhaseInputCollected
		r.fail("Token calculation failed", err)
		span.EndWithError(err)
		logging.LogSubmission(ctx, c.logger, st.Encoding.String(), 0, false)
		return r
	}

	st.PendingClear = true
	st.Phase = session.PhaseResultDisplayed
	st.Text = ""
	st.FileName = ""
	st.PageWarnings = nil
	r.info(MessageCompleted)

	span.SetOutcome(string(st.Phase), n)
	span.End()
	logging.LogSubmission(ctx, c.logger, st.Encoding.String(), n, true)
	return r
}

// settle moves the phase to reflect the draft after a non-submit event.
func settle(st *session.State) {
	if st.HasInput() {
		st.Phase = session.PhaseInputCollected
	} else {
		st.Phase = session.PhaseAwaitingInput
	}
}

// fill copies the display fields of st into r.
func (c *Controller) fill(st *session.State, r *Render) {
	r.Phase = st.Phase
	r.Mode = st.Mode
	r.Encoding = st.Encoding
	if st.LastResult != nil {
		res := *st.LastResult
		r.Result = &res
	}
	if st.Mode == session.ModePDF {
		r.Preview = st.Text
		r.Warnings = append([]session.PageWarning(nil), st.PageWarnings...)
	}
}
