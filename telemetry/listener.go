package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/CrescendoLabs/FeedKit/events"
)

// spanEntry tracks an in-flight span and its context.
type spanEntry struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent child spans
}

// sessionState tracks the root span for a session.
type sessionState struct {
	span trace.Span
	ctx  context.Context //nolint:containedctx // needed to parent child spans
}

// pendingEnd buffers a span completion that arrived before the corresponding
// start. The EventBus dispatches through a worker pool, so completion events
// can race ahead of start events.
type pendingEnd struct {
	errMsg string // empty means success
	attrs  []attribute.KeyValue
}

// OTelEventListener converts runtime events into OTel spans in real time.
// Fetches become client spans parented under the session root; load state
// activity becomes short internal spans. It is safe for concurrent use and
// tolerates out-of-order event delivery. OnEvent matches the events.Listener
// signature and can be passed to EventBus.SubscribeAll.
type OTelEventListener struct {
	tracer trace.Tracer

	mu          sync.Mutex
	sessions    map[string]*sessionState // sessionID → root span + ctx
	inflight    map[string]*spanEntry    // "fetch:<key>" → span + ctx
	pendingEnds map[string]*pendingEnd   // buffered completions for out-of-order delivery
}

// NewOTelEventListener creates a listener that creates OTel spans from
// runtime events.
func NewOTelEventListener(tracer trace.Tracer) *OTelEventListener {
	return &OTelEventListener{
		tracer:      tracer,
		sessions:    make(map[string]*sessionState),
		inflight:    make(map[string]*spanEntry),
		pendingEnds: make(map[string]*pendingEnd),
	}
}

// StartSession creates a root span for the given session, optionally parented
// under the span context in parentCtx.
func (l *OTelEventListener) StartSession(parentCtx context.Context, sessionID string) {
	ctx, span := l.tracer.Start(parentCtx, "feedkit.session",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	l.mu.Lock()
	l.sessions[sessionID] = &sessionState{span: span, ctx: ctx}
	l.mu.Unlock()
}

// EndSession ends the root span for the given session.
func (l *OTelEventListener) EndSession(sessionID string) {
	l.mu.Lock()
	ss, ok := l.sessions[sessionID]
	if ok {
		delete(l.sessions, sessionID)
	}
	l.mu.Unlock()
	if ok {
		ss.span.End()
	}
}

// OnEvent handles a single runtime event and creates/completes OTel spans
// accordingly.
func (l *OTelEventListener) OnEvent(evt *events.Event) {
	//nolint:exhaustive // Only handling span-producing events
	switch evt.Type {
	case events.EventFetchStarted:
		l.startFetch(evt)
	case events.EventFetchCompleted:
		l.completeFetch(evt)
	case events.EventFetchFailed:
		l.failFetch(evt)
	case events.EventLoadTransitioned:
		l.handleLoadTransition(evt)
	case events.EventLoadRejected:
		l.handleLoadRejection(evt)
	case events.EventLoadRecovered:
		l.handleLoadRecovery(evt)
	case events.EventLoadBudgetExhausted:
		l.handleBudgetExhausted(evt)
	case events.EventRequestDeduplicated:
		l.handleDeduplicated(evt)
	}
}

// sessionCtx returns the context for the session (to parent child spans).
// Falls back to context.Background() if the session is unknown.
func (l *OTelEventListener) sessionCtx(sessionID string) context.Context {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ss, ok := l.sessions[sessionID]; ok {
		return ss.ctx
	}
	return context.Background()
}

// startSpan starts a span parented under the session root and stores it in
// inflight. If a completion was already buffered (out-of-order delivery),
// the span is immediately ended.
func (l *OTelEventListener) startSpan(
	sessionID, key, name string, kind trace.SpanKind, attrs ...attribute.KeyValue,
) {
	parentCtx := l.sessionCtx(sessionID)
	ctx, span := l.tracer.Start(parentCtx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
	l.mu.Lock()
	pe, havePending := l.pendingEnds[key]
	if havePending {
		delete(l.pendingEnds, key)
	} else {
		l.inflight[key] = &spanEntry{span: span, ctx: ctx}
	}
	l.mu.Unlock()

	if havePending {
		span.SetAttributes(pe.attrs...)
		if pe.errMsg != "" {
			span.SetStatus(codes.Error, pe.errMsg)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// endSpan ends an inflight span and removes it from the map. If the span
// hasn't started yet (out-of-order delivery), the completion is buffered and
// applied when startSpan creates the span.
func (l *OTelEventListener) endSpan(key string, attrs ...attribute.KeyValue) {
	l.mu.Lock()
	entry, ok := l.inflight[key]
	if ok {
		delete(l.inflight, key)
	} else {
		l.pendingEnds[key] = &pendingEnd{attrs: attrs}
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	entry.span.SetAttributes(attrs...)
	entry.span.SetStatus(codes.Ok, "")
	entry.span.End()
}

// failSpan ends an inflight span with an error status. If the span hasn't
// started yet (out-of-order delivery), the failure is buffered and applied
// when startSpan creates the span.
func (l *OTelEventListener) failSpan(key, errMsg string, attrs ...attribute.KeyValue) {
	l.mu.Lock()
	entry, ok := l.inflight[key]
	if ok {
		delete(l.inflight, key)
	} else {
		l.pendingEnds[key] = &pendingEnd{errMsg: errMsg, attrs: attrs}
	}
	l.mu.Unlock()
	if !ok {
		return
	}
	entry.span.SetAttributes(attrs...)
	entry.span.SetStatus(codes.Error, errMsg)
	entry.span.End()
}

// asPtr extracts event data as a pointer, handling both value and pointer
// types. Event.Data is an open interface, so listeners tolerate either.
func asPtr[T any](data any) (*T, bool) {
	if p, ok := data.(*T); ok {
		return p, true
	}
	if v, ok := data.(T); ok {
		return &v, true
	}
	return nil, false
}

// --- Fetch ---

func (l *OTelEventListener) startFetch(evt *events.Event) {
	data, ok := asPtr[events.FetchEventData](evt.Data)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("fetch.key", data.Key),
	}
	if evt.FeedID != "" {
		attrs = append(attrs, attribute.String("feed.id", evt.FeedID))
	}
	l.startSpan(evt.SessionID, "fetch:"+data.Key, "feedkit.fetch",
		trace.SpanKindClient,
		attrs...,
	)
}

func (l *OTelEventListener) completeFetch(evt *events.Event) {
	data, ok := asPtr[events.FetchEventData](evt.Data)
	if !ok {
		return
	}
	l.endSpan("fetch:"+data.Key,
		attribute.Int64("fetch.duration_ms", data.Duration.Milliseconds()),
		attribute.Int("fetch.records", data.Records),
	)
}

func (l *OTelEventListener) failFetch(evt *events.Event) {
	data, ok := asPtr[events.FetchEventData](evt.Data)
	if !ok {
		return
	}
	errMsg := "fetch failed"
	if data.Error != nil {
		errMsg = data.Error.Error()
	}
	l.failSpan("fetch:"+data.Key, errMsg,
		attribute.Int64("fetch.duration_ms", data.Duration.Milliseconds()),
	)
}

// --- Load state ---

func (l *OTelEventListener) handleLoadTransition(evt *events.Event) {
	data, ok := asPtr[events.LoadTransitionedData](evt.Data)
	if !ok {
		return
	}
	parentCtx := l.sessionCtx(evt.SessionID)
	_, span := l.tracer.Start(parentCtx, "feedkit.load.transition",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("load.from_state", data.From),
			attribute.String("load.to_state", data.To),
			attribute.String("load.reason", data.Reason),
			attribute.Int("load.sequence", data.Sequence),
		),
	)
	span.End()
}

func (l *OTelEventListener) handleLoadRejection(evt *events.Event) {
	data, ok := asPtr[events.LoadRejectedData](evt.Data)
	if !ok {
		return
	}
	parentCtx := l.sessionCtx(evt.SessionID)
	_, span := l.tracer.Start(parentCtx, "feedkit.load.rejected",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("load.from_state", data.From),
			attribute.String("load.to_state", data.To),
			attribute.String("load.cause", data.Cause),
		),
	)
	span.SetStatus(codes.Error, data.Cause)
	span.End()
}

func (l *OTelEventListener) handleLoadRecovery(evt *events.Event) {
	data, ok := asPtr[events.LoadRecoveredData](evt.Data)
	if !ok {
		return
	}
	parentCtx := l.sessionCtx(evt.SessionID)
	_, span := l.tracer.Start(parentCtx, "feedkit.load.recovery",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("load.recovery_kind", data.Kind),
			attribute.String("load.from_state", data.From),
			attribute.String("load.to_state", data.To),
		),
	)
	span.SetStatus(codes.Ok, "")
	span.End()
}

func (l *OTelEventListener) handleBudgetExhausted(evt *events.Event) {
	data, ok := asPtr[events.BudgetExhaustedData](evt.Data)
	if !ok {
		return
	}
	l.mu.Lock()
	if ss, ok := l.sessions[evt.SessionID]; ok {
		ss.span.AddEvent("feedkit.load.budget_exhausted", trace.WithAttributes(
			attribute.Int("load.errors", data.Errors),
			attribute.Int64("load.cooldown_ms", data.Cooldown.Milliseconds()),
		))
	}
	l.mu.Unlock()
}

// --- Dedup ---

func (l *OTelEventListener) handleDeduplicated(evt *events.Event) {
	data, ok := asPtr[events.RequestDeduplicatedData](evt.Data)
	if !ok {
		return
	}
	evtAttrs := []attribute.KeyValue{
		attribute.String("fetch.key", data.Key),
		attribute.Int("fetch.waiters", data.Waiters),
	}

	// Attach to the active fetch span if present, otherwise the session root.
	l.mu.Lock()
	if entry, ok := l.inflight["fetch:"+data.Key]; ok {
		entry.span.AddEvent("feedkit.request.deduplicated", trace.WithAttributes(evtAttrs...))
	} else if ss, ok := l.sessions[evt.SessionID]; ok {
		ss.span.AddEvent("feedkit.request.deduplicated", trace.WithAttributes(evtAttrs...))
	}
	l.mu.Unlock()
}
