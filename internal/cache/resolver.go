package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"runtime/debug"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/eugener/reel/internal/telemetry"
)

// DefaultTTL applies when Options.TTL is zero.
const DefaultTTL = 300 * time.Second

const defaultFlightTimeout = 30 * time.Second

// Shape is the result shape an operation expects to read back from the store.
type Shape int

const (
	// ShapeInfer derives the shape from the result type: slices are lists.
	ShapeInfer Shape = iota
	// ShapeSingle is one item; the stored payload must be non-null JSON.
	ShapeSingle
	// ShapeList is an ordered list; the stored payload must be a JSON array.
	ShapeList
)

// String returns the config name of the shape.
func (s Shape) String() string {
	switch s {
	case ShapeSingle:
		return "single"
	case ShapeList:
		return "list"
	default:
		return ""
	}
}

// ParseShape parses "single", "list", or "" (infer).
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(s) {
	case "":
		return ShapeInfer, nil
	case "single":
		return ShapeSingle, nil
	case "list":
		return ShapeList, nil
	default:
		return ShapeInfer, fmt.Errorf("unknown result shape %q", s)
	}
}

// OperationSpec is one row of the operation table.
type OperationSpec struct {
	ID    string
	TTL   time.Duration // 0 = resolver TTL
	Shape Shape
}

// Options configures a Resolver.
type Options struct {
	Store         Store
	TTL           time.Duration // default DefaultTTL
	StoreTimeout  time.Duration // bound on each store call; 0 = caller's context only
	SingleFlight  bool          // share one fetch between concurrent misses on a key
	FlightTimeout time.Duration // bound on a shared fetch; default 30s
	Operations    []OperationSpec
	Metrics       *telemetry.Metrics // nil = no metrics
}

// Resolver is the shared cache-aside engine behind every Operation. It keeps no
// cached state of its own; with SingleFlight it tracks in-flight fetches only.
type Resolver struct {
	store         Store
	ttl           time.Duration
	storeTimeout  time.Duration
	flightTimeout time.Duration
	flights       *singleflight.Group // nil = every miss fetches
	table         map[string]OperationSpec
	metrics       *telemetry.Metrics
	tracer        trace.Tracer
}

// NewResolver validates opts and builds a Resolver.
func NewResolver(opts Options) (*Resolver, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	if opts.TTL < 0 || opts.StoreTimeout < 0 || opts.FlightTimeout < 0 {
		return nil, errors.New("cache: negative duration in options")
	}
	r := &Resolver{
		store:         opts.Store,
		ttl:           opts.TTL,
		storeTimeout:  opts.StoreTimeout,
		flightTimeout: opts.FlightTimeout,
		table:         make(map[string]OperationSpec, len(opts.Operations)),
		metrics:       opts.Metrics,
		tracer:        telemetry.Tracer("github.com/eugener/reel/internal/cache"),
	}
	if r.ttl == 0 {
		r.ttl = DefaultTTL
	}
	if r.flightTimeout == 0 {
		r.flightTimeout = defaultFlightTimeout
	}
	if opts.SingleFlight {
		r.flights = &singleflight.Group{}
	}
	for _, spec := range opts.Operations {
		if spec.ID == "" {
			return nil, errors.New("cache: operation with empty id")
		}
		if spec.TTL < 0 {
			return nil, fmt.Errorf("cache: operation %q: negative ttl", spec.ID)
		}
		if _, dup := r.table[spec.ID]; dup {
			return nil, fmt.Errorf("cache: operation %q declared twice", spec.ID)
		}
		r.table[spec.ID] = spec
	}
	return r, nil
}

// TTL returns the resolver-wide TTL.
func (r *Resolver) TTL() time.Duration { return r.ttl }

// Fetch loads a result from the source of truth.
type Fetch[T any] func(ctx context.Context) (T, error)

// Operation is a typed handle on one cached operation.
type Operation[T any] struct {
	r     *Resolver
	id    string
	ttl   time.Duration
	shape Shape
}

// Register binds result type T to operation id. The TTL and shape come from the
// operation table; operations missing from the table use the resolver TTL and an
// inferred shape. A declared shape that contradicts T returns ErrShapeMismatch.
func Register[T any](r *Resolver, id string) (*Operation[T], error) {
	if id == "" {
		return nil, errors.New("cache: empty operation id")
	}
	spec, ok := r.table[id]
	if !ok {
		spec = OperationSpec{ID: id}
	}
	shape, err := shapeOf[T](spec.Shape)
	if err != nil {
		return nil, fmt.Errorf("operation %q: %w", id, err)
	}
	ttl := spec.TTL
	if ttl == 0 {
		ttl = r.ttl
	}
	return &Operation[T]{r: r, id: id, ttl: ttl, shape: shape}, nil
}

// Resolve is the ad-hoc form of Register followed by Operation.Resolve.
func Resolve[T any](ctx context.Context, r *Resolver, id string, args Args, fetch Fetch[T]) (T, error) {
	op, err := Register[T](r, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return op.Resolve(ctx, args, fetch)
}

func shapeOf[T any](declared Shape) (Shape, error) {
	typ := reflect.TypeFor[T]()
	list := (typ.Kind() == reflect.Slice && typ.Elem().Kind() != reflect.Uint8) || typ.Kind() == reflect.Array
	switch declared {
	case ShapeInfer:
		if list {
			return ShapeList, nil
		}
		return ShapeSingle, nil
	case ShapeList:
		if !list {
			return 0, fmt.Errorf("%w: list declared for %s", ErrShapeMismatch, typ)
		}
	case ShapeSingle:
		if list {
			return 0, fmt.Errorf("%w: single declared for %s", ErrShapeMismatch, typ)
		}
	default:
		return 0, fmt.Errorf("%w: unknown shape %d", ErrShapeMismatch, declared)
	}
	return declared, nil
}

// ID returns the operation identifier (the key namespace).
func (o *Operation[T]) ID() string { return o.id }

// TTL returns the TTL applied to this operation's entries.
func (o *Operation[T]) TTL() time.Duration { return o.ttl }

// Shape returns the resolved result shape.
func (o *Operation[T]) Shape() Shape { return o.shape }

// Key returns the cache key for args.
func (o *Operation[T]) Key(args Args) (string, error) {
	return Key(o.id, args)
}

// Resolve returns the cached result for args, or calls fetch on a miss and
// caches a non-empty result. Only fetch errors are returned; store failures and
// undecodable payloads degrade to a miss. Args without a canonical encoding
// bypass the cache entirely.
func (o *Operation[T]) Resolve(ctx context.Context, args Args, fetch Fetch[T]) (T, error) {
	ctx, span := o.r.tracer.Start(ctx, "cache.resolve",
		trace.WithAttributes(attribute.String("cache.operation", o.id)),
	)
	defer span.End()

	v, result, err := o.resolve(ctx, args, fetch)
	span.SetAttributes(attribute.String("cache.outcome", result))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return v, err
}

func (o *Operation[T]) resolve(ctx context.Context, args Args, fetch Fetch[T]) (T, string, error) {
	key, err := Key(o.id, args)
	if err != nil {
		slog.LogAttrs(ctx, slog.LevelWarn, "cache key unavailable, bypassing cache",
			slog.String("operation", o.id),
			slog.String("error", err.Error()),
		)
		v, err := o.fetch(ctx, fetch)
		return v, "bypass", err
	}

	if v, ok := o.lookup(ctx, key); ok {
		o.r.count(outcomeHit, o.id)
		return v, "hit", nil
	}
	o.r.count(outcomeMiss, o.id)

	if o.r.flights == nil {
		v, _, err := o.fill(ctx, key, fetch)
		return v, "miss", err
	}
	v, shared, err := o.fillShared(ctx, key, fetch)
	if shared {
		return v, "shared", err
	}
	return v, "miss", err
}

// lookup reads and decodes key. Any failure is a miss.
func (o *Operation[T]) lookup(ctx context.Context, key string) (T, bool) {
	var zero T
	gctx, cancel := o.r.storeContext(ctx)
	payload, ok, err := o.r.store.Get(gctx, key)
	cancel()
	if err != nil {
		o.r.storeError(ctx, o.id, "get", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}
	v, err := o.decode(payload)
	if err != nil {
		o.r.storeError(ctx, o.id, "decode", err)
		return zero, false
	}
	return v, true
}

func (o *Operation[T]) decode(payload []byte) (T, error) {
	var v T
	if !gjson.ValidBytes(payload) {
		return v, fmt.Errorf("%w: invalid JSON", ErrCorruptPayload)
	}
	res := gjson.ParseBytes(payload)
	switch {
	case o.shape == ShapeList && !res.IsArray():
		return v, fmt.Errorf("%w: want array, got %s", ErrCorruptPayload, res.Type)
	case o.shape == ShapeSingle && res.Type == gjson.Null:
		return v, fmt.Errorf("%w: null item", ErrCorruptPayload)
	}
	if err := json.Unmarshal(payload, &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return v, nil
}

// fill fetches and writes the result back. The returned payload is nil when
// nothing was written.
func (o *Operation[T]) fill(ctx context.Context, key string, fetch Fetch[T]) (T, []byte, error) {
	v, err := o.fetch(ctx, fetch)
	if err != nil {
		var zero T
		return zero, nil, err
	}
	if isEmpty(v) {
		return v, nil, nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		o.r.storeError(ctx, o.id, "encode", err)
		return v, nil, nil
	}

	wctx, cancel := o.r.writeContext(ctx)
	defer cancel()
	if err := o.r.store.Set(wctx, key, payload, o.ttl); err != nil {
		o.r.storeError(ctx, o.id, "set", err)
	}
	return v, payload, nil
}

type flight[T any] struct {
	value   T
	payload []byte
}

// fillShared runs fill at most once per key among concurrent callers. The
// shared fetch is detached from any one caller's cancellation; each caller
// still stops waiting when its own context ends. Callers that shared a flight
// decode private copies from the payload. The flight runs on its own
// goroutine, so a panicking fetch is recovered there and reported to every
// caller as ErrFetchPanic.
func (o *Operation[T]) fillShared(ctx context.Context, key string, fetch Fetch[T]) (T, bool, error) {
	var zero T
	ch := o.r.flights.DoChan(key, func() (val any, err error) {
		defer func() {
			if p := recover(); p != nil {
				slog.LogAttrs(ctx, slog.LevelError, "cache fetch panicked",
					slog.String("operation", o.id),
					slog.Any("panic", p),
					slog.String("stack", string(debug.Stack())),
				)
				val, err = nil, fmt.Errorf("%w: operation %s: %v", ErrFetchPanic, o.id, p)
			}
		}()
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.r.flightTimeout)
		defer cancel()
		v, payload, err := o.fill(fctx, key, fetch)
		return flight[T]{value: v, payload: payload}, err
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Shared, res.Err
		}
		f := res.Val.(flight[T])
		if !res.Shared || f.payload == nil {
			return f.value, res.Shared, nil
		}
		o.r.count(outcomeShared, o.id)
		var v T
		if err := json.Unmarshal(f.payload, &v); err != nil {
			return f.value, true, nil
		}
		return v, true, nil
	}
}

func (o *Operation[T]) fetch(ctx context.Context, fetch Fetch[T]) (T, error) {
	start := time.Now()
	v, err := fetch(ctx)
	if m := o.r.metrics; m != nil {
		m.FetchDuration.WithLabelValues(o.id).Observe(time.Since(start).Seconds())
		if err != nil {
			m.FetchErrors.WithLabelValues(o.id).Inc()
		}
	}
	return v, err
}

func (r *Resolver) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.storeTimeout > 0 {
		return context.WithTimeout(ctx, r.storeTimeout)
	}
	return ctx, func() {}
}

// writeContext detaches the write from caller cancellation so a completed
// fetch is still cached after the caller has gone away.
func (r *Resolver) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if r.storeTimeout > 0 {
		return context.WithTimeout(ctx, r.storeTimeout)
	}
	return context.WithCancel(ctx)
}

func (r *Resolver) storeError(ctx context.Context, op, phase string, err error) {
	if m := r.metrics; m != nil {
		m.CacheStoreErrors.WithLabelValues(op, phase).Inc()
	}
	level := slog.LevelWarn
	if errors.Is(err, ErrCircuitOpen) || ctx.Err() != nil {
		level = slog.LevelDebug
	}
	slog.LogAttrs(ctx, level, "cache store error",
		slog.String("operation", op),
		slog.String("phase", phase),
		slog.String("error", err.Error()),
	)
}

type outcome int

const (
	outcomeHit outcome = iota
	outcomeMiss
	outcomeShared
)

func (r *Resolver) count(o outcome, op string) {
	m := r.metrics
	if m == nil {
		return
	}
	switch o {
	case outcomeHit:
		m.CacheHits.WithLabelValues(op).Inc()
	case outcomeMiss:
		m.CacheMisses.WithLabelValues(op).Inc()
	case outcomeShared:
		m.CacheShared.WithLabelValues(op).Inc()
	}
}
