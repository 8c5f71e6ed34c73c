package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/whitphx/tlanislide/internal/ir"
	"github.com/whitphx/tlanislide/internal/order"
	"github.com/whitphx/tlanislide/internal/store"
)

// OpOrder is the read-only command: it derives the current groups of a
// timeline and records nothing.
const OpOrder ir.Op = "order"

// IDGenerator generates ids for inserted cues that arrive without one.
// Implemented by UUIDv7Generator and testutil.SequentialIDGenerator.
type IDGenerator interface {
	Generate() string
}

// SeqSource is the logical clock consumed by the engine.
// Implemented by *Clock and testutil.DeterministicClock.
type SeqSource interface {
	Next() int64
	Current() int64
}

// Command is one request to the engine.
type Command struct {
	Op         ir.Op
	TimelineID string

	// Timeline is the document to create (OpImport).
	Timeline *ir.Timeline

	// Target is the cue to move or remove (OpMove, OpRemove).
	Target string

	// Dest is the destination group (OpMove, OpInsert).
	Dest int

	// Placement is how a moved cue lands; empty means ir.PlacementAt.
	Placement ir.Placement

	// Cue is the cue to insert (OpInsert). An empty ID is generated.
	Cue ir.Cue
}

// Outcome is the result of a command.
type Outcome struct {
	TimelineID string `json:"timeline_id"`
	Op         ir.Op  `json:"op"`

	// Seq is the revision recorded, or 0 if nothing was recorded.
	Seq int64 `json:"seq,omitempty"`

	// Changed is false for reads and for commands that left the order as is.
	Changed bool `json:"changed"`

	// CueID is the id of the inserted cue (OpInsert).
	CueID string `json:"cue_id,omitempty"`

	OrderHash string        `json:"order_hash"`
	Cues      []ir.Cue      `json:"cues"`
	Groups    []ir.CueGroup `json:"groups"`
}

// Engine is the single-writer command loop over a timeline store.
//
// Hosts submit commands from any goroutine; Run executes them one at a
// time, so read-modify-write of a timeline never interleaves.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Stop(): safe from any goroutine
type Engine struct {
	store *store.Store
	clock SeqSource // nil until Run resumes it from the store
	queue *commandQueue
	ids   IDGenerator
	quota *QuotaEnforcer
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithClock sets the logical clock. Without it, Run resumes a Clock from
// the store's latest seq.
func WithClock(c SeqSource) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithIDGenerator sets the generator for ids of anonymous inserted cues.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) EngineOption {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithMaxCues sets the cue cap per timeline.
//
// Default: 10000 cues (DefaultMaxCues). Zero disables the cap.
func WithMaxCues(n int) EngineOption {
	return func(e *Engine) {
		e.quota = NewQuotaEnforcer(n)
	}
}

// New creates an Engine over s. Call Run to start processing.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store: s,
		queue: newCommandQueue(),
		ids:   UUIDv7Generator{},
		quota: NewQuotaEnforcer(DefaultMaxCues),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Submit queues cmd and waits for its outcome.
//
// Returns ErrStopped if the engine no longer accepts commands, or ctx's
// error if ctx ends first. Ordering conflicts are returned as
// *order.ConflictError.
func (e *Engine) Submit(ctx context.Context, cmd Command) (Outcome, error) {
	req := request{cmd: cmd, reply: make(chan result, 1)}
	if !e.queue.Enqueue(req) {
		return Outcome{}, ErrStopped
	}

	select {
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	case res := <-req.reply:
		return res.outcome, res.err
	}
}

// Run starts the single-writer command loop.
// Blocks until ctx is cancelled or Stop() is called and the queue drains.
//
// A failing command is logged and reported to its submitter; the loop
// keeps going.
func (e *Engine) Run(ctx context.Context) error {
	if e.clock == nil {
		clock, err := resumeClock(ctx, e.store)
		if err != nil {
			e.abort(err)
			return err
		}
		e.clock = clock
	}

	slog.Info("engine starting", "seq", e.clock.Current(), "max_cues", e.quota.MaxCues())

	for {
		req, ok := e.queue.TryDequeue()
		if ok {
			outcome, err := e.execute(ctx, req.cmd)
			if err != nil {
				logCommandError(req.cmd, err)
			}
			req.reply <- result{outcome: outcome, err: err}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.abort(ErrStopped)
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes with the queue, so this fires
			// immediately once stopped.
			if e.queue.Len() == 0 && e.stopped() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the queue. Run returns once the pending commands are done.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) stopped() bool {
	e.queue.mu.Lock()
	defer e.queue.mu.Unlock()
	return e.queue.closed
}

// abort closes the queue and fails every pending command with err.
func (e *Engine) abort(err error) {
	e.queue.Close()
	for {
		req, ok := e.queue.TryDequeue()
		if !ok {
			return
		}
		req.reply <- result{err: err}
	}
}

// Exec runs a single command on a fresh engine over s and stops it.
// Used by one-shot hosts such as the CLI.
func Exec(ctx context.Context, s *store.Store, cmd Command, opts ...EngineOption) (Outcome, error) {
	e := New(s, opts...)

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	outcome, err := e.Submit(ctx, cmd)
	e.Stop()
	runErr := <-done

	if err == nil && runErr != nil && !errors.Is(runErr, context.Canceled) {
		err = runErr
	}
	return outcome, err
}

// execute routes a command to its handler.
// Called only from the Run goroutine.
func (e *Engine) execute(ctx context.Context, cmd Command) (Outcome, error) {
	slog.Debug("processing command",
		"timeline", cmd.TimelineID,
		"op", cmd.Op,
		"target", cmd.Target,
	)

	switch cmd.Op {
	case OpOrder:
		return e.readOrder(ctx, cmd.TimelineID)
	case ir.OpImport:
		return e.importTimeline(ctx, cmd)
	case ir.OpMove, ir.OpInsert, ir.OpRemove:
		return e.mutate(ctx, cmd)
	default:
		return Outcome{}, NewInvalidCommandError(cmd.TimelineID, fmt.Sprintf("unknown op %q", cmd.Op))
	}
}

func (e *Engine) readOrder(ctx context.Context, timelineID string) (Outcome, error) {
	tl, err := e.store.ReadTimeline(ctx, timelineID)
	if err != nil {
		return Outcome{}, err
	}
	return newOutcome(timelineID, OpOrder, tl.Cues)
}

func (e *Engine) importTimeline(ctx context.Context, cmd Command) (Outcome, error) {
	tl := cmd.Timeline
	if tl == nil || tl.ID == "" {
		return Outcome{}, NewInvalidCommandError(cmd.TimelineID, "import: missing timeline")
	}
	for _, c := range tl.Cues {
		if c.ID == "" || c.TrackID == "" {
			return Outcome{}, NewInvalidCommandError(tl.ID, "import: cue id and track id are required")
		}
	}
	if err := e.quota.Check(tl.ID, len(tl.Cues)); err != nil {
		return Outcome{}, err
	}

	args := ir.NewObject(
		ir.O(argTitle, ir.String(tl.Title)),
		ir.O(argCount, ir.Int(len(tl.Cues))),
	)
	next, err := applyOp(tl.ID, tl.Cues, ir.OpImport, args)
	if err != nil {
		return Outcome{}, err
	}

	out, err := newOutcome(tl.ID, ir.OpImport, next)
	if err != nil {
		return Outcome{}, err
	}

	rev := ir.Revision{
		TimelineID: tl.ID,
		Seq:        e.clock.Next(),
		Op:         ir.OpImport,
		Args:       args,
		OrderHash:  out.OrderHash,
		Snapshot:   out.Cues,
	}
	if err := e.store.CreateTimeline(ctx, ir.Timeline{ID: tl.ID, Title: tl.Title}, rev); err != nil {
		return Outcome{}, err
	}

	logCommitted(rev)
	out.Seq = rev.Seq
	out.Changed = true
	return out, nil
}

func (e *Engine) mutate(ctx context.Context, cmd Command) (Outcome, error) {
	tl, err := e.store.ReadTimeline(ctx, cmd.TimelineID)
	if err != nil {
		return Outcome{}, err
	}

	args, cueID, err := e.commandArgs(cmd)
	if err != nil {
		return Outcome{}, err
	}
	if cmd.Op == ir.OpInsert {
		if err := e.quota.Check(tl.ID, len(tl.Cues)+1); err != nil {
			return Outcome{}, err
		}
	}

	next, err := applyOp(tl.ID, tl.Cues, cmd.Op, args)
	if err != nil {
		return Outcome{}, err
	}

	out, err := newOutcome(tl.ID, cmd.Op, next)
	if err != nil {
		return Outcome{}, err
	}
	out.CueID = cueID

	current, err := ir.OrderHash(tl.Cues)
	if err != nil {
		return Outcome{}, err
	}
	if current == out.OrderHash {
		slog.Debug("command left order unchanged", "timeline", tl.ID, "op", cmd.Op)
		return out, nil
	}

	rev := ir.Revision{
		TimelineID: tl.ID,
		Seq:        e.clock.Next(),
		Op:         cmd.Op,
		Args:       args,
		OrderHash:  out.OrderHash,
		Snapshot:   out.Cues,
	}
	if err := e.store.CommitRevision(ctx, rev); err != nil {
		return Outcome{}, err
	}

	logCommitted(rev)
	out.Seq = rev.Seq
	out.Changed = true
	return out, nil
}

// commandArgs encodes a mutating command as revision args. For an insert
// without an id it also generates the id.
func (e *Engine) commandArgs(cmd Command) (ir.Object, string, error) {
	switch cmd.Op {
	case ir.OpMove:
		placement := cmd.Placement
		if placement == "" {
			placement = ir.PlacementAt
		}
		return ir.NewObject(
			ir.O(argTarget, ir.String(cmd.Target)),
			ir.O(argDest, ir.Int(cmd.Dest)),
			ir.O(argPlacement, ir.String(placement)),
		), "", nil

	case ir.OpInsert:
		c := cmd.Cue
		if c.TrackID == "" {
			return nil, "", NewInvalidCommandError(cmd.TimelineID, "insert: track id is required")
		}
		if c.ID == "" {
			c.ID = e.ids.Generate()
		}
		return ir.NewObject(
			ir.O(argCue, cueObject(c)),
			ir.O(argDest, ir.Int(cmd.Dest)),
		), c.ID, nil

	case ir.OpRemove:
		return ir.NewObject(ir.O(argTarget, ir.String(cmd.Target))), "", nil

	default:
		return nil, "", NewInvalidCommandError(cmd.TimelineID, fmt.Sprintf("op %q has no args", cmd.Op))
	}
}

// newOutcome derives groups and hash for a conflict-free snapshot.
// Cues are returned in ir.CanonicalOrder, so group members are ordered by
// track then id.
func newOutcome(timelineID string, op ir.Op, cues []ir.Cue) (Outcome, error) {
	canonical := ir.CanonicalOrder(cues)
	groups, err := order.ComputeOrder(canonical)
	if err != nil {
		return Outcome{}, err
	}
	hash, err := ir.OrderHash(cues)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		TimelineID: timelineID,
		Op:         op,
		OrderHash:  hash,
		Cues:       canonical,
		Groups:     groups,
	}, nil
}

func logCommitted(rev ir.Revision) {
	slog.Info("revision committed",
		"timeline", rev.TimelineID,
		"op", rev.Op,
		"seq", rev.Seq,
		"hash", rev.OrderHash,
		"cues", len(rev.Snapshot),
	)
}

// logCommandError logs a failed command with enough context to retry it.
func logCommandError(cmd Command, err error) {
	attrs := []any{
		"timeline", cmd.TimelineID,
		"op", cmd.Op,
		"error", err,
	}
	if cmd.Target != "" {
		attrs = append(attrs, "target", cmd.Target)
	}
	if order.IsConflict(err) {
		slog.Warn("command rejected: order conflict", attrs...)
		return
	}
	slog.Warn("command failed", attrs...)
}
