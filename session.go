package worldlens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/jward/worldlens/internal/document"
	"github.com/jward/worldlens/internal/engine"
	"github.com/jward/worldlens/internal/facts"
	"github.com/jward/worldlens/internal/runtime"
	"github.com/jward/worldlens/scripts"
)

// Default debounce delays.
const (
	DefaultSyntaxDelay  = 50 * time.Millisecond
	DefaultCompileDelay = 300 * time.Millisecond
)

// CodeEngine is the diagnostic code synthesized when the engine itself
// fails rather than reporting diagnostics.
const CodeEngine = "ENGINE"

var (
	// ErrNotReady is returned by calls made before Init has completed.
	ErrNotReady = errors.New("worldlens: session not ready")
	// ErrEngineUnavailable wraps the cause of a failed engine load. The
	// failure is permanent for the session.
	ErrEngineUnavailable = errors.New("worldlens: engine unavailable")
	// ErrNoSnapshot is returned when no compile has produced output yet.
	ErrNoSnapshot = errors.New("worldlens: no compiled snapshot")
	// ErrNoDocument is returned when no text has been supplied.
	ErrNoDocument = errors.New("worldlens: no document")
	// ErrSuperseded is returned by Compile when a newer compile started
	// before this one finished. Its result was discarded.
	ErrSuperseded = errors.New("worldlens: compile superseded")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("worldlens: session closed")
)

// State is the session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// SyntaxStatus is the outcome of the latest syntax-only check.
type SyntaxStatus struct {
	Seq         uint64       `json:"seq"`
	Valid       bool         `json:"valid"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// Session owns the compiled snapshot of one document. It loads the engine
// once, debounces syntax checks and compiles on every edit, and publishes
// each compile as a new immutable Snapshot.
type Session struct {
	id           string
	file         string
	loader       engine.Loader
	clock        Clock
	logger       *slog.Logger
	syntaxDelay  time.Duration
	compileDelay time.Duration
	validator    *runtime.Validator
	autoValidate bool

	group singleflight.Group
	snap  atomic.Pointer[facts.Snapshot]

	mu           sync.Mutex
	state        State
	loadErr      error
	compiler     engine.Compiler
	doc          *document.Document
	seq          uint64
	syntaxSeq    uint64
	syntaxTimer  Timer
	compileTimer Timer
	syntax       SyntaxStatus
	report       *Report
	observers    map[int]func(*Snapshot)
	nextObserver int
	closed       bool
}

// Option configures a Session.
type Option func(*Session)

// WithFile names the document. Section ids are resolved against its stem.
func WithFile(name string) Option {
	return func(s *Session) { s.file = name }
}

// WithSyntaxDelay sets the syntax-check debounce.
func WithSyntaxDelay(d time.Duration) Option {
	return func(s *Session) { s.syntaxDelay = d }
}

// WithCompileDelay sets the full-compile debounce.
func WithCompileDelay(d time.Duration) Option {
	return func(s *Session) { s.compileDelay = d }
}

// WithLogger sets the session logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock replaces the wall clock used for debouncing.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithValidator replaces the structural validator. The default runs the
// embedded validation scripts.
func WithValidator(v *runtime.Validator) Option {
	return func(s *Session) { s.validator = v }
}

// WithAutoValidate runs the structural validator after every successful
// compile. The latest report is available from Report.
func WithAutoValidate(on bool) Option {
	return func(s *Session) { s.autoValidate = on }
}

// New creates an uninitialized session. Call Init before anything else.
func New(loader engine.Loader, opts ...Option) *Session {
	s := &Session{
		id:           uuid.NewString(),
		file:         "world.urd.md",
		loader:       loader,
		clock:        realClock{},
		logger:       slog.New(slog.DiscardHandler),
		syntaxDelay:  DefaultSyntaxDelay,
		compileDelay: DefaultCompileDelay,
		observers:    map[int]func(*Snapshot){},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("session", s.id, "file", s.file)
	if s.validator == nil {
		rt := runtime.NewRuntime("", runtime.WithRuntimeFS(scripts.FS), runtime.WithRuntimeLogger(s.logger))
		s.validator = runtime.NewValidator(rt)
	}
	return s
}

// Offline creates a ready session over a previously exported snapshot. It
// has no engine: queries run against snap, and compiles fail with
// engine.ErrNoCompile while keeping snap's data.
func Offline(text string, snap *Snapshot, opts ...Option) *Session {
	s := New(engine.Ready(engine.Funcs{}), opts...)
	s.state = StateReady
	s.compiler = engine.Funcs{}
	s.doc = document.New(s.file, text)
	if snap != nil {
		s.seq = snap.Seq
		s.snap.Store(snap)
	}
	return s
}

// ID returns the session id attached to its log records.
func (s *Session) ID() string { return s.id }

// File returns the document name.
func (s *Session) File() string { return s.file }

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Init loads the engine. It is idempotent; concurrent calls share one load.
// A failed load is permanent: every later call returns the same error,
// which wraps ErrEngineUnavailable.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateReady:
		s.mu.Unlock()
		return nil
	case StateUnavailable:
		err := s.loadErr
		s.mu.Unlock()
		return err
	}
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state = StateLoading
	s.mu.Unlock()

	_, err, _ := s.group.Do("init", func() (any, error) {
		s.mu.Lock()
		switch s.state {
		case StateReady:
			s.mu.Unlock()
			return nil, nil
		case StateUnavailable:
			err := s.loadErr
			s.mu.Unlock()
			return nil, err
		}
		s.mu.Unlock()

		start := time.Now()
		c, err := s.loader.Load(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			s.state = StateUnavailable
			s.loadErr = fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
			s.logger.Error("engine load failed", "error", err)
			return nil, s.loadErr
		}
		s.compiler = c
		s.state = StateReady
		s.logger.Info("engine ready", "elapsed", time.Since(start))
		if s.doc != nil && !s.closed {
			s.scheduleLocked()
		}
		return nil, nil
	})
	return err
}

// Update replaces the document text and restarts both debounce timers.
// Before Init completes the text is kept and ErrNotReady is returned; the
// timers start once the engine is ready.
func (s *Session) Update(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.doc = document.New(s.file, text)
	if err := s.readyLocked(); err != nil {
		return err
	}
	s.scheduleLocked()
	return nil
}

func (s *Session) readyLocked() error {
	switch s.state {
	case StateReady:
		return nil
	case StateUnavailable:
		return s.loadErr
	}
	return ErrNotReady
}

func (s *Session) scheduleLocked() {
	if s.syntaxTimer != nil {
		s.syntaxTimer.Stop()
	}
	if s.compileTimer != nil {
		s.compileTimer.Stop()
	}
	s.syntaxTimer = s.clock.AfterFunc(s.syntaxDelay, func() {
		_, _ = s.CheckSyntax(context.Background())
	})
	s.compileTimer = s.clock.AfterFunc(s.compileDelay, func() {
		if _, err := s.Compile(context.Background()); err != nil && !errors.Is(err, ErrSuperseded) && !errors.Is(err, ErrClosed) {
			s.logger.Warn("debounced compile failed", "error", err)
		}
	})
}

// Document returns the current document, or nil before the first Update.
func (s *Session) Document() *document.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// Snapshot returns the latest published snapshot, or nil.
func (s *Session) Snapshot() *Snapshot {
	return s.snap.Load()
}

// Syntax returns the latest syntax-check status.
func (s *Session) Syntax() SyntaxStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syntax
}

// Report returns the latest automatic validation report.
func (s *Session) Report() (Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.report == nil {
		return Report{}, false
	}
	return *s.report, true
}

// Subscribe registers fn to be called after every publish. The returned
// function unregisters it.
func (s *Session) Subscribe(fn func(*Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// Close stops pending timers and drops observers. Compiles in flight
// finish but are not published.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.syntaxTimer != nil {
		s.syntaxTimer.Stop()
	}
	if s.compileTimer != nil {
		s.compileTimer.Stop()
	}
	s.observers = map[int]func(*Snapshot){}
	s.logger.Debug("session closed")
	return nil
}

// CheckSyntax runs a syntax-only check of the current document now. A
// result overtaken by a newer check is not recorded.
func (s *Session) CheckSyntax(ctx context.Context) (SyntaxStatus, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return SyntaxStatus{}, ErrClosed
	}
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return SyntaxStatus{}, err
	}
	if s.doc == nil {
		s.mu.Unlock()
		return SyntaxStatus{}, ErrNoDocument
	}
	s.syntaxSeq++
	seq, doc, c := s.syntaxSeq, s.doc, s.compiler
	s.mu.Unlock()

	status := SyntaxStatus{Seq: seq}
	res, err := c.CheckSyntax(ctx, doc.Text())
	if err != nil {
		status.Diagnostics = []Diagnostic{engineDiagnostic(s.file, err)}
	} else {
		status.Valid = res.Success && !facts.HasErrors(res.Diagnostics)
		status.Diagnostics = res.Diagnostics
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.syntaxSeq || s.closed {
		return status, ErrSuperseded
	}
	s.syntax = status
	s.logger.Debug("syntax checked", "seq", seq, "valid", status.Valid)
	return status, nil
}

// Compile runs a full compile of the current document now and publishes
// the result. A failed compile keeps the previous output, facts and
// indices and only replaces the diagnostics.
func (s *Session) Compile(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if err := s.readyLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.doc == nil {
		s.mu.Unlock()
		return nil, ErrNoDocument
	}
	// The pending debounced compile would see the same text.
	if s.compileTimer != nil {
		s.compileTimer.Stop()
	}
	s.seq++
	seq, doc, c := s.seq, s.doc, s.compiler
	s.mu.Unlock()

	s.logger.Debug("compile started", "seq", seq)
	start := time.Now()
	res, err := c.Compile(ctx, doc.Text())
	at := s.clock.Now()

	var (
		next    *Snapshot
		dropped int
		diags   []Diagnostic
	)
	switch {
	case err != nil:
		s.logger.Warn("engine compile error", "seq", seq, "error", err)
		diags = []Diagnostic{engineDiagnostic(s.file, err)}
	case !res.Usable():
		diags = res.Diagnostics
	default:
		next, dropped, err = facts.NewSnapshot(seq, res, at)
		if err != nil {
			s.logger.Warn("compiled output rejected", "seq", seq, "error", err)
			diags = append(append([]Diagnostic{}, res.Diagnostics...), engineDiagnostic(s.file, err))
		}
	}

	s.mu.Lock()
	if seq != s.seq || s.closed {
		s.mu.Unlock()
		s.logger.Debug("discarding stale compile", "seq", seq)
		return nil, ErrSuperseded
	}
	if next == nil {
		next = facts.Continue(s.snap.Load(), seq, diags, at)
	}
	s.snap.Store(next)
	observers := make([]func(*Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Warn("dropped dangling fact indices", "seq", seq, "count", dropped)
	}
	s.logger.Info("compile published",
		"seq", seq,
		"success", next.Success,
		"diagnostics", len(next.Diagnostics),
		"elapsed", time.Since(start),
	)
	for _, fn := range observers {
		fn(next)
	}
	if s.autoValidate && next.Success {
		s.autoValidateSnapshot(ctx, next)
	}
	return next, nil
}

func (s *Session) autoValidateSnapshot(ctx context.Context, snap *Snapshot) {
	rep, err := s.validateSnapshot(ctx, snap)
	if err != nil {
		s.logger.Warn("automatic validation failed", "seq", snap.Seq, "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.snap.Load(); cur != nil && cur.Seq == snap.Seq {
		s.report = &rep
	}
}

// Validate runs the structural validator over the latest compiled output.
// The validator is loaded on first use.
func (s *Session) Validate(ctx context.Context) (Report, error) {
	snap := s.snap.Load()
	if !snap.HasOutput() {
		return Report{}, ErrNoSnapshot
	}
	return s.validateSnapshot(ctx, snap)
}

func (s *Session) validateSnapshot(ctx context.Context, snap *Snapshot) (Report, error) {
	raw := snap.Output.Raw
	if len(raw) == 0 {
		var err error
		if raw, err = json.Marshal(snap.Output); err != nil {
			return Report{}, fmt.Errorf("worldlens: validate: %w", err)
		}
	}
	rep, err := s.validator.Validate(ctx, raw)
	if err != nil {
		return Report{}, fmt.Errorf("worldlens: validate: %w", err)
	}
	s.logger.Debug("validated", "seq", snap.Seq, "valid", rep.Valid, "errors", len(rep.Errors))
	return rep, nil
}

func engineDiagnostic(file string, err error) Diagnostic {
	return Diagnostic{
		Severity: facts.SeverityError,
		Code:     CodeEngine,
		Message:  err.Error(),
		Span:     facts.Span{File: file, StartLine: 1, StartCol: 1, EndLine: 1, EndCol: 1},
	}
}
