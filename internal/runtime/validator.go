package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultValidationScript is the script a Validator runs unless told
// otherwise.
var DefaultValidationScript = ValidationScriptPath("world")

// Report is the outcome of a structural validation.
type Report struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validator checks compiled output with a Risor script. The script is
// loaded on first use and cached; concurrent first calls share one load.
type Validator struct {
	rt     *Runtime
	script string

	group  singleflight.Group
	mu     sync.Mutex
	source string
	loaded bool
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithScript selects the script path within the runtime's script source.
func WithScript(path string) ValidatorOption {
	return func(v *Validator) { v.script = path }
}

// NewValidator creates a Validator running scripts from rt.
func NewValidator(rt *Runtime, opts ...ValidatorOption) *Validator {
	v := &Validator{rt: rt, script: DefaultValidationScript}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Loaded reports whether the script has been loaded.
func (v *Validator) Loaded() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loaded
}

func (v *Validator) load() (string, error) {
	v.mu.Lock()
	if v.loaded {
		src := v.source
		v.mu.Unlock()
		return src, nil
	}
	v.mu.Unlock()

	src, err, _ := v.group.Do("load", func() (any, error) {
		src, err := v.rt.LoadScript(v.script)
		if err != nil {
			return "", err
		}
		v.mu.Lock()
		v.source, v.loaded = src, true
		v.mu.Unlock()
		return src, nil
	})
	if err != nil {
		return "", err
	}
	return src.(string), nil
}

// Validate runs the validation script against compiled output JSON.
func (v *Validator) Validate(ctx context.Context, output []byte) (Report, error) {
	src, err := v.load()
	if err != nil {
		return Report{}, fmt.Errorf("runtime: validate: %w", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(output, &decoded); err != nil {
		return Report{}, fmt.Errorf("runtime: validate: decode output: %w", err)
	}
	if decoded == nil {
		decoded = map[string]any{}
	}

	rep := &reporter{}
	extras := map[string]any{
		"output": decoded,
		"report": rep.builtin(),
	}
	if err := v.rt.eval(ctx, src, v.script, extras); err != nil {
		return Report{}, err
	}
	errs := rep.collected()
	return Report{Valid: len(errs) == 0, Errors: errs}, nil
}
