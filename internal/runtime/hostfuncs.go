package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/risor-io/risor/object"
)

// makeHasFn creates the "has" host function.
//
// has(container, key) → bool
//
// For a map, reports whether key is present. For a list, reports whether
// any element equals key.
func makeHasFn() *object.Builtin {
	return object.NewBuiltin("has", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("has", 2, len(args))
		}
		switch c := args[0].(type) {
		case *object.Map:
			key, err := toString(args[1])
			if err != nil {
				return object.Errorf("has: %v", err)
			}
			_, ok := c.Value()[key]
			return object.NewBool(ok)
		case *object.List:
			for _, item := range c.Value() {
				if eq, ok := item.Equals(args[1]).(*object.Bool); ok && eq.Value() {
					return object.True
				}
			}
			return object.False
		case *object.NilType:
			return object.False
		}
		return object.Errorf("has: expected map or list, got %s", args[0].Type())
	})
}

// makeFieldFn creates "field", a safe map lookup.
//
// field(map, key) → value or nil
func makeFieldFn() *object.Builtin {
	return object.NewBuiltin("field", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 2 {
			return object.NewArgsError("field", 2, len(args))
		}
		if _, ok := args[0].(*object.NilType); ok {
			return object.Nil
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("field: %v", err)
		}
		key, err := toString(args[1])
		if err != nil {
			return object.Errorf("field: %v", err)
		}
		v, ok := m[key]
		if !ok {
			return object.Nil
		}
		return v
	})
}

// makeSortedKeysFn creates "sorted_keys" so scripts report problems in a
// stable order.
//
// sorted_keys(map) → []string
func makeSortedKeysFn() *object.Builtin {
	return object.NewBuiltin("sorted_keys", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("sorted_keys", 1, len(args))
		}
		if _, ok := args[0].(*object.NilType); ok {
			return object.NewList([]object.Object{})
		}
		m, err := extractMap(args[0])
		if err != nil {
			return object.Errorf("sorted_keys: %v", err)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		items := make([]object.Object, len(keys))
		for i, k := range keys {
			items[i] = object.NewString(k)
		}
		return object.NewList(items)
	})
}

// reporter collects the messages a script passes to report().
type reporter struct {
	mu       sync.Mutex
	messages []string
}

// builtin creates the "report" host function.
//
// report(message)
func (r *reporter) builtin() *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("report", 1, len(args))
		}
		msg, err := toString(args[0])
		if err != nil {
			return object.Errorf("report: %v", err)
		}
		r.mu.Lock()
		r.messages = append(r.messages, msg)
		r.mu.Unlock()
		return object.Nil
	})
}

func (r *reporter) collected() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.messages...)
}

func extractMap(obj object.Object) (map[string]object.Object, error) {
	m, ok := obj.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("expected map, got %s", obj.Type())
	}
	return m.Value(), nil
}

func toString(obj object.Object) (string, error) {
	if s, ok := obj.(*object.String); ok {
		return s.Value(), nil
	}
	return "", fmt.Errorf("expected string, got %s", obj.Type())
}

// logObject provides log.Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *slog.Logger
}

func (l *logObject) Info(msg string) {
	l.logger.Info(msg)
}

func (l *logObject) Warn(msg string) {
	l.logger.Warn(msg)
}

func (l *logObject) Error(msg string) {
	l.logger.Error(msg)
}
