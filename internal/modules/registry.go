// Package modules defines the execution contract for action modules and the
// registry the assistant dispatches decisions through.
//
// Modules are registered explicitly at process start. Built-ins:
//
//   - ai: conversational fallback (greetings, thanks, help text)
//   - time: timers and the current time
//   - calculator: single binary integer expressions
//
// Anything else the router can target (system, notes, music, weather) is an
// external capability; dispatching to an unregistered name yields an error
// result rather than a Go error.
package modules

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/fyrsmithlabs/nyx/internal/brain"
)

// Errors for registry operations.
var (
	ErrDuplicateModule = errors.New("module already registered")
	ErrInvalidName     = errors.New("invalid module name: must be lowercase alphanumeric with hyphens/underscores")
)

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// ResultType classifies a module reply.
type ResultType string

const (
	ResultSuccess ResultType = "success"
	ResultError   ResultType = "error"
	ResultInfo    ResultType = "info"
)

// Result is what a module returns for one command.
type Result struct {
	Text string     `json:"text"`
	Type ResultType `json:"type"`
}

// Success, Info and Failure build results.
func Success(format string, args ...any) Result {
	return Result{Text: fmt.Sprintf(format, args...), Type: ResultSuccess}
}

func Info(format string, args ...any) Result {
	return Result{Text: fmt.Sprintf(format, args...), Type: ResultInfo}
}

func Failure(format string, args ...any) Result {
	return Result{Text: fmt.Sprintf(format, args...), Type: ResultError}
}

// Module executes routed decisions.
type Module interface {
	Name() string
	Execute(ctx context.Context, message string, decision brain.Decision) (Result, error)
}

// Registry maps module names to implementations. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry creates a registry holding the given modules.
func NewRegistry(mods ...Module) (*Registry, error) {
	r := &Registry{modules: make(map[string]Module)}
	for _, m := range mods {
		if err := r.Register(m); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a module under its Name.
func (r *Registry) Register(m Module) error {
	name := m.Name()
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.modules[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, name)
	}
	r.modules[name] = m
	return nil
}

// Get returns the module registered under name.
func (r *Registry) Get(name string) (Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Names returns the registered module names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute dispatches a decision to module name. Missing modules and module
// errors are reported as error results so callers always have a reply.
func (r *Registry) Execute(ctx context.Context, name, message string, decision brain.Decision) Result {
	m, ok := r.Get(name)
	if !ok {
		return Failure("module %q is not available", name)
	}
	res, err := m.Execute(ctx, message, decision)
	if err != nil {
		return Failure("Error: %v", err)
	}
	if res.Type == "" {
		res.Type = ResultInfo
	}
	return res
}

// Builtins returns the modules that ship with nyx.
func Builtins() []Module {
	return []Module{NewAI(), NewTimekeeper(nil), NewCalculator()}
}
