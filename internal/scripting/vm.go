package scripting

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// ErrTimeout is returned when a script call is interrupted for running too long.
var ErrTimeout = errors.New("script timed out")

// LogEntry is one message written by the script with log() or console.log().
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// VM wraps a goja runtime with sandbox restrictions and the strategy globals.
type VM struct {
	runtime *goja.Runtime
	mu      sync.Mutex

	logs    []LogEntry
	logsMu  sync.Mutex
	maxLogs int

	initTimeout time.Duration
	callTimeout time.Duration

	stopRequested bool
}

const (
	scriptInitTimeout = 2 * time.Second
	scriptCallTimeout = 250 * time.Millisecond
)

// NewVM creates a sandboxed goja runtime with global functions injected.
func NewVM() *VM {
	vm := &VM{
		runtime:     goja.New(),
		maxLogs:     500,
		initTimeout: scriptInitTimeout,
		callTimeout: scriptCallTimeout,
	}
	vm.injectGlobalFunctions()
	injectConstants(vm.runtime)
	return vm
}

// SetCallTimeout bounds each decide() call. Non-positive values are ignored.
func (vm *VM) SetCallTimeout(d time.Duration) {
	if d > 0 {
		vm.callTimeout = d
	}
}

func (vm *VM) injectGlobalFunctions() {
	vm.runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}

		vm.logsMu.Lock()
		if len(vm.logs) >= vm.maxLogs {
			vm.logs = vm.logs[1:]
		}
		vm.logs = append(vm.logs, LogEntry{Time: time.Now(), Message: strings.Join(parts, " ")})
		vm.logsMu.Unlock()

		return goja.Undefined()
	})

	console := vm.runtime.NewObject()
	console.Set("log", vm.runtime.Get("log"))
	vm.runtime.Set("console", console)

	// stop() ends the whole simulation after the current run.
	vm.runtime.Set("stop", func(call goja.FunctionCall) goja.Value {
		vm.stopRequested = true
		return goja.Undefined()
	})

	vm.runtime.Set("require", goja.Undefined())
	vm.runtime.Set("fetch", goja.Undefined())
	vm.runtime.Set("XMLHttpRequest", goja.Undefined())
	vm.runtime.Set("eval", goja.Undefined())
	vm.runtime.Set("Function", goja.Undefined())
}

// Execute runs the strategy source once so it can define decide() and
// initialise its own globals.
func (vm *VM) Execute(source string) error {
	return vm.runWithTimeout(vm.initTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()
		if _, err := vm.runtime.RunString(source); err != nil {
			return fmt.Errorf("script execution error: %w", err)
		}
		return nil
	})
}

// HasDecide reports whether the script defined a decide() function.
func (vm *VM) HasDecide() bool {
	fn := vm.runtime.Get("decide")
	if fn == nil || goja.IsUndefined(fn) || goja.IsNull(fn) {
		return false
	}
	_, ok := goja.AssertFunction(fn)
	return ok
}

// CallDecide calls decide() and returns its result as an action name.
func (vm *VM) CallDecide() (string, error) {
	var out string
	err := vm.runWithTimeout(vm.callTimeout, func() error {
		vm.mu.Lock()
		defer vm.mu.Unlock()

		callable, ok := goja.AssertFunction(vm.runtime.Get("decide"))
		if !ok {
			return errors.New("decide is not a function")
		}
		result, err := callable(goja.Undefined())
		if err != nil {
			return fmt.Errorf("decide() error: %w", err)
		}
		if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
			return errors.New("decide() must return an action name")
		}
		out = result.String()
		return nil
	})
	return out, err
}

// IsStopRequested reports whether the script called stop().
func (vm *VM) IsStopRequested() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.stopRequested
}

// SetVariables pushes vars into the JS runtime.
func (vm *VM) SetVariables(vars *Variables) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	injectVariables(vm.runtime, vars)
}

// SyncVariables reads the script-writable variables back into vars.
func (vm *VM) SyncVariables(vars *Variables) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	syncFromVM(vm.runtime, vars)
}

// GetLogs returns a copy of the log buffer.
func (vm *VM) GetLogs() []LogEntry {
	vm.logsMu.Lock()
	defer vm.logsMu.Unlock()
	out := make([]LogEntry, len(vm.logs))
	copy(out, vm.logs)
	return out
}

func (vm *VM) runWithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		vm.runtime.Interrupt("script execution timeout")
		select {
		case err := <-done:
			vm.runtime.ClearInterrupt()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			return ErrTimeout
		case <-time.After(200 * time.Millisecond):
			return ErrTimeout
		}
	}
}
