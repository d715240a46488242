//go:build debug

package pool

import (
	"math"
	"reflect"
	"runtime/debug"
	"sync"
)

const (
	poisonString = "<<poison>>"
)

// debugState remembers where each outstanding lease was pulled so that leak
// reports can point at the caller.
type debugState struct {
	name   string
	mu     sync.Mutex
	stacks map[any]string
}

func newDebugState(name string) *debugState {
	return &debugState{
		name:   name,
		stacks: make(map[any]string),
	}
}

func (d *debugState) recordAcquire(obj any) {
	if d == nil || obj == nil {
		return
	}
	stack := string(debug.Stack())
	d.mu.Lock()
	d.stacks[obj] = stack
	d.mu.Unlock()
}

func (d *debugState) recordRelease(obj any) {
	if d == nil || obj == nil {
		return
	}
	d.mu.Lock()
	delete(d.stacks, obj)
	d.mu.Unlock()
}

func (d *debugState) activeStacks() []string {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.stacks) == 0 {
		return nil
	}
	out := make([]string, 0, len(d.stacks))
	for _, stack := range d.stacks {
		out = append(out, stack)
	}
	return out
}

// poison scribbles over the exported fields of a returned instance so that
// any use after return shows up loudly. Only values held inline are touched:
// pointer, interface, func and chan fields refer to state the instance does
// not own and are left alone. The pull hook is expected to reinitialise what
// it needs.
func (d *debugState) poison(obj any) {
	if d == nil || obj == nil {
		return
	}
	v := reflect.ValueOf(obj)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return
	}
	poisonValue(v.Elem())
}

func poisonValue(v reflect.Value) {
	if !v.IsValid() || !v.CanSet() {
		return
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(poisonString)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(-1)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v.SetUint(math.MaxUint64)
	case reflect.Float32, reflect.Float64:
		v.SetFloat(math.NaN())
	case reflect.Slice:
		v.Set(reflect.MakeSlice(v.Type(), 0, 0))
	case reflect.Map:
		v.Set(reflect.MakeMapWithSize(v.Type(), 0))
	case reflect.Struct:
		// value structs are part of the instance; without pointers there is no cycle
		for i := 0; i < v.NumField(); i++ {
			poisonValue(v.Field(i))
		}
	}
}
