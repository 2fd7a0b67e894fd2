package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM running scripted prop behaviour.
// Scripts register entries in the global `props` table:
//
//	props.lamp = {
//	  fx_blend = function(ctx) return 128 end,
//	  receive_projected = function(ctx) return ctx.flashlight end,
//	}
//
// Single-goroutine access only (frame loop).
type Engine struct {
	vm    *lua.LState
	props *lua.LTable
	log   *zap.Logger
}

// PropContext is the per-call input handed to prop callbacks.
type PropContext struct {
	Name     string
	Frame    int
	Time     float64 // seconds since start
	Distance float32 // to the active view origin
}

// NewEngine creates the VM and loads every .lua file under dir/props.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	props := vm.NewTable()
	vm.SetGlobal("props", props)

	e := &Engine{vm: vm, props: props, log: log}
	if err := e.loadDir(filepath.Join(dir, "props")); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load prop scripts: %w", err)
	}
	log.Info("prop scripts loaded", zap.Strings("props", e.Props()))
	return e, nil
}

// loadDir loads all .lua files in a directory in name order. A missing
// directory is not an error.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk in the engine's VM.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) Close() {
	e.vm.Close()
}

// Props returns the registered prop names, sorted.
func (e *Engine) Props() []string {
	var names []string
	e.props.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			names = append(names, string(s))
		}
	})
	sort.Strings(names)
	return names
}

func (e *Engine) HasProp(name string) bool {
	_, ok := e.props.RawGetString(name).(*lua.LTable)
	return ok
}

// callback returns the named function of a prop, or nil.
func (e *Engine) callback(prop, fn string) *lua.LFunction {
	t, ok := e.props.RawGetString(prop).(*lua.LTable)
	if !ok {
		return nil
	}
	f, _ := t.RawGetString(fn).(*lua.LFunction)
	return f
}

func (e *Engine) contextTable(ctx PropContext) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("frame", lua.LNumber(ctx.Frame))
	t.RawSetString("time", lua.LNumber(ctx.Time))
	t.RawSetString("distance", lua.LNumber(ctx.Distance))
	return t
}

// ComputeFxBlend calls props[name].fx_blend(ctx) and clamps the result to
// 0..255. Props without the callback, and failing calls, are fully opaque.
func (e *Engine) ComputeFxBlend(name string, ctx PropContext) int {
	fn := e.callback(name, "fx_blend")
	if fn == nil {
		return 255
	}
	ctx.Name = name
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, e.contextTable(ctx)); err != nil {
		e.log.Error("lua fx_blend error", zap.String("prop", name), zap.Error(err))
		return 255
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok {
		e.log.Warn("lua fx_blend returned non-number", zap.String("prop", name), zap.String("type", ret.Type().String()))
		return 255
	}
	return min(max(int(n), 0), 255)
}

// ShouldReceiveProjectedTextures calls props[name].receive_projected(ctx)
// with ctx.shadow / ctx.flashlight set from the requested projection types.
// Defaults to true.
func (e *Engine) ShouldReceiveProjectedTextures(name string, shadow, flashlight bool) bool {
	fn := e.callback(name, "receive_projected")
	if fn == nil {
		return true
	}
	t := e.contextTable(PropContext{Name: name})
	t.RawSetString("shadow", lua.LBool(shadow))
	t.RawSetString("flashlight", lua.LBool(flashlight))
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua receive_projected error", zap.String("prop", name), zap.Error(err))
		return true
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	return lua.LVAsBool(ret)
}
