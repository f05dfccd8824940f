package script

import (
	"context"
	"log/slog"

	lua "github.com/yuin/gopher-lua"
)

// installGlobals creates the nog table scripts use to talk to the manager.
func (r *Runtime) installGlobals(L *lua.LState) {
	nog := L.NewTable()
	nog.RawSetString(CallbackTable, L.NewTable())
	nog.RawSetString(SetupField, lua.LFalse)

	L.SetFuncs(nog, map[string]lua.LGFunction{
		"register": r.luaRegister,
		"bind":     r.luaBind,
		"is_setup": luaIsSetup,
		"log":      r.luaLog,
		"windows":  r.luaWindows,
	})
	L.SetGlobal(GlobalTable, nog)
}

// nog.register(fn) -> id
func (r *Runtime) luaRegister(L *lua.LState) int {
	fn := L.CheckFunction(1)
	id, err := AddCallback(L, fn)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(id))
	return 1
}

// nog.bind(keys, fn) -> id
//
// Binding the same keys twice keeps only the latest callback.
func (r *Runtime) luaBind(L *lua.LState) int {
	keys := L.CheckString(1)
	fn := L.CheckFunction(2)
	if keys == "" {
		L.ArgError(1, "key sequence must not be empty")
		return 0
	}

	id, err := AddCallback(L, fn)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}

	replaced := false
	for i := range r.bindings {
		if r.bindings[i].Keys == keys {
			r.bindings[i].CallbackID = id
			replaced = true
			break
		}
	}
	if !replaced {
		r.bindings = append(r.bindings, Binding{Keys: keys, CallbackID: id})
	}

	L.Push(lua.LNumber(id))
	return 1
}

// nog.is_setup() -> bool
func luaIsSetup(L *lua.LState) int {
	v, err := isSetup(L)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LBool(v))
	return 1
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// nog.log(level, msg)
func (r *Runtime) luaLog(L *lua.LState) int {
	levelName := L.CheckString(1)
	msg := L.CheckString(2)
	level, ok := logLevels[levelName]
	if !ok {
		L.ArgError(1, "level must be one of debug, info, warn, error")
		return 0
	}
	r.logger.Log(context.Background(), level, msg, "source", "script")
	return 0
}

// nog.windows() -> { {id=, name=, style=, left=, top=, right=, bottom=}, ... }
func (r *Runtime) luaWindows(L *lua.LState) int {
	list := L.NewTable()
	if r.windows == nil {
		L.Push(list)
		return 1
	}
	for _, snap := range r.windows() {
		w := L.NewTable()
		w.RawSetString("id", lua.LNumber(snap.ID))
		w.RawSetString("name", lua.LString(snap.Name))
		w.RawSetString("style", lua.LString(snap.OriginalStyle.String()))
		w.RawSetString("left", lua.LNumber(snap.OriginalRect.Left))
		w.RawSetString("top", lua.LNumber(snap.OriginalRect.Top))
		w.RawSetString("right", lua.LNumber(snap.OriginalRect.Right))
		w.RawSetString("bottom", lua.LNumber(snap.OriginalRect.Bottom))
		list.Append(w)
	}
	L.Push(list)
	return 1
}
