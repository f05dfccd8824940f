package script

import (
	"fmt"
	"io"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// The registry lives in interpreter globals as nog.__callbacks so it is
// collected with the interpreter and cleared by a reload.
//
// AddCallback and GetCallback take the LState directly. They are meant for Go
// functions that Lua calls while a Runtime method already holds the lock;
// going through the Runtime from there would deadlock.

func nogTable(L *lua.LState) (*lua.LTable, error) {
	nog, ok := L.GetGlobal(GlobalTable).(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingGlobal, GlobalTable)
	}
	return nog, nil
}

func callbackTable(L *lua.LState) (*lua.LTable, error) {
	nog, err := nogTable(L)
	if err != nil {
		return nil, err
	}
	cbs, ok := nog.RawGetString(CallbackTable).(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingGlobal, GlobalTable, CallbackTable)
	}
	return cbs, nil
}

// AddCallback stores fn at the next identity (raw length + 1) and returns it.
func AddCallback(L *lua.LState, fn *lua.LFunction) (int, error) {
	cbs, err := callbackTable(L)
	if err != nil {
		return 0, err
	}
	id := rawLen(cbs) + 1
	cbs.RawSetInt(id, fn)
	return id, nil
}

// GetCallback resolves id to its registered function.
func GetCallback(L *lua.LState, id int) (*lua.LFunction, error) {
	cbs, err := callbackTable(L)
	if err != nil {
		return nil, err
	}
	fn, ok := cbs.RawGetInt(id).(*lua.LFunction)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownCallback, id)
	}
	return fn, nil
}

// rawLen returns the border of the table's sequence part.
func rawLen(t *lua.LTable) int {
	n := 0
	for t.RawGetInt(n+1) != lua.LNil {
		n++
	}
	return n
}

type tableEntry struct {
	key   lua.LValue
	value lua.LValue
}

func tableEntries(t *lua.LTable) []tableEntry {
	var entries []tableEntry
	t.ForEach(func(k, v lua.LValue) {
		entries = append(entries, tableEntry{key: k, value: v})
	})
	return entries
}

func clearTable(t *lua.LTable) {
	for _, e := range tableEntries(t) {
		t.RawSet(e.key, lua.LNil)
	}
}

func callbackIDs(cbs *lua.LTable) []int {
	var ids []int
	cbs.ForEach(func(k, v lua.LValue) {
		n, ok := k.(lua.LNumber)
		if !ok {
			return
		}
		if _, ok := v.(*lua.LFunction); ok {
			ids = append(ids, int(n))
		}
	})
	sort.Ints(ids)
	return ids
}

// Callbacks returns the registered identities in ascending order.
func (r *Runtime) Callbacks() ([]int, error) {
	var ids []int
	err := r.Do(func(L *lua.LState) error {
		cbs, err := callbackTable(L)
		if err != nil {
			return err
		}
		ids = callbackIDs(cbs)
		return nil
	})
	return ids, err
}

// PrintCallbacks writes every registered (identity, callable) pair to w, or
// to the runtime's console output when w is nil. Debugging aid only.
func (r *Runtime) PrintCallbacks(w io.Writer) error {
	if w == nil {
		w = r.out
	}
	return r.Do(func(L *lua.LState) error {
		cbs, err := callbackTable(L)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "callbacks")
		for _, id := range callbackIDs(cbs) {
			fmt.Fprintf(w, "%d = %s\n", id, cbs.RawGetInt(id).String())
		}
		return nil
	})
}
