package lua

import (
	"fmt"
	"sort"
	"strconv"

	lua "github.com/yuin/gopher-lua"
)

// toGo converts a Lua value to the JSON-like values card payloads hold:
// nil, bool, int64, float64, string, []any and map[string]any. Functions,
// userdata and circular references convert to nil.
func toGo(lv lua.LValue) any {
	return toGoVisited(lv, make(map[*lua.LTable]bool))
}

func toGoVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return tableToGo(v, visited)
	default:
		return nil
	}
}

// tableToGo converts a table with keys 1..n to a slice and any other table
// to a map. An empty table becomes an empty map.
func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	if n := t.Len(); n > 0 && isSequence(t, n) {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toGoVisited(t.RawGetInt(i), visited)
		}
		return arr
	}
	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		m[keyString(k)] = toGoVisited(v, visited)
	})
	return m
}

func isSequence(t *lua.LTable, n int) bool {
	count := 0
	t.ForEach(func(_, _ lua.LValue) { count++ })
	return count == n
}

func keyString(k lua.LValue) string {
	if n, ok := k.(lua.LNumber); ok {
		f := float64(n)
		if f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
	}
	return k.String()
}

// toMap converts a Lua table to a payload map. Non-table values give nil.
func toMap(lv lua.LValue) map[string]any {
	t, ok := lv.(*lua.LTable)
	if !ok {
		return nil
	}
	m, ok := toGo(t).(map[string]any)
	if !ok {
		// A sequence table; keep its entries under their indexes.
		m = make(map[string]any)
		t.ForEach(func(k, v lua.LValue) { m[keyString(k)] = toGo(v) })
	}
	return m
}

// toLua converts a payload value to a Lua value.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []string:
		t := L.CreateTable(len(val), 0)
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case []any:
		t := L.CreateTable(len(val), 0)
		for i, item := range val {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	case map[string]any:
		return mapToTable(L, val)
	case map[string]string:
		t := L.CreateTable(0, len(val))
		for k, s := range val {
			t.RawSetString(k, lua.LString(s))
		}
		return t
	case lua.LValue:
		return val
	default:
		return lua.LString(fmt.Sprint(val))
	}
}

func mapToTable(L *lua.LState, m map[string]any) *lua.LTable {
	t := L.CreateTable(0, len(m))
	for k, v := range m {
		t.RawSetString(k, toLua(L, v))
	}
	return t
}

// stringFields returns the string-keyed entries of t as strings, sorted by
// key.
func stringFields(t *lua.LTable) [][2]string {
	var out [][2]string
	t.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok || v == lua.LNil || v == lua.LFalse {
			return
		}
		val := v.String()
		if v == lua.LTrue {
			val = ""
		}
		out = append(out, [2]string{string(ks), val})
	})
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
