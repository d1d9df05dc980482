package lua

import (
	lua "github.com/yuin/gopher-lua"
	"golang.org/x/net/html"

	"github.com/dshills/folio/internal/dom"
)

const nodeTypeName = "folio.node"

func registerNodeType(L *lua.LState) {
	mt := L.NewTypeMetatable(nodeTypeName)
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		s, err := dom.Serialize(checkNode(L, 1))
		if err != nil {
			L.RaiseError("%v", err)
		}
		L.Push(lua.LString(s))
		return 1
	}))
}

func pushNode(L *lua.LState, n *html.Node) {
	ud := L.NewUserData()
	ud.Value = n
	L.SetMetatable(ud, L.GetTypeMetatable(nodeTypeName))
	L.Push(ud)
}

func checkNode(L *lua.LState, idx int) *html.Node {
	ud := L.CheckUserData(idx)
	n, ok := ud.Value.(*html.Node)
	if !ok {
		L.ArgError(idx, "node expected")
	}
	return n
}

func asNode(lv lua.LValue) (*html.Node, bool) {
	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, false
	}
	n, ok := ud.Value.(*html.Node)
	return n, ok
}

// luaElement implements folio.el(tag [, attrs], children...). Children are
// nodes, strings (text) or arrays of those.
func luaElement(L *lua.LState) int {
	tag := L.CheckString(1)
	n := dom.NewElement(tag)
	first := 2
	if attrs, ok := L.Get(2).(*lua.LTable); ok && attrs.Len() == 0 {
		for _, kv := range stringFields(attrs) {
			dom.SetAttr(n, kv[0], kv[1])
		}
		first = 3
	}
	for i := first; i <= L.GetTop(); i++ {
		appendChild(L, n, L.Get(i), i)
	}
	pushNode(L, n)
	return 1
}

func appendChild(L *lua.LState, parent *html.Node, lv lua.LValue, idx int) {
	switch v := lv.(type) {
	case *lua.LNilType:
	case lua.LString, lua.LNumber:
		dom.Append(parent, dom.NewText(lv.String()))
	case *lua.LTable:
		for i := 1; i <= v.Len(); i++ {
			appendChild(L, parent, v.RawGetInt(i), idx)
		}
	default:
		child, ok := asNode(lv)
		if !ok {
			L.ArgError(idx, "node, string or table expected")
			return
		}
		dom.Append(parent, child)
	}
}

// luaText implements folio.text(s).
func luaText(L *lua.LState) int {
	pushNode(L, dom.NewText(L.CheckString(1)))
	return 1
}

// luaHTML implements folio.html(markup). Markup with several top-level
// nodes is wrapped in a div.
func luaHTML(L *lua.LState) int {
	nodes, err := dom.ParseFragment(L.CheckString(1))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	if len(nodes) == 1 {
		pushNode(L, nodes[0])
		return 1
	}
	wrap := dom.NewElement("div")
	for _, c := range nodes {
		dom.Append(wrap, c)
	}
	pushNode(L, wrap)
	return 1
}

// resultNode converts what a render function returned to a DOM node.
func resultNode(lv lua.LValue) (*html.Node, error) {
	switch v := lv.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LString:
		return dom.NewText(string(v)), nil
	}
	if n, ok := asNode(lv); ok {
		dom.Detach(n)
		return n, nil
	}
	return nil, ErrBadResult
}
