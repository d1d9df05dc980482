// Package lua defines cards and atoms in Lua scripts.
//
// Scripts run in a sandboxed gopher-lua interpreter with only the base,
// table, string and math libraries. A global folio module registers
// definitions and builds DOM nodes:
//
//	folio.card{
//	    name = "counter",
//	    render = function(env, payload)
//	        return folio.el("button", {class = "counter"}, "clicked " .. (payload.n or 0))
//	    end,
//	    edit = function(env, payload)
//	        env.save({n = (payload.n or 0) + 1}, true)
//	        return folio.text("saving")
//	    end,
//	}
//
//	folio.atom{
//	    name = "mention",
//	    render = function(env, value, payload)
//	        return folio.el("span", {["data-id"] = payload.id}, value)
//	    end,
//	}
//
// Render functions return a node, a string (a text node) or nil. The env
// table carries name and is_atom plus the save, cancel, edit, remove and
// on_teardown functions of the underlying render.Env.
//
// # Basic Usage
//
//	reg := lua.New(lua.WithLogger(logger))
//	defer reg.Close()
//	if err := reg.LoadFile("cards.lua"); err != nil {
//	    return err
//	}
//	ed, err := engine.New(
//	    engine.WithCards(reg.Cards()...),
//	    engine.WithAtoms(reg.Atoms()...),
//	)
//
// Each script run and each callback has a deadline, see
// WithExecutionTimeout.
package lua
