package machine

import "github.com/dolthub/swiss"

// globals is the dynamic, name-keyed table backing every Scope==Global
// binding: top-level chunk declarations and any identifier the resolver
// could not tie to a lexical scope. It is the one place the machine needs
// a generic Value-keyed hash table, so it is built directly on
// swiss.Map[Value, Value] rather than a plain Go map, keyed by the
// interned *String for the name.
type globals struct {
	m *swiss.Map[Value, Value]
}

func newGlobals() *globals {
	return &globals{m: swiss.NewMap[Value, Value](64)}
}

// Get looks up name, returning the value and whether it was defined.
func (g *globals) Get(name *String) (Value, bool) {
	return g.m.Get(name)
}

// Set defines or overwrites name.
func (g *globals) Set(name *String, v Value) {
	g.m.Put(name, v)
}

// Delete removes name if present, reporting whether it had been defined.
func (g *globals) Delete(name *String) bool {
	if _, ok := g.m.Get(name); !ok {
		return false
	}
	g.m.Delete(name)
	return true
}

// Len reports the number of defined globals.
func (g *globals) Len() int { return g.m.Count() }

// Each calls fn for every (name, value) pair currently defined.
func (g *globals) Each(fn func(name *String, v Value)) {
	g.m.Iter(func(k, v Value) bool {
		fn(k.(*String), v)
		return false
	})
}
