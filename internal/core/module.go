package core

import (
	"fmt"
	"sort"
)

// Core is a module under compilation: four id-keyed definition tables
// plus the call-graph topological order. Passes may add entries or update
// a function's body but must not remove ids.
type Core struct {
	Name QName

	funcs     map[FuncID]*Function
	types     map[TypeID]*TypeDef
	ctors     map[CtorID]*Constructor
	resources map[ResourceID]*Resource

	funcsByName map[string]FuncID
	typesByName map[string]TypeID
	ctorsByName map[string]CtorID
	resByName   map[string]ResourceID

	nextFunc FuncID
	nextType TypeID
	nextCtor CtorID
	nextRes  ResourceID

	// sccs holds the call graph's strongly connected components in
	// dependency order: callees before callers.
	sccs [][]FuncID
}

// NewCore creates an empty module.
func NewCore(name QName) *Core {
	return &Core{
		Name:        name,
		funcs:       make(map[FuncID]*Function),
		types:       make(map[TypeID]*TypeDef),
		ctors:       make(map[CtorID]*Constructor),
		resources:   make(map[ResourceID]*Resource),
		funcsByName: make(map[string]FuncID),
		typesByName: make(map[string]TypeID),
		ctorsByName: make(map[string]CtorID),
		resByName:   make(map[string]ResourceID),
		nextFunc:    1,
		nextType:    1,
		nextCtor:    1,
		nextRes:     1,
	}
}

// AddFunction registers a function and returns its fresh id.
func (c *Core) AddFunction(f *Function) FuncID {
	id := c.nextFunc
	c.nextFunc++
	c.funcs[id] = f
	c.funcsByName[f.Name.String()] = id
	return id
}

// Function looks up a function by id.
func (c *Core) Function(id FuncID) (*Function, bool) {
	f, ok := c.funcs[id]
	return f, ok
}

// MustFunction panics on an invalid id; callers rely on the Core
// invariant that every referenced FuncID exists.
func (c *Core) MustFunction(id FuncID) *Function {
	f, ok := c.funcs[id]
	if !ok {
		panic(fmt.Sprintf("core: invalid FuncID %d", id))
	}
	return f
}

// FuncByName resolves a qualified name to a function id.
func (c *Core) FuncByName(name QName) (FuncID, bool) {
	id, ok := c.funcsByName[name.String()]
	return id, ok
}

// FuncIDs returns all function ids in ascending order.
func (c *Core) FuncIDs() []FuncID {
	out := make([]FuncID, 0, len(c.funcs))
	for id := range c.funcs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddType registers a type definition and returns its fresh id.
func (c *Core) AddType(td *TypeDef) TypeID {
	id := c.nextType
	c.nextType++
	c.types[id] = td
	c.typesByName[td.Name.String()] = id
	return id
}

// Type looks up a type definition by id.
func (c *Core) Type(id TypeID) (*TypeDef, bool) {
	td, ok := c.types[id]
	return td, ok
}

// MustType panics on an invalid id.
func (c *Core) MustType(id TypeID) *TypeDef {
	td, ok := c.types[id]
	if !ok {
		panic(fmt.Sprintf("core: invalid TypeID %d", id))
	}
	return td
}

// TypeByName resolves a qualified name to a type id.
func (c *Core) TypeByName(name QName) (TypeID, bool) {
	id, ok := c.typesByName[name.String()]
	return id, ok
}

// TypeIDs returns all type ids in ascending order.
func (c *Core) TypeIDs() []TypeID {
	out := make([]TypeID, 0, len(c.types))
	for id := range c.types {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AddCtor registers a constructor and links it to its owning type.
func (c *Core) AddCtor(ctor *Constructor) CtorID {
	id := c.nextCtor
	c.nextCtor++
	c.ctors[id] = ctor
	c.ctorsByName[ctor.Name.String()] = id
	if td, ok := c.types[ctor.Type]; ok {
		td.Ctors = append(td.Ctors, id)
	}
	return id
}

// Ctor looks up a constructor by id.
func (c *Core) Ctor(id CtorID) (*Constructor, bool) {
	ct, ok := c.ctors[id]
	return ct, ok
}

// MustCtor panics on an invalid id.
func (c *Core) MustCtor(id CtorID) *Constructor {
	ct, ok := c.ctors[id]
	if !ok {
		panic(fmt.Sprintf("core: invalid CtorID %d", id))
	}
	return ct
}

// CtorByName resolves a qualified name to a constructor id.
func (c *Core) CtorByName(name QName) (CtorID, bool) {
	id, ok := c.ctorsByName[name.String()]
	return id, ok
}

// AddResource registers a resource and returns its fresh id.
func (c *Core) AddResource(r *Resource) ResourceID {
	id := c.nextRes
	c.nextRes++
	c.resources[id] = r
	c.resByName[r.Name.String()] = id
	return id
}

// Resource looks up a resource by id.
func (c *Core) Resource(id ResourceID) (*Resource, bool) {
	r, ok := c.resources[id]
	return r, ok
}

// ResourceByName resolves a qualified name to a resource id.
func (c *Core) ResourceByName(name QName) (ResourceID, bool) {
	id, ok := c.resByName[name.String()]
	return id, ok
}

// SetSCCs records the call-graph strongly connected components in
// dependency order.
func (c *Core) SetSCCs(sccs [][]FuncID) {
	c.sccs = sccs
}

// SCCs returns the call-graph components, callees first.
func (c *Core) SCCs() [][]FuncID {
	return c.sccs
}
