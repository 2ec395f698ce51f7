package pz

import (
	"fmt"
	"sort"
)

// DataKind distinguishes data layouts.
type DataKind uint8

const (
	// DataArray is a homogeneous array of one width.
	DataArray DataKind = iota
	// DataStruct is a struct of literal words.
	DataStruct
)

// Data is one constant data entry. Arrays of W8 keep their payload in
// Bytes; everything else in Words.
type Data struct {
	Kind   DataKind
	Width  Width
	Struct StructID
	Bytes  []byte
	Words  []uint64
}

// Struct is a layout: an ordered sequence of field widths.
type Struct struct {
	Fields []Width
}

// Signature gives the stack effect of a procedure: the widths it
// consumes and the widths it leaves.
type Signature struct {
	Before []Width
	After  []Width
}

// Block is a list of instructions ending in a jump or ret.
type Block struct {
	ID     BlockID
	Instrs []Instr
}

// Proc is a procedure: a signature plus blocks. Imports carry no blocks.
type Proc struct {
	Name   string
	Sig    Signature
	Blocks []*Block
}

// Import is a named procedure resolved by the runtime.
type Import struct {
	Name string
	Sig  Signature
}

// PZ is a bytecode program under construction.
type PZ struct {
	structs map[StructID]*Struct
	datas   map[DataID]*Data
	procs   map[ProcID]*Proc
	imports map[ImportID]*Import

	nextStruct StructID
	nextData   DataID
	nextProc   ProcID
	nextImport ImportID

	// Entry is the procedure the runtime starts in, when the module has
	// one.
	Entry ProcID
}

func New() *PZ {
	return &PZ{
		structs:    make(map[StructID]*Struct),
		datas:      make(map[DataID]*Data),
		procs:      make(map[ProcID]*Proc),
		imports:    make(map[ImportID]*Import),
		nextStruct: 1,
		nextData:   1,
		nextProc:   1,
		nextImport: 1,
	}
}

// AddStruct registers a layout and returns its fresh id.
func (p *PZ) AddStruct(s *Struct) StructID {
	id := p.nextStruct
	p.nextStruct++
	p.structs[id] = s
	return id
}

// Struct looks up a layout by id.
func (p *PZ) Struct(id StructID) (*Struct, bool) {
	s, ok := p.structs[id]
	return s, ok
}

// MustStruct panics on an invalid id.
func (p *PZ) MustStruct(id StructID) *Struct {
	s, ok := p.structs[id]
	if !ok {
		panic(fmt.Sprintf("pz: invalid StructID %d", id))
	}
	return s
}

// AddData registers a data entry and returns its fresh id.
func (p *PZ) AddData(d *Data) DataID {
	id := p.nextData
	p.nextData++
	p.datas[id] = d
	return id
}

// Data looks up a data entry by id.
func (p *PZ) Data(id DataID) (*Data, bool) {
	d, ok := p.datas[id]
	return d, ok
}

// MustData panics on an invalid id.
func (p *PZ) MustData(id DataID) *Data {
	d, ok := p.datas[id]
	if !ok {
		panic(fmt.Sprintf("pz: invalid DataID %d", id))
	}
	return d
}

// AddProc registers a procedure and returns its fresh id.
func (p *PZ) AddProc(proc *Proc) ProcID {
	id := p.nextProc
	p.nextProc++
	p.procs[id] = proc
	return id
}

// Proc looks up a procedure by id.
func (p *PZ) Proc(id ProcID) (*Proc, bool) {
	pr, ok := p.procs[id]
	return pr, ok
}

// MustProc panics on an invalid id.
func (p *PZ) MustProc(id ProcID) *Proc {
	pr, ok := p.procs[id]
	if !ok {
		panic(fmt.Sprintf("pz: invalid ProcID %d", id))
	}
	return pr
}

// AddImport registers an imported procedure and returns its fresh id.
func (p *PZ) AddImport(imp *Import) ImportID {
	id := p.nextImport
	p.nextImport++
	p.imports[id] = imp
	return id
}

// Import looks up an import by id.
func (p *PZ) Import(id ImportID) (*Import, bool) {
	imp, ok := p.imports[id]
	return imp, ok
}

// MustImport panics on an invalid id.
func (p *PZ) MustImport(id ImportID) *Import {
	imp, ok := p.imports[id]
	if !ok {
		panic(fmt.Sprintf("pz: invalid ImportID %d", id))
	}
	return imp
}

// ProcIDs returns all procedure ids in ascending order.
func (p *PZ) ProcIDs() []ProcID {
	out := make([]ProcID, 0, len(p.procs))
	for id := range p.procs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DataIDs returns all data ids in ascending order.
func (p *PZ) DataIDs() []DataID {
	out := make([]DataID, 0, len(p.datas))
	for id := range p.datas {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ImportIDs returns all import ids in ascending order.
func (p *PZ) ImportIDs() []ImportID {
	out := make([]ImportID, 0, len(p.imports))
	for id := range p.imports {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
