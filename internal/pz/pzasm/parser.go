package pzasm

import (
	"fmt"
	"strings"

	"plasma/internal/pz"
)

// Parse reads the textual bytecode form and builds a program. String
// operands are interned into data entries, width lists into struct
// layouts; call targets that name no proc in the file become imports.
func Parse(src []byte) (*pz.PZ, error) {
	ps := &parser{
		lx:      newLexer(src),
		prog:    pz.New(),
		procs:   make(map[string]pz.ProcID),
		strs:    make(map[string]pz.DataID),
		structs: make(map[string]pz.StructID),
		imports: make(map[string]pz.ImportID),
	}
	if err := ps.advance(); err != nil {
		return nil, err
	}
	for ps.tok.kind != tokEOF {
		if err := ps.parseProc(); err != nil {
			return nil, err
		}
	}
	if err := ps.patchCalls(); err != nil {
		return nil, err
	}
	return ps.prog, nil
}

type pendingCall struct {
	proc  *pz.Proc
	block int
	instr int
	name  string
	line  int
}

type parser struct {
	lx      *lexer
	tok     token
	prog    *pz.PZ
	procs   map[string]pz.ProcID
	strs    map[string]pz.DataID
	structs map[string]pz.StructID
	imports map[string]pz.ImportID
	calls   []pendingCall
}

func (ps *parser) advance() error {
	t, err := ps.lx.next()
	if err != nil {
		return err
	}
	ps.tok = t
	return nil
}

func (ps *parser) errf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", ps.tok.line, fmt.Sprintf(format, args...))
}

func (ps *parser) expect(kind tokKind, what string) (token, error) {
	if ps.tok.kind != kind {
		return token{}, ps.errf("expected %s", what)
	}
	t := ps.tok
	return t, ps.advance()
}

func (ps *parser) parseWidth() (pz.Width, error) {
	t, err := ps.expect(tokIdent, "width")
	if err != nil {
		return 0, err
	}
	w, ok := pz.ParseWidth(t.text)
	if !ok {
		return 0, fmt.Errorf("line %d: unknown width %q", t.line, t.text)
	}
	return w, nil
}

// parseWidthList reads "( WIDTH* )".
func (ps *parser) parseWidthList() ([]pz.Width, error) {
	if _, err := ps.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var out []pz.Width
	for ps.tok.kind == tokIdent {
		w, err := ps.parseWidth()
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	if _, err := ps.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	return out, nil
}

func (ps *parser) parseProc() error {
	kw, err := ps.expect(tokIdent, "'proc'")
	if err != nil {
		return err
	}
	if kw.text != "proc" {
		return fmt.Errorf("line %d: expected 'proc', got %q", kw.line, kw.text)
	}
	name, err := ps.expect(tokIdent, "procedure name")
	if err != nil {
		return err
	}
	if _, err := ps.expect(tokLParen, "'('"); err != nil {
		return err
	}
	var before, after []pz.Width
	for ps.tok.kind == tokIdent {
		w, werr := ps.parseWidth()
		if werr != nil {
			return werr
		}
		before = append(before, w)
	}
	if _, err := ps.expect(tokDash, "'-'"); err != nil {
		return err
	}
	for ps.tok.kind == tokIdent {
		w, werr := ps.parseWidth()
		if werr != nil {
			return werr
		}
		after = append(after, w)
	}
	if _, err := ps.expect(tokRParen, "')'"); err != nil {
		return err
	}
	if _, err := ps.expect(tokLBrace, "'{'"); err != nil {
		return err
	}

	proc := &pz.Proc{
		Name:   name.text,
		Sig:    pz.Signature{Before: before, After: after},
		Blocks: []*pz.Block{{ID: 0}},
	}
	labels := map[string]pz.BlockID{"b0": 0}
	type pendingJump struct {
		block int
		instr int
		label string
		line  int
	}
	var jumps []pendingJump

	cur := proc.Blocks[0]
	for ps.tok.kind != tokRBrace {
		t, terr := ps.expect(tokIdent, "instruction")
		if terr != nil {
			return terr
		}
		if t.text == "label" {
			lt, lerr := ps.expect(tokIdent, "label name")
			if lerr != nil {
				return lerr
			}
			id := pz.BlockID(len(proc.Blocks))
			labels[lt.text] = id
			cur = &pz.Block{ID: id}
			proc.Blocks = append(proc.Blocks, cur)
			continue
		}
		op, ok := pz.ParseOpcode(t.text)
		if !ok {
			return fmt.Errorf("line %d: unknown instruction %q", t.line, t.text)
		}
		ins := pz.Instr{Op: op}
		switch op {
		case pz.OpLoadImmediate:
			if ins.Width, err = ps.parseWidth(); err != nil {
				return err
			}
			nt, nerr := ps.expect(tokNumber, "immediate")
			if nerr != nil {
				return nerr
			}
			ins.Imm = nt.num
		case pz.OpLoadData:
			st, serr := ps.expect(tokString, "string")
			if serr != nil {
				return serr
			}
			ins.Data = ps.internString(st.text)
		case pz.OpPick, pz.OpRoll:
			nt, nerr := ps.expect(tokNumber, "depth")
			if nerr != nil {
				return nerr
			}
			ins.Depth = uint32(nt.num) // #nosec G115 -- depths are small
		case pz.OpCall, pz.OpTCall:
			ct, cerr := ps.expect(tokIdent, "callee name")
			if cerr != nil {
				return cerr
			}
			ps.calls = append(ps.calls, pendingCall{
				proc: proc, block: len(proc.Blocks) - 1, instr: len(cur.Instrs),
				name: ct.text, line: ct.line,
			})
		case pz.OpCJmp:
			if ins.Width, err = ps.parseWidth(); err != nil {
				return err
			}
			lt, lerr := ps.expect(tokIdent, "jump target")
			if lerr != nil {
				return lerr
			}
			jumps = append(jumps, pendingJump{block: len(proc.Blocks) - 1, instr: len(cur.Instrs), label: lt.text, line: lt.line})
		case pz.OpJmp:
			lt, lerr := ps.expect(tokIdent, "jump target")
			if lerr != nil {
				return lerr
			}
			jumps = append(jumps, pendingJump{block: len(proc.Blocks) - 1, instr: len(cur.Instrs), label: lt.text, line: lt.line})
		case pz.OpAlloc:
			ws, werr := ps.parseWidthList()
			if werr != nil {
				return werr
			}
			ins.Struct = ps.internStruct(ws)
		case pz.OpStore, pz.OpLoadField:
			ws, werr := ps.parseWidthList()
			if werr != nil {
				return werr
			}
			ins.Struct = ps.internStruct(ws)
			nt, nerr := ps.expect(tokNumber, "field index")
			if nerr != nil {
				return nerr
			}
			ins.Field = uint32(nt.num) // #nosec G115 -- field counts are small
		default:
			if op.HasWidth() {
				if ins.Width, err = ps.parseWidth(); err != nil {
					return err
				}
			}
		}
		cur.Instrs = append(cur.Instrs, ins)
	}
	if err := ps.advance(); err != nil { // consume '}'
		return err
	}
	if _, err := ps.expect(tokSemi, "';'"); err != nil {
		return err
	}

	for _, j := range jumps {
		id, ok := labels[j.label]
		if !ok {
			return fmt.Errorf("line %d: unknown label %q", j.line, j.label)
		}
		proc.Blocks[j.block].Instrs[j.instr].Block = id
	}
	ps.procs[proc.Name] = ps.prog.AddProc(proc)
	return nil
}

// patchCalls resolves callee names once every proc in the file is known.
// Names that match no proc become imports.
func (ps *parser) patchCalls() error {
	for _, c := range ps.calls {
		ins := &c.proc.Blocks[c.block].Instrs[c.instr]
		if id, ok := ps.procs[c.name]; ok {
			ins.Proc = id
			continue
		}
		ins.Import = ps.internImport(c.name)
	}
	return nil
}

func (ps *parser) internString(s string) pz.DataID {
	if id, ok := ps.strs[s]; ok {
		return id
	}
	bytes := append([]byte(s), 0)
	id := ps.prog.AddData(&pz.Data{Kind: pz.DataArray, Width: pz.W8, Bytes: bytes})
	ps.strs[s] = id
	return id
}

func (ps *parser) internStruct(ws []pz.Width) pz.StructID {
	var sb strings.Builder
	for _, w := range ws {
		sb.WriteString(w.String())
		sb.WriteByte(' ')
	}
	key := sb.String()
	if id, ok := ps.structs[key]; ok {
		return id
	}
	id := ps.prog.AddStruct(&pz.Struct{Fields: ws})
	ps.structs[key] = id
	return id
}

func (ps *parser) internImport(name string) pz.ImportID {
	if id, ok := ps.imports[name]; ok {
		return id
	}
	id := ps.prog.AddImport(&pz.Import{Name: name})
	ps.imports[name] = id
	return id
}
