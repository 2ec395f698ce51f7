package pz

import (
	"fmt"
	"io"
	"strings"
)

// Write renders the program in its textual form. The output parses back
// through pz/pzasm into a structurally equal program modulo id
// renumbering: string data is printed inline at its use sites and
// re-interned by the assembler, struct layouts print as width lists.
func Write(w io.Writer, p *PZ) error {
	for i, id := range p.ProcIDs() {
		proc := p.MustProc(id)
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeProc(w, p, proc); err != nil {
			return err
		}
	}
	return nil
}

func writeProc(w io.Writer, p *PZ, proc *Proc) error {
	var sb strings.Builder
	sb.WriteString("proc ")
	sb.WriteString(proc.Name)
	sb.WriteString(" (")
	for _, width := range proc.Sig.Before {
		sb.WriteByte(' ')
		sb.WriteString(width.String())
	}
	sb.WriteString(" -")
	for _, width := range proc.Sig.After {
		sb.WriteByte(' ')
		sb.WriteString(width.String())
	}
	sb.WriteString(" ) {\n")
	for _, b := range proc.Blocks {
		if b.ID != 0 {
			fmt.Fprintf(&sb, "\tlabel b%d\n", b.ID)
		}
		for _, ins := range b.Instrs {
			sb.WriteByte('\t')
			sb.WriteString(formatInstr(p, ins))
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("};\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func formatInstr(p *PZ, ins Instr) string {
	name := ins.Op.String()
	switch ins.Op {
	case OpLoadImmediate:
		return fmt.Sprintf("%s %s %d", name, ins.Width, ins.Imm)
	case OpLoadData:
		d, ok := p.Data(ins.Data)
		if ok && d.Kind == DataArray && d.Width == W8 {
			return fmt.Sprintf("%s %s", name, quoteString(cutNul(d.Bytes)))
		}
		return fmt.Sprintf("%s data#%d", name, ins.Data)
	case OpPick, OpRoll:
		return fmt.Sprintf("%s %d", name, ins.Depth)
	case OpCall, OpTCall:
		return fmt.Sprintf("%s %s", name, p.calleeName(ins))
	case OpCJmp:
		return fmt.Sprintf("%s %s b%d", name, ins.Width, ins.Block)
	case OpJmp:
		return fmt.Sprintf("%s b%d", name, ins.Block)
	case OpAlloc:
		return fmt.Sprintf("%s %s", name, p.structText(ins.Struct))
	case OpStore, OpLoadField:
		return fmt.Sprintf("%s %s %d", name, p.structText(ins.Struct), ins.Field)
	}
	if ins.Op.HasWidth() {
		return fmt.Sprintf("%s %s", name, ins.Width)
	}
	return name
}

func (p *PZ) calleeName(ins Instr) string {
	if ins.Proc.IsValid() {
		if proc, ok := p.Proc(ins.Proc); ok {
			return proc.Name
		}
	}
	if ins.Import.IsValid() {
		if imp, ok := p.Import(ins.Import); ok {
			return imp.Name
		}
	}
	return "?"
}

func (p *PZ) structText(id StructID) string {
	s, ok := p.Struct(id)
	if !ok {
		return "( )"
	}
	var sb strings.Builder
	sb.WriteString("(")
	for _, f := range s.Fields {
		sb.WriteByte(' ')
		sb.WriteString(f.String())
	}
	sb.WriteString(" )")
	return sb.String()
}

// cutNul drops the trailing NUL terminator for display.
func cutNul(b []byte) string {
	if n := len(b); n > 0 && b[n-1] == 0 {
		return string(b[:n-1])
	}
	return string(b)
}

// quoteString uses exactly the escapes the assembler lexer understands.
func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case 0:
			sb.WriteString(`\0`)
		default:
			sb.WriteByte(c)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
