package codegen

import (
	"fmt"

	"golang.org/x/text/unicode/norm"

	"plasma/internal/core"
	"plasma/internal/diag"
	"plasma/internal/pz"
)

// DataMap maps each distinct string literal to its interned data id.
type DataMap map[string]pz.DataID

// CollectConstData walks every function body and interns each string
// literal once as a NUL-terminated byte array. Literals are NFC
// normalized first so visually identical literals share one entry.
// The byte-per-character policy makes this ASCII-only; anything else is
// a design limitation.
func CollectConstData(c *core.Core, prog *pz.PZ, r diag.Reporter) DataMap {
	dm := make(DataMap)
	for _, id := range c.FuncIDs() {
		f := c.MustFunction(id)
		if !f.HasBody() {
			continue
		}
		core.WalkExpr(f.Body.Expr, func(e *core.Expr) {
			data, ok := e.Data.(core.ConstantData)
			if !ok || data.Const.Kind != core.ConstString {
				return
			}
			dm.intern(prog, data.Const.Str, e, r)
		})
	}
	return dm
}

func (dm DataMap) intern(prog *pz.PZ, s string, e *core.Expr, r diag.Reporter) pz.DataID {
	s = norm.NFC.String(s)
	if id, ok := dm[s]; ok {
		return id
	}
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			if e != nil {
				r.Report(diag.NewError(diag.LimNonASCIIString, e.Info.Span,
					fmt.Sprintf("string literal %q is not ASCII: non-ASCII strings not supported", s)))
			}
			break
		}
	}
	bytes := append([]byte(s), 0)
	id := prog.AddData(&pz.Data{Kind: pz.DataArray, Width: pz.W8, Bytes: bytes})
	dm[s] = id
	return id
}

// Intern exposes interning for strings that do not come from a source
// literal; limitation diagnostics for such strings are discarded.
func (dm DataMap) Intern(prog *pz.PZ, s string) pz.DataID {
	return dm.intern(prog, s, nil, diag.NopReporter{})
}
