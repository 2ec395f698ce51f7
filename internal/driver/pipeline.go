// Package driver wires the compiler passes into a pipeline and
// orchestrates whole builds: front end, analyses, code generation,
// caching and multi-file scheduling.
package driver

import (
	"bytes"

	"plasma/internal/builtin"
	"plasma/internal/codegen"
	"plasma/internal/core"
	"plasma/internal/diag"
	"plasma/internal/lower"
	"plasma/internal/parser"
	"plasma/internal/pz"
	"plasma/internal/sema"
	"plasma/internal/source"
)

// Result is everything one compilation produced.
type Result struct {
	Path    string
	FileSet *source.FileSet
	Bag     *diag.Bag
	Prog    *pz.PZ
	Text    []byte // textual bytecode, nil when compilation failed
}

// Options configure a compilation.
type Options struct {
	MaxDiagnostics int
}

func (o Options) maxDiags() int {
	if o.MaxDiagnostics <= 0 {
		return 100
	}
	return o.MaxDiagnostics
}

// CompileFile loads and compiles a single source file.
func CompileFile(path string, opts Options) *Result {
	fs := source.NewFileSet()
	bag := diag.NewBag(opts.maxDiags())
	res := &Result{Path: path, FileSet: fs, Bag: bag}
	id, err := fs.Load(path)
	if err != nil {
		bag.Add(diag.NewError(diag.IOLoadFileError, source.Span{}, err.Error()))
		return res
	}
	compile(res, fs.Get(id))
	return res
}

// CompileSource compiles in-memory source, for tests and tooling.
func CompileSource(name string, src []byte, opts Options) *Result {
	fs := source.NewFileSet()
	bag := diag.NewBag(opts.maxDiags())
	res := &Result{Path: name, FileSet: fs, Bag: bag}
	id := fs.AddVirtual(name, src)
	compile(res, fs.Get(id))
	return res
}

// compile runs the pass pipeline. Passes accumulate diagnostics and
// skip failed functions individually; the driver halts at stage
// boundaries once the bag holds errors.
func compile(res *Result, file *source.File) {
	rep := diag.BagReporter{Bag: res.Bag}

	// Stage 1: surface syntax to core IR.
	mod := parser.ParseModule(file, rep)
	c := core.NewCore(core.Name(mod.Name))
	tbl := builtin.Install(c)
	lower.Module(mod, tbl, c, rep)
	if res.Bag.HasErrors() {
		return
	}

	// Stage 2: arity, then types over the same SCC order.
	failed := sema.InferArity(c, rep)
	failed = sema.InferTypes(c, failed, rep)
	if res.Bag.HasErrors() {
		return
	}

	// Stage 3: representation decisions.
	prog := pz.New()
	tags, tagsOK := codegen.AssignTags(c, rep)
	data := codegen.CollectConstData(c, prog, rep)
	if !tagsOK || res.Bag.HasErrors() {
		return
	}

	// Stage 4: lowering to bytecode.
	prog, genOK := codegen.Generate(c, tags, data, tbl.Impls, failed, prog, rep)
	if !genOK || res.Bag.HasErrors() {
		return
	}
	res.Prog = prog

	var buf bytes.Buffer
	if err := pz.Write(&buf, prog); err != nil {
		res.Bag.Add(diag.NewInternal("driver", source.Span{}, err.Error()))
		return
	}
	res.Text = buf.Bytes()
}

// ExitCode maps a result onto the CLI contract: 0 success, 1 compile
// errors, 2 internal errors.
func (r *Result) ExitCode() int {
	switch {
	case r.Bag.HasInternal():
		return 2
	case r.Bag.HasErrors():
		return 1
	default:
		return 0
	}
}
