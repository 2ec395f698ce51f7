// Package codegen lowers the analyzed core IR into stack bytecode. It
// owns the three backend decisions: how constructors are represented in
// a machine word (tag assignment), where string literals live
// (const-data interning), and the instruction selection itself.
package codegen

import (
	"fmt"

	"plasma/internal/core"
	"plasma/internal/diag"
)

// NumPtagBits is the number of low pointer bits reserved for the primary
// tag. It is an ABI contract with the VM runtime and must equal the
// runtime's matching constant.
const NumPtagBits = 2

// NumPtags is the number of distinct primary tag values.
const NumPtags = 1 << NumPtagBits

// TagKind enumerates constructor representations.
type TagKind uint8

const (
	// TagConstantNotag is a raw integer; used when the whole type is a
	// strict enum and no pointer tag is needed.
	TagConstantNotag TagKind = iota
	// TagConstant is a nullary constructor of a mixed type, encoded as
	// ptag|word_bits<<NumPtagBits under the primary tag reserved for
	// nullary constructors.
	TagConstant
	// TagTaggedPointer is a heap allocation whose pointer carries the
	// primary tag in its low bits.
	TagTaggedPointer
)

// CtorTagInfo is the representation decision for one constructor.
type CtorTagInfo struct {
	Kind     TagKind
	Num      uint64 // TagConstantNotag: declaration index
	PTag     uint8  // TagConstant, TagTaggedPointer
	WordBits uint64 // TagConstant: index among the nullary constructors
}

// Encode returns the machine word for a constant-encoded constructor.
// Calling it on a tagged pointer is a bug.
func (ti CtorTagInfo) Encode() uint64 {
	switch ti.Kind {
	case TagConstantNotag:
		return ti.Num
	case TagConstant:
		return uint64(ti.PTag) | ti.WordBits<<NumPtagBits
	}
	panic("codegen: Encode on tagged-pointer constructor")
}

// TagMap holds the tag assignment for every constructor in the module.
type TagMap map[core.CtorID]CtorTagInfo

// AssignTags decides the representation of every constructor of every
// user type. Returns false when a type hits the secondary-tag
// limitation.
func AssignTags(c *core.Core, r diag.Reporter) (TagMap, bool) {
	tags := make(TagMap)
	ok := true
	for _, tid := range c.TypeIDs() {
		td := c.MustType(tid)
		if !assignTypeTags(c, td, tags, r) {
			ok = false
		}
	}
	return tags, ok
}

func assignTypeTags(c *core.Core, td *core.TypeDef, tags TagMap, r diag.Reporter) bool {
	var noArgs, withArgs []core.CtorID
	for _, cid := range td.Ctors {
		if c.MustCtor(cid).IsNullary() {
			noArgs = append(noArgs, cid)
		} else {
			withArgs = append(withArgs, cid)
		}
	}

	// A type with only nullary constructors is a strict enum: raw
	// integers in declaration order, no pointer tag reserved.
	if len(withArgs) == 0 {
		for i, cid := range td.Ctors {
			tags[cid] = CtorTagInfo{Kind: TagConstantNotag, Num: uint64(i)} // #nosec G115
		}
		return true
	}

	// Primary tag 0 is reserved for the nullary constructors when there
	// are any. A single nullary constructor then encodes as the zero
	// word, bit-identical to a null pointer; the VM relies on this.
	next := uint8(0)
	if len(noArgs) > 0 {
		for i, cid := range noArgs {
			tags[cid] = CtorTagInfo{Kind: TagConstant, PTag: 0, WordBits: uint64(i)} // #nosec G115
		}
		next = 1
	}
	for _, cid := range withArgs {
		if next >= NumPtags {
			ctor := c.MustCtor(cid)
			r.Report(diag.NewError(diag.LimSecondaryTags, ctor.Span,
				fmt.Sprintf("type %s has too many non-nullary constructors (%s needs primary tag %d of %d): secondary tags not supported",
					td.Name, ctor.Name, next, NumPtags)))
			return false
		}
		tags[cid] = CtorTagInfo{Kind: TagTaggedPointer, PTag: next}
		next++
	}
	return true
}
