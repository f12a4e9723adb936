// Package symfile parses symbol files and builds an in-memory, byte-
// exactly serializable index that answers function, source-line, and
// stack-frame questions for an address within a module.
package symfile

import (
	"symresolve/arch"
	"symresolve/internal/addressmap"
	"symresolve/internal/containedrange"
	"symresolve/internal/rangemap"
)

// StackInfoType identifies one of the five parallel stack-frame
// containment trees a Module carries. Only FPO and FrameData are ever
// consulted by the lookup engine; the others are carried solely for
// on-disk forward/backward compatibility.
type StackInfoType int

const (
	StackInfoFPO StackInfoType = iota
	StackInfoTrap
	StackInfoTSS
	StackInfoStandard
	StackInfoFrameData
	numStackInfoTypes
)

func (t StackInfoType) String() string {
	switch t {
	case StackInfoFPO:
		return "FPO"
	case StackInfoTrap:
		return "TRAP"
	case StackInfoTSS:
		return "TSS"
	case StackInfoStandard:
		return "STANDARD"
	case StackInfoFrameData:
		return "FRAME_DATA"
	default:
		return "UNKNOWN"
	}
}

// Line is one source-line record within a Function.
type Line struct {
	Address      uint64
	Size         uint64
	SourceFileID uint32
	LineNumber   uint32
}

// Function is one FUNC record, with its nested source lines indexed
// by address.
type Function struct {
	Name          string
	Address       uint64
	Size          uint64
	ParameterSize uint32
	Lines         rangemap.Map[Line]
}

// PublicSymbol is one PUBLIC record: a named point with no size or
// line information.
type PublicSymbol struct {
	Name          string
	Address       uint64
	ParameterSize uint32
}

// StackFrameInfo is one STACK WIN record: a description of how to
// unwind a range of addresses.
type StackFrameInfo struct {
	ValidMask          uint32
	PrologSize         uint32
	EpilogSize         uint32
	ParameterSize      uint32
	SavedRegisterSize  uint32
	LocalSize          uint32
	MaxStackSize       uint32
	AllocatesBasePtr   bool
	ProgramString      string
}

// Validity bits for StackFrameInfo.ValidMask. Only ValidParameterSize
// is produced by the synthesized-frame-info path in the lookup engine;
// the rest describe a full STACK WIN record.
const (
	ValidParameterSize uint32 = 1 << iota
	ValidPrologSize
	ValidEpilogSize
	ValidSavedRegisterSize
	ValidLocalSize
	ValidMaxStackSize
	ValidAllocatesBasePtr
	ValidProgramString
)

// ModuleInfo is informational metadata captured from a MODULE
// directive. It never participates in serialization or Module.Equals:
// the resolver's lookup procedures never consult it.
type ModuleInfo struct {
	OS        string
	Arch      string
	ID        string
	DebugFile string
}

// ResolvedArch returns the arch.Arch matching m.Arch, or nil if
// unrecognized.
func (m ModuleInfo) ResolvedArch() *arch.Arch {
	return arch.ByName(m.Arch)
}

// stackInfoTree is the concrete container backing one of a Module's
// five parallel stack-frame-info trees.
type stackInfoTree = containedrange.Map[*StackFrameInfo]

// Module is the fully-indexed form of one symbol file.
type Module struct {
	Name string
	Info ModuleInfo

	files         map[uint32]string
	functions     rangemap.Map[*Function]
	publicSymbols addressmap.Map[*PublicSymbol]
	stackInfo     [numStackInfoTypes]stackInfoTree
}

// NewModule returns an empty Module ready to be populated by a parser
// or a deserializer.
func NewModule(name string) *Module {
	return &Module{
		Name:  name,
		files: make(map[uint32]string),
	}
}

// FileName returns the filename registered under id, or "" if id was
// never registered via a FILE record.
func (m *Module) FileName(id uint32) (string, bool) {
	name, ok := m.files[id]
	return name, ok
}

// Files calls f for every (id, filename) pair. Iteration order is
// unspecified.
func (m *Module) Files(f func(id uint32, filename string)) {
	for id, name := range m.files {
		f(id, name)
	}
}
