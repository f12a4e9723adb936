package resolver

import "symresolve/symfile"

// ModuleDescriptor identifies the module a stack frame's instruction
// address falls within, exactly as the lookup engine needs it: a load
// base to make the address relative, and a code file used to find the
// module previously registered via LoadModule.
type ModuleDescriptor interface {
	BaseAddress() uint64
	CodeFile() string
}

// Frame is a stack frame's input and output for FillSourceLineInfo.
// Output fields are additive: FillSourceLineInfo only ever sets a
// field when it resolved a corresponding value, leaving the frame's
// existing contents alone otherwise.
type Frame struct {
	InstructionAddress uint64
	Module             ModuleDescriptor

	FunctionName   string
	FunctionBase   uint64
	SourceFileName string
	SourceLine     uint32
	SourceLineBase uint64
	FrameInfo      *symfile.StackFrameInfo
}

// FillSourceLineInfo resolves frame.InstructionAddress against the
// module named by frame.Module.CodeFile() (which must already be
// loaded) and fills in whatever it can. It returns the frame info it
// attached, or nil if none was found. Lookups never fail outright:
// an unknown module or unresolved address simply leaves frame
// unchanged and returns nil.
func (r *Resolver) FillSourceLineInfo(frame *Frame) *symfile.StackFrameInfo {
	if frame == nil || frame.Module == nil {
		return nil
	}

	r.mu.RLock()
	mod, ok := r.modules[frame.Module.CodeFile()]
	r.mu.RUnlock()
	if !ok {
		return nil
	}

	base := frame.Module.BaseAddress()
	relAddr := frame.InstructionAddress - base
	res := mod.Lookup(relAddr)

	if res.FunctionFound {
		frame.FunctionName = res.FunctionName
		frame.FunctionBase = base + res.FunctionBase
	} else if res.PublicFound {
		frame.FunctionName = res.PublicName
		frame.FunctionBase = base + res.PublicAddress
	}
	if res.SourceLineFound {
		frame.SourceFileName = res.SourceFileName
		frame.SourceLine = res.SourceLine
		frame.SourceLineBase = base + res.SourceLineBase
	}
	if res.FrameInfoFound {
		frame.FrameInfo = res.FrameInfo
		return res.FrameInfo
	}
	return nil
}
