package symfile

// LookupResult carries everything the lookup engine was able to
// resolve for one relative address. Each *Found flag gates the fields
// it corresponds to; unset fields are left at their zero value so a
// caller can additively merge a LookupResult into an existing record.
type LookupResult struct {
	FrameInfo      *StackFrameInfo
	FrameInfoFound bool

	FunctionFound bool
	FunctionName  string
	FunctionBase  uint64 // relative to the module's load base

	SourceLineFound bool
	SourceFileName  string
	SourceLine      uint32
	SourceLineBase  uint64 // relative to the module's load base

	PublicFound   bool
	PublicName    string
	PublicAddress uint64 // relative to the module's load base
}

// Lookup answers function/line/frame questions for relAddr, an
// address already made relative to the module's load base.
func (m *Module) Lookup(relAddr uint64) LookupResult {
	var res LookupResult

	if info, ok := m.stackInfo[StackInfoFrameData].RetrieveRange(relAddr); ok {
		res.FrameInfo, res.FrameInfoFound = cloneStackFrameInfo(info), true
	} else if info, ok := m.stackInfo[StackInfoFPO].RetrieveRange(relAddr); ok {
		res.FrameInfo, res.FrameInfoFound = cloneStackFrameInfo(info), true
	}

	fn, fb, fs, fnOK := m.functions.RetrieveNearestRange(relAddr)
	funcCovers := fnOK && fb <= relAddr && relAddr < fb+fs

	var publicParamSize uint32
	if funcCovers {
		res.FunctionFound = true
		res.FunctionName = fn.Name
		res.FunctionBase = fb

		if ln, lb, _, ok := fn.Lines.RetrieveRange(relAddr); ok {
			res.SourceLineFound = true
			res.SourceLine = ln.LineNumber
			res.SourceLineBase = lb
			if name, ok := m.files[ln.SourceFileID]; ok {
				res.SourceFileName = name
			}
		}
	} else if ps, pa, ok := m.publicSymbols.Retrieve(relAddr); ok && (!fnOK || pa > fb+fs) {
		res.PublicFound = true
		res.PublicName = ps.Name
		res.PublicAddress = pa
		publicParamSize = ps.ParameterSize
	}

	if !res.FrameInfoFound && (res.FunctionFound || res.PublicFound) {
		paramSize := publicParamSize
		if res.FunctionFound {
			paramSize = fn.ParameterSize
		}
		res.FrameInfo = &StackFrameInfo{ParameterSize: paramSize, ValidMask: ValidParameterSize}
		res.FrameInfoFound = true
	}

	return res
}

func cloneStackFrameInfo(p *StackFrameInfo) *StackFrameInfo {
	c := *p
	return &c
}
