package symfile

// Equals reports whether m and other have structurally identical
// files, functions, public symbols, and stack-frame trees. ModuleInfo
// and Name are excluded: they are informational and never part of the
// serialized envelope.
func (m *Module) Equals(other *Module) bool {
	if len(m.files) != len(other.files) {
		return false
	}
	for id, name := range m.files {
		if other.files[id] != name {
			return false
		}
	}

	if !m.functions.Equals(&other.functions, functionEquals) {
		return false
	}
	if !m.publicSymbols.Equals(&other.publicSymbols, publicSymbolEquals) {
		return false
	}
	for t := range m.stackInfo {
		if !m.stackInfo[t].Equals(&other.stackInfo[t], stackFrameInfoEquals) {
			return false
		}
	}
	return true
}

func functionEquals(a, b *Function) bool {
	if a.Name != b.Name || a.Address != b.Address || a.Size != b.Size || a.ParameterSize != b.ParameterSize {
		return false
	}
	return a.Lines.Equals(&b.Lines, lineEquals)
}

func lineEquals(a, b Line) bool {
	return a == b
}

func publicSymbolEquals(a, b *PublicSymbol) bool {
	return *a == *b
}

func stackFrameInfoEquals(a, b *StackFrameInfo) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
