package symfile

import (
	"encoding/binary"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// FormatVersion is the only format_version this package writes or
// accepts on read. A mismatched version is ErrVersionMismatch, never
// a best-effort partial decode.
const FormatVersion uint32 = 1

type encoder struct{ w io.Writer }

func (e *encoder) u32(v uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	_, err := e.w.Write(buf[:])
	return err
}

func (e *encoder) u64(v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := e.w.Write(buf[:])
	return err
}

func (e *encoder) bool32(b bool) error {
	if b {
		return e.u32(1)
	}
	return e.u32(0)
}

func (e *encoder) str(s string) error {
	b := []byte(s)
	padded := (len(b) + 3) &^ 3
	if err := e.u32(uint32(padded)); err != nil {
		return err
	}
	if padded == 0 {
		return nil
	}
	buf := make([]byte, padded)
	copy(buf, b)
	_, err := e.w.Write(buf)
	return err
}

type decoder struct{ r io.Reader }

func (d *decoder) u32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (d *decoder) u64() (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func (d *decoder) bool32() (bool, error) {
	v, err := d.u32()
	return v != 0, err
}

func (d *decoder) str() (string, error) {
	n, err := d.u32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	end := len(buf)
	for end > 0 && buf[end-1] == 0 {
		end--
	}
	return string(buf[:end]), nil
}

// Encode writes m to w in the versioned binary envelope this package
// defines. Encode is deterministic: the same Module always produces
// the same bytes.
func Encode(w io.Writer, m *Module) error {
	e := &encoder{w: w}
	if err := e.u32(FormatVersion); err != nil {
		return errors.Wrap(err, "writing format version")
	}
	if err := encodeFiles(e, m); err != nil {
		return errors.Wrap(err, "writing files")
	}
	if err := encodeFunctions(e, m); err != nil {
		return errors.Wrap(err, "writing functions")
	}
	if err := encodePublicSymbols(e, m); err != nil {
		return errors.Wrap(err, "writing public symbols")
	}
	for t := range m.stackInfo {
		if err := encodeStackInfo(e, &m.stackInfo[t]); err != nil {
			return errors.Wrapf(err, "writing stack info tree %d", t)
		}
	}
	return nil
}

// Decode reads a Module named name from r. It returns ErrVersionMismatch
// (rather than attempting a best-effort decode) if the envelope's
// format_version does not equal FormatVersion, and an error if any
// bytes follow the last stack info tree.
func Decode(r io.Reader, name string) (*Module, error) {
	d := &decoder{r: r}
	version, err := d.u32()
	if err != nil {
		return nil, errors.Wrap(err, "reading format version")
	}
	if version != FormatVersion {
		return nil, errors.Wrapf(ErrVersionMismatch, "got version %d, want %d", version, FormatVersion)
	}

	mod := NewModule(name)
	if err := decodeFiles(d, mod); err != nil {
		return nil, errors.Wrap(err, "reading files")
	}
	if err := decodeFunctions(d, mod); err != nil {
		return nil, errors.Wrap(err, "reading functions")
	}
	if err := decodePublicSymbols(d, mod); err != nil {
		return nil, errors.Wrap(err, "reading public symbols")
	}
	for t := range mod.stackInfo {
		tree, err := decodeStackInfo(d)
		if err != nil {
			return nil, errors.Wrapf(err, "reading stack info tree %d", t)
		}
		mod.stackInfo[t] = tree
	}
	var extra [1]byte
	if n, _ := io.ReadFull(d.r, extra[:]); n != 0 {
		return nil, errors.New("trailing bytes after stack info trees")
	}
	return mod, nil
}

func encodeFiles(e *encoder, m *Module) error {
	ids := make([]uint32, 0, len(m.files))
	for id := range m.files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if err := e.u32(uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if err := e.u32(id); err != nil {
			return err
		}
		if err := e.str(m.files[id]); err != nil {
			return err
		}
	}
	return nil
}

func decodeFiles(d *decoder, m *Module) error {
	count, err := d.u32()
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		id, err := d.u32()
		if err != nil {
			return err
		}
		name, err := d.str()
		if err != nil {
			return err
		}
		m.files[id] = name
	}
	return nil
}

func encodeFunctions(e *encoder, m *Module) error {
	writeU32 := func(v uint64) error { return e.u32(uint32(v)) }
	return m.functions.WriteTo(writeU32, e.u64, func(fn *Function) error {
		return encodeFunction(e, fn)
	})
}

func decodeFunctions(d *decoder, m *Module) error {
	readU32 := func() (uint64, error) { v, err := d.u32(); return uint64(v), err }
	return m.functions.ReadFrom(readU32, d.u64, func() (*Function, error) {
		return decodeFunction(d)
	})
}

func encodeFunction(e *encoder, fn *Function) error {
	if err := e.str(fn.Name); err != nil {
		return err
	}
	if err := e.u64(fn.Address); err != nil {
		return err
	}
	if err := e.u64(fn.Size); err != nil {
		return err
	}
	if err := e.u32(fn.ParameterSize); err != nil {
		return err
	}
	writeU32 := func(v uint64) error { return e.u32(uint32(v)) }
	return fn.Lines.WriteTo(writeU32, e.u64, func(ln Line) error {
		return encodeLine(e, ln)
	})
}

func decodeFunction(d *decoder) (*Function, error) {
	name, err := d.str()
	if err != nil {
		return nil, err
	}
	addr, err := d.u64()
	if err != nil {
		return nil, err
	}
	size, err := d.u64()
	if err != nil {
		return nil, err
	}
	paramSize, err := d.u32()
	if err != nil {
		return nil, err
	}
	fn := &Function{Name: name, Address: addr, Size: size, ParameterSize: paramSize}
	readU32 := func() (uint64, error) { v, err := d.u32(); return uint64(v), err }
	if err := fn.Lines.ReadFrom(readU32, d.u64, func() (Line, error) {
		return decodeLine(d)
	}); err != nil {
		return nil, err
	}
	return fn, nil
}

func encodeLine(e *encoder, ln Line) error {
	if err := e.u64(ln.Address); err != nil {
		return err
	}
	if err := e.u64(ln.Size); err != nil {
		return err
	}
	if err := e.u32(ln.SourceFileID); err != nil {
		return err
	}
	return e.u32(ln.LineNumber)
}

func decodeLine(d *decoder) (Line, error) {
	var ln Line
	var err error
	if ln.Address, err = d.u64(); err != nil {
		return ln, err
	}
	if ln.Size, err = d.u64(); err != nil {
		return ln, err
	}
	if ln.SourceFileID, err = d.u32(); err != nil {
		return ln, err
	}
	if ln.LineNumber, err = d.u32(); err != nil {
		return ln, err
	}
	return ln, nil
}

func encodePublicSymbols(e *encoder, m *Module) error {
	writeU32 := func(v uint64) error { return e.u32(uint32(v)) }
	return m.publicSymbols.WriteTo(writeU32, e.u64, func(ps *PublicSymbol) error {
		return encodePublicSymbol(e, ps)
	})
}

func decodePublicSymbols(d *decoder, m *Module) error {
	readU32 := func() (uint64, error) { v, err := d.u32(); return uint64(v), err }
	return m.publicSymbols.ReadFrom(readU32, d.u64, func() (*PublicSymbol, error) {
		return decodePublicSymbol(d)
	})
}

func encodePublicSymbol(e *encoder, ps *PublicSymbol) error {
	if err := e.str(ps.Name); err != nil {
		return err
	}
	if err := e.u64(ps.Address); err != nil {
		return err
	}
	return e.u32(ps.ParameterSize)
}

func decodePublicSymbol(d *decoder) (*PublicSymbol, error) {
	ps := &PublicSymbol{}
	var err error
	if ps.Name, err = d.str(); err != nil {
		return nil, err
	}
	if ps.Address, err = d.u64(); err != nil {
		return nil, err
	}
	if ps.ParameterSize, err = d.u32(); err != nil {
		return nil, err
	}
	return ps, nil
}

func encodeStackInfo(e *encoder, tree interface {
	WriteTo(writeU32, writeU64 func(uint64) error, writeEntry func(*StackFrameInfo) error) error
}) error {
	writeU32 := func(v uint64) error { return e.u32(uint32(v)) }
	return tree.WriteTo(writeU32, e.u64, func(info *StackFrameInfo) error {
		return encodeFrameInfo(e, info)
	})
}

func decodeStackInfo(d *decoder) (stackInfoTree, error) {
	var tree stackInfoTree
	readU32 := func() (uint64, error) { v, err := d.u32(); return uint64(v), err }
	if err := tree.ReadFrom(readU32, d.u64, func() (*StackFrameInfo, error) {
		return decodeFrameInfo(d)
	}); err != nil {
		return tree, err
	}
	return tree, nil
}

func encodeFrameInfo(e *encoder, info *StackFrameInfo) error {
	if info == nil {
		info = &StackFrameInfo{}
	}
	if err := e.u32(info.ValidMask); err != nil {
		return err
	}
	if err := e.u32(info.PrologSize); err != nil {
		return err
	}
	if err := e.u32(info.EpilogSize); err != nil {
		return err
	}
	if err := e.u32(info.ParameterSize); err != nil {
		return err
	}
	if err := e.u32(info.SavedRegisterSize); err != nil {
		return err
	}
	if err := e.u32(info.LocalSize); err != nil {
		return err
	}
	if err := e.u32(info.MaxStackSize); err != nil {
		return err
	}
	if err := e.bool32(info.AllocatesBasePtr); err != nil {
		return err
	}
	return e.str(info.ProgramString)
}

func decodeFrameInfo(d *decoder) (*StackFrameInfo, error) {
	info := &StackFrameInfo{}
	var err error
	if info.ValidMask, err = d.u32(); err != nil {
		return nil, err
	}
	if info.PrologSize, err = d.u32(); err != nil {
		return nil, err
	}
	if info.EpilogSize, err = d.u32(); err != nil {
		return nil, err
	}
	if info.ParameterSize, err = d.u32(); err != nil {
		return nil, err
	}
	if info.SavedRegisterSize, err = d.u32(); err != nil {
		return nil, err
	}
	if info.LocalSize, err = d.u32(); err != nil {
		return nil, err
	}
	if info.MaxStackSize, err = d.u32(); err != nil {
		return nil, err
	}
	if info.AllocatesBasePtr, err = d.bool32(); err != nil {
		return nil, err
	}
	if info.ProgramString, err = d.str(); err != nil {
		return nil, err
	}
	return info, nil
}
