package symfile

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"symresolve/internal/logging"
)

const maxLineSize = 1 << 20 // well beyond the 8 KiB floor; scanner grows on demand

// LoadMap reads a symbol file from r and builds a Module named name.
// It fails fast on malformed records (ErrParseFatal); overlap and
// containment rejections from the underlying containers are logged at
// debug level through logger and otherwise silently drop the offending
// record without aborting the load.
func LoadMap(r io.Reader, name string, logger logging.Logger) (*Module, error) {
	mod := NewModule(name)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 8*1024), maxLineSize)

	var curFunc *Function
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		var err error
		switch {
		case strings.HasPrefix(line, "MODULE "):
			parseModule(mod, line[len("MODULE "):])

		case strings.HasPrefix(line, "FILE "):
			err = parseFileRecord(mod, line[len("FILE "):])

		case strings.HasPrefix(line, "FUNC "):
			curFunc, err = parseFuncRecord(mod, line[len("FUNC "):], logger)

		case strings.HasPrefix(line, "PUBLIC "):
			curFunc = nil
			err = parsePublicRecord(mod, line[len("PUBLIC "):], logger)

		case strings.HasPrefix(line, "STACK WIN "):
			err = parseStackWinRecord(mod, line[len("STACK WIN "):], logger)

		case strings.HasPrefix(line, "STACK "):
			err = errors.New("unsupported STACK platform")

		default:
			if curFunc == nil {
				err = errors.New("source line record with no current function")
				break
			}
			err = parseLineRecord(curFunc, line, logger)
		}

		if err != nil {
			return nil, fatalf(lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading symbol file")
	}
	return mod, nil
}

func fatalf(lineNo int, cause error) error {
	return errors.Wrapf(ErrParseFatal, "line %d: %s", lineNo, cause)
}

// tokenize splits line into at most maxTokens fields on single spaces,
// with the final field taken verbatim (it may itself contain spaces,
// as with function names and program strings). It returns fewer than
// maxTokens tokens if line runs out of fields early; callers treat
// that as a malformed record.
func tokenize(line string, maxTokens int) []string {
	tokens := make([]string, 0, maxTokens)
	rest := line
	for len(tokens) < maxTokens-1 {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			return tokens
		}
		idx := strings.IndexByte(rest, ' ')
		if idx < 0 {
			tokens = append(tokens, rest)
			return tokens
		}
		tokens = append(tokens, rest[:idx])
		rest = rest[idx+1:]
	}
	rest = strings.TrimLeft(rest, " ")
	if rest == "" {
		return tokens
	}
	return append(tokens, rest)
}

func parseHex64(s string) (uint64, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	return strconv.ParseUint(s, 16, 64)
}

func parseHex32(s string) (uint32, error) {
	v, err := parseHex64(s)
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, errors.Errorf("%q exceeds 32 bits", s)
	}
	return uint32(v), nil
}

func parseModule(mod *Module, rest string) {
	tokens := tokenize(rest, 4)
	if len(tokens) != 4 {
		// MODULE is informational; an unparseable one is ignored outright.
		return
	}
	mod.Info = ModuleInfo{OS: tokens[0], Arch: tokens[1], ID: tokens[2], DebugFile: tokens[3]}
}

func parseFileRecord(mod *Module, rest string) error {
	tokens := tokenize(rest, 2)
	if len(tokens) != 2 {
		return errors.New("FILE: expected id and filename")
	}
	id, err := strconv.ParseInt(tokens[0], 10, 64)
	if err != nil {
		return errors.Wrap(err, "FILE: bad id")
	}
	if id < 0 {
		return errors.New("FILE: negative id")
	}
	mod.files[uint32(id)] = tokens[1]
	return nil
}

func parseFuncRecord(mod *Module, rest string, logger logging.Logger) (*Function, error) {
	tokens := tokenize(rest, 4)
	if len(tokens) != 4 {
		return nil, errors.New("FUNC: expected address, size, param size, and name")
	}
	addr, err := parseHex64(tokens[0])
	if err != nil {
		return nil, errors.Wrap(err, "FUNC: bad address")
	}
	size, err := parseHex64(tokens[1])
	if err != nil {
		return nil, errors.Wrap(err, "FUNC: bad size")
	}
	paramSize, err := parseHex32(tokens[2])
	if err != nil {
		return nil, errors.Wrap(err, "FUNC: bad parameter size")
	}
	fn := &Function{Name: tokens[3], Address: addr, Size: size, ParameterSize: paramSize}
	if !mod.functions.StoreRange(addr, size, fn) {
		logger.Debug("msg", "dropped function", "reason", "overlap or zero size", "name", fn.Name, "address", addr, "size", size)
	}
	return fn, nil
}

func parsePublicRecord(mod *Module, rest string, logger logging.Logger) error {
	tokens := tokenize(rest, 3)
	if len(tokens) != 3 {
		return errors.New("PUBLIC: expected address, param size, and name")
	}
	addr, err := parseHex64(tokens[0])
	if err != nil {
		return errors.Wrap(err, "PUBLIC: bad address")
	}
	paramSize, err := parseHex32(tokens[1])
	if err != nil {
		return errors.Wrap(err, "PUBLIC: bad parameter size")
	}
	if addr == 0 {
		// Silently accepted but not stored.
		return nil
	}
	ps := &PublicSymbol{Name: tokens[2], Address: addr, ParameterSize: paramSize}
	if !mod.publicSymbols.Store(addr, ps) {
		logger.Debug("msg", "dropped public symbol", "reason", "duplicate address", "name", ps.Name, "address", addr)
	}
	return nil
}

func parseLineRecord(fn *Function, line string, logger logging.Logger) error {
	tokens := tokenize(line, 4)
	if len(tokens) != 4 {
		return errors.New("line record: expected address, size, line number, and file id")
	}
	addr, err := parseHex64(tokens[0])
	if err != nil {
		return errors.Wrap(err, "line record: bad address")
	}
	size, err := parseHex64(tokens[1])
	if err != nil {
		return errors.Wrap(err, "line record: bad size")
	}
	lineNum, err := strconv.ParseInt(tokens[2], 10, 64)
	if err != nil {
		return errors.Wrap(err, "line record: bad line number")
	}
	if lineNum <= 0 {
		return errors.New("line record: non-positive line number")
	}
	fileID, err := strconv.ParseInt(tokens[3], 10, 64)
	if err != nil {
		return errors.Wrap(err, "line record: bad file id")
	}
	if fileID < 0 {
		return errors.New("line record: negative file id")
	}
	ln := Line{Address: addr, Size: size, SourceFileID: uint32(fileID), LineNumber: uint32(lineNum)}
	if !fn.Lines.StoreRange(addr, size, ln) {
		logger.Debug("msg", "dropped source line", "reason", "overlap or zero size", "function", fn.Name, "address", addr)
	}
	return nil
}

// parseStackWinRecord parses the fields following "STACK WIN ".
func parseStackWinRecord(mod *Module, rest string, logger logging.Logger) error {
	tokens := tokenize(rest, 11)
	if len(tokens) != 11 {
		return errors.New("STACK WIN: expected 10 numeric fields and a trailing field")
	}
	stackType, err := parseHex32(tokens[0])
	if err != nil {
		return errors.Wrap(err, "STACK WIN: bad type")
	}
	if stackType >= uint32(numStackInfoTypes) {
		return errors.Errorf("STACK WIN: type %d out of range", stackType)
	}
	rva, err := parseHex64(tokens[1])
	if err != nil {
		return errors.Wrap(err, "STACK WIN: bad rva")
	}
	codeSize, err := parseHex64(tokens[2])
	if err != nil {
		return errors.Wrap(err, "STACK WIN: bad code size")
	}
	prolog, err := parseHex32(tokens[3])
	if err != nil {
		return errors.Wrap(err, "STACK WIN: bad prolog size")
	}
	epilog, err := parseHex32(tokens[4])
	if err != nil {
		return errors.Wrap(err, "STACK WIN: bad epilog size")
	}
	param, err := parseHex32(tokens[5])
	if err != nil {
		return errors.Wrap(err, "STACK WIN: bad parameter size")
	}
	saved, err := parseHex32(tokens[6])
	if err != nil {
		return errors.Wrap(err, "STACK WIN: bad saved register size")
	}
	local, err := parseHex32(tokens[7])
	if err != nil {
		return errors.Wrap(err, "STACK WIN: bad local size")
	}
	maxStack, err := parseHex32(tokens[8])
	if err != nil {
		return errors.Wrap(err, "STACK WIN: bad max stack size")
	}
	hasProgramString, err := parseHex32(tokens[9])
	if err != nil {
		return errors.Wrap(err, "STACK WIN: bad has-program-string flag")
	}

	info := &StackFrameInfo{
		ValidMask:         validMaskFor(true, true, true, true, true, true, hasProgramString == 0, hasProgramString != 0),
		PrologSize:        prolog,
		EpilogSize:        epilog,
		ParameterSize:     param,
		SavedRegisterSize: saved,
		LocalSize:         local,
		MaxStackSize:      maxStack,
	}
	if hasProgramString != 0 {
		info.ProgramString = tokens[10]
	} else {
		bp, err := parseHex32(tokens[10])
		if err != nil {
			return errors.Wrap(err, "STACK WIN: bad allocates-base-pointer flag")
		}
		info.AllocatesBasePtr = bp != 0
	}

	t := StackInfoType(stackType)
	if !mod.stackInfo[t].StoreRange(rva, codeSize, info) {
		logger.Debug("msg", "dropped stack frame info", "reason", "overlap", "type", t.String(), "address", rva)
	}
	return nil
}

func validMaskFor(prolog, epilog, param, saved, local, maxStack, allocatesBP, programString bool) uint32 {
	var v uint32
	if prolog {
		v |= ValidPrologSize
	}
	if epilog {
		v |= ValidEpilogSize
	}
	if param {
		v |= ValidParameterSize
	}
	if saved {
		v |= ValidSavedRegisterSize
	}
	if local {
		v |= ValidLocalSize
	}
	if maxStack {
		v |= ValidMaxStackSize
	}
	if allocatesBP {
		v |= ValidAllocatesBasePtr
	}
	if programString {
		v |= ValidProgramString
	}
	return v
}
