package symfile

import "github.com/pkg/errors"

// ErrParseFatal is the cause of every error LoadMap returns for a
// malformed record, unknown directive, or a line record with no
// current function. errors.Cause(err) == ErrParseFatal identifies it.
// A failure reading the input itself keeps the reader's error as its
// cause instead.
var ErrParseFatal = errors.New("malformed symbol file record")

// ErrVersionMismatch is returned by Decode when the envelope's format
// version does not match the version this package writes.
var ErrVersionMismatch = errors.New("symbol cache version mismatch")
