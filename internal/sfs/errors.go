package sfs

import "github.com/pkg/errors"

var (
	// ErrShortRead is returned by Decode when a Source could not supply
	// as many bytes as a record header promised.
	ErrShortRead = errors.New("sfs: short read")
	// ErrUnimplementedTag is returned by Decode for a tag this codec has
	// no decoding rule for.
	ErrUnimplementedTag = errors.New("sfs: unimplemented tag")
)
