package sfs

// Sink is the pluggable write side of the codec — a store_api_t vtable in
// the original design, collapsed to a single-method interface since Go
// interfaces already provide the safe dynamic dispatch the original needed
// a function pointer plus opaque context for.
//
// Store is called once per record: header information (tag, element size,
// length) is always present; payload is nil for composite records whose
// children are themselves encoded as subsequent Store calls.
type Sink interface {
	Store(tag Tag, elemSize, length uint64, payload []byte) error
}

// Source is the pluggable read side of the codec. Fetch must fill buf
// completely or return a non-nil error — short reads are always fatal, the
// codec has no way to make partial progress.
type Source interface {
	Fetch(buf []byte) error
}
