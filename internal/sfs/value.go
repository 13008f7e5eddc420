package sfs

// Value is a node in the tree serialized by this package. It stands in for
// the host runtime's own typed structured value (an R SEXP in the original);
// exactly the fields relevant to Tag are populated.
type Value struct {
	Tag Tag

	// Attrs holds (name, value) pairs, encoded as an ATTRSXP prefix
	// before the value itself. A "class" attribute flags the decoded
	// value as an object.
	Attrs  []Pair
	Object bool

	Ints  []int32
	Reals []float64
	Cplx  []complex128
	Raw   []byte
	Str   []string // STR: each element is a CHAR scalar; a lone CHAR keeps its payload in Str[0]

	Sym string // SYMSXP print name; empty name is the "missing arg" sentinel

	// VEC and CLO children.
	Children []Value
	// Pairs backs LIST/LANG: each element is a (tag name, value) pair,
	// the tag name may be empty.
	Pairs []Pair
}

// Pair is a single (name, value) association used by ATTRSXP, LIST and LANG.
type Pair struct {
	Name  string
	Value Value
}

func Nil() Value { return Value{Tag: NIL} }

func Ints(v []int32) Value  { return Value{Tag: INT, Ints: v} }
func Logicals(v []int32) Value { return Value{Tag: LGL, Ints: v} }
func Reals(v []float64) Value  { return Value{Tag: REAL, Reals: v} }
func RawBytes(v []byte) Value  { return Value{Tag: RAW, Raw: v} }
func Strings(v []string) Value { return Value{Tag: STR, Str: v} }
func Symbol(name string) Value { return Value{Tag: SYM, Sym: name} }
func Vector(v []Value) Value   { return Value{Tag: VEC, Children: v} }

// WithAttrs returns v with attrs attached (nil-safe: a nil/empty attrs slice
// is equivalent to no attributes at all).
func (v Value) WithAttrs(attrs []Pair) Value {
	v.Attrs = attrs
	for _, a := range attrs {
		if a.Name == "class" {
			v.Object = true
		}
	}
	return v
}
