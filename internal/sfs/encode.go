package sfs

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Encode writes v to sink as a stream of SFS records, recursively.
func Encode(sink Sink, v Value) error {
	if len(v.Attrs) > 0 {
		if err := storeHeader(sink, ATTRSXP, 0, uint64(len(v.Attrs))); err != nil {
			return err
		}
		for _, a := range v.Attrs {
			if err := Encode(sink, Symbol(a.Name)); err != nil {
				return err
			}
			if err := Encode(sink, a.Value); err != nil {
				return err
			}
		}
	}
	return encodeValue(sink, v)
}

func storeHeader(sink Sink, tag Tag, elemSize, length uint64) error {
	return sink.Store(tag, elemSize, length, nil)
}

func encodeValue(sink Sink, v Value) error {
	switch v.Tag {
	case NIL:
		return storeHeader(sink, NIL, 0, 0)

	case INT, LGL:
		buf := make([]byte, 4*len(v.Ints))
		for i, x := range v.Ints {
			binary.LittleEndian.PutUint32(buf[i*4:], uint32(x))
		}
		return storeAndCount(sink, v.Tag, 4, uint64(len(v.Ints)), buf)

	case REAL:
		buf := make([]byte, 8*len(v.Reals))
		for i, x := range v.Reals {
			binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(x))
		}
		return storeAndCount(sink, REAL, 8, uint64(len(v.Reals)), buf)

	case CPLX:
		buf := make([]byte, 16*len(v.Cplx))
		for i, x := range v.Cplx {
			binary.LittleEndian.PutUint64(buf[i*16:], math.Float64bits(real(x)))
			binary.LittleEndian.PutUint64(buf[i*16+8:], math.Float64bits(imag(x)))
		}
		return storeAndCount(sink, CPLX, 16, uint64(len(v.Cplx)), buf)

	case RAW:
		return storeAndCount(sink, RAW, 1, uint64(len(v.Raw)), v.Raw)

	case SYM:
		if v.Sym == "" {
			return storeHeader(sink, SYM, 0, 0)
		}
		b := append([]byte(v.Sym), 0)
		return storeAndCount(sink, SYM, 0, uint64(len(b)), b)

	case CHAR:
		var s string
		if len(v.Str) > 0 {
			s = v.Str[0]
		}
		b := append([]byte(s), 0)
		return storeAndCount(sink, CHAR, 0, uint64(len(b)), b)

	case STR:
		if err := storeHeader(sink, STR, 0, uint64(len(v.Str))); err != nil {
			return err
		}
		for _, s := range v.Str {
			if err := encodeValue(sink, Value{Tag: CHAR, Str: []string{s}}); err != nil {
				return err
			}
		}
		return nil

	case VEC:
		if err := storeHeader(sink, VEC, 0, uint64(len(v.Children))); err != nil {
			return err
		}
		for _, c := range v.Children {
			if err := Encode(sink, c); err != nil {
				return err
			}
		}
		return nil

	case LIST, LANG:
		if err := storeHeader(sink, v.Tag, 0, uint64(len(v.Pairs))); err != nil {
			return err
		}
		for _, p := range v.Pairs {
			if err := Encode(sink, Symbol(p.Name)); err != nil {
				return err
			}
			if err := Encode(sink, p.Value); err != nil {
				return err
			}
		}
		return nil

	case CLO:
		// Decode always reads back exactly 3 children (formals, body,
		// environment); encode exactly 3 regardless of v.Children's
		// actual length so a malformed Value can't desync the stream.
		if err := storeHeader(sink, CLO, 0, 3); err != nil {
			return err
		}
		for i := 0; i < 3; i++ {
			c := Nil()
			if i < len(v.Children) {
				c = v.Children[i]
			}
			if err := Encode(sink, c); err != nil {
				return err
			}
		}
		return nil

	case ENV:
		// Environments are never serialized; callers should not construct
		// one directly, but encode it as NIL defensively rather than panic.
		return storeHeader(sink, NIL, 0, 0)

	default:
		return errors.Wrapf(ErrUnimplementedTag, "encode tag %s", v.Tag)
	}
}

func storeAndCount(sink Sink, tag Tag, elemSize, length uint64, payload []byte) error {
	return sink.Store(tag, elemSize, length, payload)
}
