package sfs

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/s-u/osrv/internal/cmn/nlog"
)

// scratchSize mirrors the original's fixed 8KiB inline decode buffer for
// strings/symbols; payloads at or above this size fall back to a heap
// allocation.
const scratchSize = 8192

// Decode reads one value (and its optional attribute prefix) from source.
func Decode(source Source) (Value, error) {
	hdr, err := readHeader(source)
	if err != nil {
		return Value{}, err
	}

	var attrs []Pair
	if Tag(hdr&0xff) == ATTRSXP {
		attrHolder, err := decodeOne(source, hdr)
		if err != nil {
			return Value{}, err
		}
		attrs = attrHolder.Pairs

		hdr, err = readHeader(source)
		if err != nil {
			return Value{}, err
		}
	}

	v, err := decodeOne(source, hdr)
	if err != nil {
		return Value{}, err
	}
	if len(attrs) > 0 {
		v = v.WithAttrs(attrs)
	}
	return v, nil
}

func readHeader(source Source) (uint64, error) {
	var buf [8]byte
	if err := source.Fetch(buf[:]); err != nil {
		return 0, errors.Wrap(ErrShortRead, err.Error())
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func decodeOne(source Source, hdr uint64) (Value, error) {
	tag := Tag(hdr & 0xff)
	length := hdr >> 8

	switch tag {
	case NIL:
		return Nil(), nil

	case INT, LGL:
		buf := make([]byte, length*4)
		if err := source.Fetch(buf); err != nil {
			return Value{}, errors.Wrap(ErrShortRead, err.Error())
		}
		ints := make([]int32, length)
		for i := range ints {
			ints[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		return Value{Tag: tag, Ints: ints}, nil

	case REAL:
		buf := make([]byte, length*8)
		if err := source.Fetch(buf); err != nil {
			return Value{}, errors.Wrap(ErrShortRead, err.Error())
		}
		reals := make([]float64, length)
		for i := range reals {
			reals[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		}
		return Value{Tag: REAL, Reals: reals}, nil

	case CPLX:
		buf := make([]byte, length*16)
		if err := source.Fetch(buf); err != nil {
			return Value{}, errors.Wrap(ErrShortRead, err.Error())
		}
		cplx := make([]complex128, length)
		for i := range cplx {
			re := math.Float64frombits(binary.LittleEndian.Uint64(buf[i*16:]))
			im := math.Float64frombits(binary.LittleEndian.Uint64(buf[i*16+8:]))
			cplx[i] = complex(re, im)
		}
		return Value{Tag: CPLX, Cplx: cplx}, nil

	case RAW:
		buf := make([]byte, length)
		if err := source.Fetch(buf); err != nil {
			return Value{}, errors.Wrap(ErrShortRead, err.Error())
		}
		return Value{Tag: RAW, Raw: buf}, nil

	case SYM:
		if length == 0 {
			return Value{Tag: SYM}, nil
		}
		s, err := decodeCString(source, length)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: SYM, Sym: s}, nil

	case CHAR:
		s, err := decodeCString(source, length)
		if err != nil {
			return Value{}, err
		}
		return Value{Tag: CHAR, Str: []string{s}}, nil

	case VEC:
		children := make([]Value, length)
		for i := range children {
			v, err := Decode(source)
			if err != nil {
				return Value{}, err
			}
			children[i] = v
		}
		return Value{Tag: VEC, Children: children}, nil

	case STR:
		strs := make([]string, length)
		for i := range strs {
			v, err := Decode(source)
			if err != nil {
				return Value{}, err
			}
			if len(v.Str) > 0 {
				strs[i] = v.Str[0]
			}
		}
		return Value{Tag: STR, Str: strs}, nil

	case CLO:
		children := make([]Value, 0, 3)
		for i := 0; i < 3; i++ {
			v, err := Decode(source)
			if err != nil {
				return Value{}, err
			}
			children = append(children, v)
		}
		return Value{Tag: CLO, Children: children}, nil

	case LIST, LANG, ATTRSXP:
		pairs := make([]Pair, length)
		for i := range pairs {
			name, err := Decode(source)
			if err != nil {
				return Value{}, err
			}
			val, err := Decode(source)
			if err != nil {
				return Value{}, err
			}
			pairs[i] = Pair{Name: name.Sym, Value: val}
		}
		return Value{Tag: tag, Pairs: pairs}, nil

	case ENV:
		nlog.Warnf("sfs: environments are not serialized, substituting nil")
		return Nil(), nil

	default:
		return Value{}, errors.Wrapf(ErrUnimplementedTag, "decode tag %d", tag)
	}
}

// decodeCString reads a NUL-terminated string of exactly n bytes (n includes
// the trailing NUL), using the fixed scratch buffer for small strings and a
// heap allocation at or above scratchSize, matching the original's two-path
// decode strategy.
func decodeCString(source Source, n uint64) (string, error) {
	if n < scratchSize {
		var scratch [scratchSize]byte
		buf := scratch[:n]
		if err := source.Fetch(buf); err != nil {
			return "", errors.Wrap(ErrShortRead, err.Error())
		}
		return string(bytes.TrimRight(buf, "\x00")), nil
	}
	buf := make([]byte, n)
	if err := source.Fetch(buf); err != nil {
		return "", errors.Wrap(ErrShortRead, err.Error())
	}
	return string(bytes.TrimRight(buf, "\x00")), nil
}
