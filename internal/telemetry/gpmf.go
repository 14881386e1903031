package telemetry

import (
	"encoding/binary"
	"fmt"
	"math"
)

// GPMF is a KLV format: 4 byte key, 1 byte type, 1 byte struct size and a
// 2 byte big-endian repeat count, followed by size*repeat bytes of payload
// padded to a 32-bit boundary. Type 0 marks a nested container.
const klvHeaderSize = 8

type klv struct {
	key    string
	typ    byte
	size   int
	repeat int
	data   []byte
}

func (k klv) nested() bool { return k.typ == 0 }

func parseKLV(buf []byte) ([]klv, error) {
	var out []klv
	for off := 0; off+klvHeaderSize <= len(buf); {
		key := string(buf[off : off+4])
		typ := buf[off+4]
		size := int(buf[off+5])
		repeat := int(binary.BigEndian.Uint16(buf[off+6 : off+8]))
		n := size * repeat
		start := off + klvHeaderSize
		if start+n > len(buf) {
			return out, fmt.Errorf("gpmf: %s payload of %d bytes overruns buffer", key, n)
		}
		// zero padding between payloads
		if key != "\x00\x00\x00\x00" {
			out = append(out, klv{key: key, typ: typ, size: size, repeat: repeat, data: buf[start : start+n]})
		}
		off = start + (n+3)&^3
	}
	return out, nil
}

// values decodes the payload of a numeric KLV as float64, one entry per
// element (size/elemSize elements per repeat).
func (k klv) values() ([]float64, error) {
	elem, read := decoder(k.typ)
	if read == nil {
		return nil, fmt.Errorf("gpmf: unsupported type %q for %s", k.typ, k.key)
	}
	count := len(k.data) / elem
	out := make([]float64, count)
	for i := 0; i < count; i++ {
		out[i] = read(k.data[i*elem:])
	}
	return out, nil
}

func decoder(typ byte) (int, func([]byte) float64) {
	switch typ {
	case 'b':
		return 1, func(b []byte) float64 { return float64(int8(b[0])) }
	case 'B':
		return 1, func(b []byte) float64 { return float64(b[0]) }
	case 's':
		return 2, func(b []byte) float64 { return float64(int16(binary.BigEndian.Uint16(b))) }
	case 'S':
		return 2, func(b []byte) float64 { return float64(binary.BigEndian.Uint16(b)) }
	case 'l':
		return 4, func(b []byte) float64 { return float64(int32(binary.BigEndian.Uint32(b))) }
	case 'L':
		return 4, func(b []byte) float64 { return float64(binary.BigEndian.Uint32(b)) }
	case 'f':
		return 4, func(b []byte) float64 { return float64(math.Float32frombits(binary.BigEndian.Uint32(b))) }
	case 'd':
		return 8, func(b []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(b)) }
	case 'j':
		return 8, func(b []byte) float64 { return float64(int64(binary.BigEndian.Uint64(b))) }
	case 'J':
		return 8, func(b []byte) float64 { return float64(binary.BigEndian.Uint64(b)) }
	}
	return 0, nil
}

// vectors extracts the 3-axis readings named fourcc from one payload.
// SCAL is sticky inside its STRM and divides each axis.
func vectors(payload []byte, fourcc string) ([][3]float64, error) {
	top, err := parseKLV(payload)
	if err != nil {
		return nil, err
	}

	var out [][3]float64
	for _, devc := range top {
		if devc.key != "DEVC" || !devc.nested() {
			continue
		}
		streams, err := parseKLV(devc.data)
		if err != nil {
			return nil, err
		}
		for _, strm := range streams {
			if strm.key != "STRM" || !strm.nested() {
				continue
			}
			v, err := streamVectors(strm.data, fourcc)
			if err != nil {
				return nil, err
			}
			out = append(out, v...)
		}
	}
	return out, nil
}

func streamVectors(strm []byte, fourcc string) ([][3]float64, error) {
	items, err := parseKLV(strm)
	if err != nil {
		return nil, err
	}

	scale := []float64{1}
	var out [][3]float64
	for _, it := range items {
		switch it.key {
		case "SCAL":
			s, err := it.values()
			if err != nil {
				return nil, err
			}
			if len(s) > 0 {
				scale = s
			}
		case fourcc:
			raw, err := it.values()
			if err != nil {
				return nil, err
			}
			axes := len(raw) / max(it.repeat, 1)
			if axes < 3 {
				return nil, fmt.Errorf("gpmf: %s has %d axes, need 3", fourcc, axes)
			}
			for r := 0; r < it.repeat; r++ {
				var v [3]float64
				for a := 0; a < 3; a++ {
					div := scale[0]
					if len(scale) > a {
						div = scale[a]
					}
					if div == 0 {
						div = 1
					}
					v[a] = raw[r*axes+a] / div
				}
				out = append(out, v)
			}
		}
	}
	return out, nil
}
