package ring

import (
	"encoding"
	"encoding/binary"
	"fmt"
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Hashable is implemented by values that choose the bytes used to place
// them on the ring.
type Hashable interface {
	AppendHash(b []byte) []byte
}

var digestPool = sync.Pool{
	New: func() any { return xxhash.New() },
}

// Position returns the ring position of v. It is deterministic across
// rings and processes, except for values that fall back to %#v and embed
// pointers.
//
// Values are encoded as follows: Hashable by AppendHash, strings and byte
// slices by their bytes, integers as 8 big-endian bytes, booleans as one
// byte, then encoding.BinaryMarshaler, then fmt.Stringer, then %#v.
// Nil pointers always take the %#v form, so their methods are never called.
func Position(v any) uint64 {
	d := digestPool.Get().(*xxhash.Digest)
	d.Reset()
	writeValue(d, v)
	pos := d.Sum64()
	digestPool.Put(d)
	return pos
}

func writeValue(d *xxhash.Digest, v any) {
	if isNilPointer(v) {
		_, _ = fmt.Fprintf(d, "%#v", v)
		return
	}
	var buf [8]byte
	switch x := v.(type) {
	case Hashable:
		_, _ = d.Write(x.AppendHash(buf[:0]))
	case string:
		_, _ = d.WriteString(x)
	case []byte:
		_, _ = d.Write(x)
	case int:
		_, _ = d.Write(binary.BigEndian.AppendUint64(buf[:0], uint64(x)))
	case int8:
		_, _ = d.Write(binary.BigEndian.AppendUint64(buf[:0], uint64(x)))
	case int16:
		_, _ = d.Write(binary.BigEndian.AppendUint64(buf[:0], uint64(x)))
	case int32:
		_, _ = d.Write(binary.BigEndian.AppendUint64(buf[:0], uint64(x)))
	case int64:
		_, _ = d.Write(binary.BigEndian.AppendUint64(buf[:0], uint64(x)))
	case uint:
		_, _ = d.Write(binary.BigEndian.AppendUint64(buf[:0], uint64(x)))
	case uint8:
		_, _ = d.Write(binary.BigEndian.AppendUint64(buf[:0], uint64(x)))
	case uint16:
		_, _ = d.Write(binary.BigEndian.AppendUint64(buf[:0], uint64(x)))
	case uint32:
		_, _ = d.Write(binary.BigEndian.AppendUint64(buf[:0], uint64(x)))
	case uint64:
		_, _ = d.Write(binary.BigEndian.AppendUint64(buf[:0], x))
	case bool:
		if x {
			buf[0] = 1
		}
		_, _ = d.Write(buf[:1])
	case encoding.BinaryMarshaler:
		if b, err := x.MarshalBinary(); err == nil {
			_, _ = d.Write(b)
			return
		}
		_, _ = fmt.Fprintf(d, "%#v", v)
	case fmt.Stringer:
		_, _ = d.WriteString(x.String())
	default:
		_, _ = fmt.Fprintf(d, "%#v", v)
	}
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
