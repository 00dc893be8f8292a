package snapshot

import (
	"fmt"
	"reflect"
	"unsafe"
)

// wordsOf returns how many 64-bit words hold a T. It panics when T cannot be
// copied through a seqlock: a T with pointers would hand readers references
// into memory the writer keeps mutating, and a size that is not a multiple
// of eight cannot be split into whole words.
func wordsOf[T any]() int {
	var zero T
	size := unsafe.Sizeof(zero)
	if size == 0 || size%8 != 0 {
		panic(fmt.Sprintf("snapshot: %T is %d bytes, need a non-zero multiple of 8", zero, size))
	}
	if hasPointers(reflect.TypeOf(zero)) {
		panic(fmt.Sprintf("snapshot: %T contains pointers", zero))
	}
	return int(size / 8)
}

func hasPointers(t reflect.Type) bool {
	if t == nil {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// asWords views n words starting at p.
func asWords[T any](p *T, n int) []uint64 {
	return unsafe.Slice((*uint64)(unsafe.Pointer(p)), n)
}
