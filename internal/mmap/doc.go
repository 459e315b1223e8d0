// Package mmap maps float64 matrix files into memory.
//
// Files hold n*n native-endian float64 values in row-major order, the layout
// NumPy uses for a raw memmap. A read-only mapping backs an input matrix; a
// read-write shared mapping backs a rescaled matrix written in place.
//
// Mappings are only available on unix platforms; elsewhere Open and Create
// return ErrUnsupported.
package mmap
