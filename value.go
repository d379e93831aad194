package rgo

import (
	"fmt"
	"math"

	"github.com/samber/lo"
)

// Kind is the element type of an R atomic vector. The values are the names
// returned by R's typeof.
type Kind string

const (
	KindString Kind = "character"
	KindDouble Kind = "double"
	KindInt    Kind = "integer"
	KindBool   Kind = "logical"
)

func (k Kind) supported() bool {
	switch k {
	case KindString, KindDouble, KindInt, KindBool:
		return true
	}
	return false
}

// Elem is the set of Go element types rgo decodes R vectors into.
type Elem interface {
	string | float64 | int | bool
}

func kindOf[T Elem]() Kind {
	var zero T
	switch any(zero).(type) {
	case string:
		return KindString
	case float64:
		return KindDouble
	case int:
		return KindInt
	default:
		return KindBool
	}
}

// NAInt is R's integer NA.
const NAInt = math.MinInt32

// NADouble is R's double NA. It is a NaN; use IsNA to tell it apart from
// other NaNs.
var NADouble = math.Float64frombits(naDoubleBits)

const naDoubleBits = 0x7FF00000000007A2

// IsNA reports whether f is R's NA rather than an ordinary NaN.
func IsNA(f float64) bool {
	// R only looks at the low word, so a quieted NA is still NA.
	return math.IsNaN(f) && uint32(math.Float64bits(f)) == 1954
}

// Value is a decoded R atomic vector or matrix.
//
// Matrices keep R's column-major layout; use Matrix or MatrixOf to get rows.
type Value struct {
	kind     Kind
	dim      []int
	names    []string
	rowNames []string
	colNames []string
	data     any // []string, []float64, []int or []bool

	// na marks logical NAs, which have no bool value. nil if there are none.
	na []bool
}

func (v Value) Kind() Kind { return v.kind }

// Dim returns the dimensions of v, or nil for a plain vector.
func (v Value) Dim() []int { return v.dim }

func (v Value) IsMatrix() bool { return len(v.dim) == 2 }

// Names returns the element names of a vector.
func (v Value) Names() []string { return v.names }

// DimNames returns the row and column names of a matrix.
func (v Value) DimNames() (rows, cols []string) { return v.rowNames, v.colNames }

func (v Value) Len() int {
	switch d := v.data.(type) {
	case []string:
		return len(d)
	case []float64:
		return len(d)
	case []int:
		return len(d)
	case []bool:
		return len(d)
	}
	return 0
}

// NAAt reports whether element i (in R order) is NA. Character NA
// arrives as the string "NA" and is not reported.
func (v Value) NAAt(i int) bool {
	switch d := v.data.(type) {
	case []float64:
		return IsNA(d[i])
	case []int:
		return d[i] == NAInt
	case []bool:
		_ = d[i]
		return v.na != nil && v.na[i]
	}
	return false
}

// Interface returns v in the most natural Go shape: a scalar for a
// length one vector, a slice for other vectors and a slice of rows for
// a matrix. Logical NAs show up as false; check them with NAAt.
func (v Value) Interface() any {
	switch d := v.data.(type) {
	case []string:
		return shapeOf(v, d)
	case []float64:
		return shapeOf(v, d)
	case []int:
		return shapeOf(v, d)
	case []bool:
		return shapeOf(v, d)
	}
	return nil
}

func shapeOf[T Elem](v Value, d []T) any {
	if v.IsMatrix() {
		return rowsOf(d, v.dim[0], v.dim[1])
	}
	if len(d) == 1 && len(v.dim) == 0 {
		return d[0]
	}
	return d
}

func (v Value) String() string {
	return fmt.Sprintf("%s%v %v", v.kind, v.dim, v.Interface())
}

// Elems returns the elements of v in R order as []T. An integer vector may
// be read as float64. A logical vector holding NA cannot be read as bool.
func Elems[T Elem](v Value) ([]T, error) {
	if d, ok := v.data.([]T); ok {
		if lo.Contains(v.na, true) {
			return nil, &UnsupportedTypeError{Type: "logical NA"}
		}
		return d, nil
	}
	want := kindOf[T]()
	if ints, ok := v.data.([]int); ok && want == KindDouble {
		out := make([]float64, len(ints))
		for i, n := range ints {
			if n == NAInt {
				out[i] = NADouble
			} else {
				out[i] = float64(n)
			}
		}
		return any(out).([]T), nil
	}
	return nil, &TypeMismatchError{Want: want, Got: v.kind, Len: v.Len()}
}

func newVector[T Elem](data []T) Value {
	return Value{kind: kindOf[T](), data: data}
}

// rowsOf converts column-major data to a slice of rows.
func rowsOf[T Elem](data []T, nrow, ncol int) [][]T {
	rows := make([][]T, nrow)
	for i := range rows {
		rows[i] = make([]T, ncol)
		for j := 0; j < ncol; j++ {
			rows[i][j] = data[i+j*nrow]
		}
	}
	return rows
}
