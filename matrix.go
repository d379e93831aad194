package rgo

import (
	"github.com/pkg/errors"
)

// Mat is a matrix stored the way R stores it: column by column. It can
// carry row and column names, which map to R's dimnames.
//
// Col returns a view of a column and does not copy data. Row copies.
// Use Col over Row whenever possible.
//
// Mats are not thread-safe.
type Mat[T Elem] struct {
	nrow, ncol int
	data       []T
	rowNames   []string
	colNames   []string
}

// NewMat creates an nrow by ncol matrix backed by data, which must be in
// column-major order. If data is nil a zeroed matrix is allocated.
func NewMat[T Elem](nrow, ncol int, data []T) (*Mat[T], error) {
	if nrow < 0 || ncol < 0 {
		return nil, errors.Errorf("rgo: negative matrix dimensions %dx%d", nrow, ncol)
	}
	if data == nil {
		data = make([]T, nrow*ncol)
	}
	if len(data) != nrow*ncol {
		return nil, errors.Errorf("rgo: %d values do not fill a %dx%d matrix", len(data), nrow, ncol)
	}
	return &Mat[T]{nrow: nrow, ncol: ncol, data: data}, nil
}

// MatFromRows creates a matrix from a slice of equal length rows.
func MatFromRows[T Elem](rows [][]T) (*Mat[T], error) {
	nrow := len(rows)
	ncol := 0
	if nrow > 0 {
		ncol = len(rows[0])
	}
	data := make([]T, nrow*ncol)
	for i, row := range rows {
		if len(row) != ncol {
			return nil, errors.Errorf("rgo: row %d has %d columns, want %d", i, len(row), ncol)
		}
		for j, x := range row {
			data[i+j*nrow] = x
		}
	}
	return &Mat[T]{nrow: nrow, ncol: ncol, data: data}, nil
}

func matFromValue[T Elem](v Value) (*Mat[T], error) {
	d, err := Elems[T](v)
	if err != nil {
		return nil, err
	}
	return &Mat[T]{
		nrow:     v.dim[0],
		ncol:     v.dim[1],
		data:     d,
		rowNames: v.rowNames,
		colNames: v.colNames,
	}, nil
}

func (m *Mat[T]) value() Value {
	return Value{
		kind:     kindOf[T](),
		dim:      []int{m.nrow, m.ncol},
		rowNames: m.rowNames,
		colNames: m.colNames,
		data:     m.data,
	}
}

func (m *Mat[T]) Dims() (nrow, ncol int) { return m.nrow, m.ncol }

// Data returns the column-major backing slice.
func (m *Mat[T]) Data() []T { return m.data }

// At returns the element in row i and column j.
//
// At will panic if the index is out of bounds.
func (m *Mat[T]) At(i, j int) T {
	m.check(i, j)
	return m.data[i+j*m.nrow]
}

func (m *Mat[T]) Set(i, j int, x T) {
	m.check(i, j)
	m.data[i+j*m.nrow] = x
}

func (m *Mat[T]) check(i, j int) {
	if i < 0 || i >= m.nrow || j < 0 || j >= m.ncol {
		panic("rgo: matrix index out of range")
	}
}

// Col gets column j. The returned slice shares memory with m.
func (m *Mat[T]) Col(j int) []T {
	if j < 0 || j >= m.ncol {
		panic("rgo: matrix column out of range")
	}
	return m.data[j*m.nrow : (j+1)*m.nrow : (j+1)*m.nrow]
}

// Row gets a copy of row i.
func (m *Mat[T]) Row(i int) []T {
	if i < 0 || i >= m.nrow {
		panic("rgo: matrix row out of range")
	}
	row := make([]T, m.ncol)
	for j := range row {
		row[j] = m.data[i+j*m.nrow]
	}
	return row
}

// Rows returns a copy of m as a slice of rows.
func (m *Mat[T]) Rows() [][]T {
	return rowsOf(m.data, m.nrow, m.ncol)
}

func (m *Mat[T]) RowNames() []string { return m.rowNames }
func (m *Mat[T]) ColNames() []string { return m.colNames }

// SetDimNames sets the row and column names. Either may be nil.
func (m *Mat[T]) SetDimNames(rows, cols []string) error {
	if rows != nil && len(rows) != m.nrow {
		return errors.Errorf("rgo: %d row names for %d rows", len(rows), m.nrow)
	}
	if cols != nil && len(cols) != m.ncol {
		return errors.Errorf("rgo: %d column names for %d columns", len(cols), m.ncol)
	}
	m.rowNames, m.colNames = rows, cols
	return nil
}

// ColByName gets the column of the provided name without copying.
//
// ColByName will panic if the name does not exist.
func (m *Mat[T]) ColByName(name string) []T {
	for j, n := range m.colNames {
		if n == name {
			return m.Col(j)
		}
	}
	panic("unable to find column")
}

// RowByName gets a copy of the row of the provided name.
//
// RowByName will panic if the name does not exist.
func (m *Mat[T]) RowByName(name string) []T {
	for i, n := range m.rowNames {
		if n == name {
			return m.Row(i)
		}
	}
	panic("unable to find row")
}
