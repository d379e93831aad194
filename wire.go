package rgo

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

// wireValue is the JSON envelope for values in both directions. It is
// produced by ..rgo.encode and consumed by ..rgo.decode in bootstrap.R.
// Values are column-major.
type wireValue struct {
	Kind     Kind              `json:"kind"`
	Dim      []int             `json:"dim,omitempty"`
	Names    []string          `json:"names,omitempty"`
	RowNames []string          `json:"rownames,omitempty"`
	ColNames []string          `json:"colnames,omitempty"`
	Values   []json.RawMessage `json:"values"`
}

// result is what ..rgo.eval PUTs back for every evaluation.
type result struct {
	Error      string     `json:"error"`
	Incomplete bool       `json:"incomplete"`
	Warnings   []string   `json:"warnings"`
	Messages   []string   `json:"messages"`
	Output     []string   `json:"output"`
	Value      *wireValue `json:"value"`
}

var (
	jsonNull = []byte("null")
	jsonNA   = []byte(`"NA"`)
)

func (w *wireValue) decode() (Value, error) {
	v := Value{
		kind:     w.Kind,
		dim:      w.Dim,
		names:    w.Names,
		rowNames: w.RowNames,
		colNames: w.ColNames,
	}
	var err error
	switch w.Kind {
	case KindString:
		v.data, err = decodeElems(w.Values, decodeString)
	case KindDouble:
		v.data, err = decodeElems(w.Values, decodeDouble)
	case KindInt:
		v.data, err = decodeElems(w.Values, decodeInt)
	case KindBool:
		v.data, v.na, err = decodeLogical(w.Values)
	default:
		return Value{}, &UnsupportedTypeError{Type: string(w.Kind)}
	}
	if err != nil {
		return Value{}, err
	}
	if n := product(v.dim); len(v.dim) > 0 && n != v.Len() {
		return Value{}, errors.Errorf("rgo: dim %v does not match length %d", v.dim, v.Len())
	}
	return v, nil
}

func decodeElems[T Elem](raw []json.RawMessage, dec func(json.RawMessage) (T, error)) ([]T, error) {
	out := make([]T, len(raw))
	for i, r := range raw {
		x, err := dec(r)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i+1)
		}
		out[i] = x
	}
	return out, nil
}

func decodeString(r json.RawMessage) (string, error) {
	if bytes.Equal(r, jsonNull) {
		return "NA", nil
	}
	var s string
	err := json.Unmarshal(r, &s)
	return s, err
}

func decodeDouble(r json.RawMessage) (float64, error) {
	if len(r) > 0 && r[0] == '"' {
		var s string
		if err := json.Unmarshal(r, &s); err != nil {
			return 0, err
		}
		switch s {
		case "NA":
			return NADouble, nil
		case "NaN":
			return math.NaN(), nil
		case "Inf":
			return math.Inf(1), nil
		case "-Inf":
			return math.Inf(-1), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Errorf("rgo: bad double %q", s)
		}
		return f, nil
	}
	if bytes.Equal(r, jsonNull) {
		return NADouble, nil
	}
	return strconv.ParseFloat(string(r), 64)
}

func decodeInt(r json.RawMessage) (int, error) {
	if bytes.Equal(r, jsonNA) || bytes.Equal(r, jsonNull) {
		return NAInt, nil
	}
	n, err := strconv.ParseInt(string(r), 10, 32)
	return int(n), err
}

// decodeLogical returns the values and, if any element is NA, a mask of
// the NA positions.
func decodeLogical(raw []json.RawMessage) ([]bool, []bool, error) {
	out := make([]bool, len(raw))
	var na []bool
	for i, r := range raw {
		switch {
		case bytes.Equal(r, []byte("true")):
			out[i] = true
		case bytes.Equal(r, []byte("false")):
		case bytes.Equal(r, jsonNA), bytes.Equal(r, jsonNull):
			if na == nil {
				na = make([]bool, len(raw))
			}
			na[i] = true
		default:
			return nil, nil, errors.Errorf("rgo: element %d: bad logical %s", i+1, r)
		}
	}
	return out, na, nil
}

// encode builds the envelope for v. Doubles travel as strings so that R
// parses them with as.double and every bit survives.
func (v Value) encode() (*wireValue, error) {
	w := &wireValue{
		Kind:     v.kind,
		Dim:      v.dim,
		Names:    v.names,
		RowNames: v.rowNames,
		ColNames: v.colNames,
	}
	var err error
	switch d := v.data.(type) {
	case []string:
		w.Values, err = encodeElems(d, func(s string) any { return s })
	case []float64:
		w.Values, err = encodeElems(d, func(f float64) any { return formatDouble(f) })
	case []int:
		w.Values, err = encodeElems(d, func(n int) any {
			if n == NAInt {
				return nil
			}
			return n
		})
	case []bool:
		w.Values, err = encodeElems(d, func(b bool) any { return b })
		for i, isNA := range v.na {
			if isNA && err == nil {
				w.Values[i] = jsonNull
			}
		}
	default:
		return nil, &UnsupportedTypeError{Type: string(v.kind)}
	}
	return w, err
}

func encodeElems[T Elem](d []T, conv func(T) any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(d))
	for _, x := range lo.Map(d, func(x T, _ int) any { return conv(x) }) {
		b, err := json.Marshal(x)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func formatDouble(f float64) string {
	switch {
	case IsNA(f):
		return "NA"
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Inf"
	case math.IsInf(f, -1):
		return "-Inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func product(dim []int) int {
	return lo.Reduce(dim, func(acc, d int, _ int) int { return acc * d }, 1)
}
