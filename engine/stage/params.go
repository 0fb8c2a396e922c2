package stage

import (
	"math"
	"slices"
	"strconv"
	"strings"
)

// Params names a stage type and its numeric parameters.
type Params struct {
	Type string
	Num  map[string]float64
}

// GetNum returns a numeric parameter, or def if missing, NaN or infinite.
func (p Params) GetNum(key string, def float64) float64 {
	if p.Num == nil {
		return def
	}

	v, ok := p.Num[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}

	return v
}

// With returns a copy of p with key set to v.
func (p Params) With(key string, v float64) Params {
	num := make(map[string]float64, len(p.Num)+1)
	for k, x := range p.Num {
		num[k] = x
	}

	num[key] = v

	return Params{Type: p.Type, Num: num}
}

// String formats p as "type(k=v, ...)" with sorted keys.
func (p Params) String() string {
	keys := make([]string, 0, len(p.Num))
	for k := range p.Num {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	var b strings.Builder
	b.WriteString(p.Type)
	b.WriteByte('(')

	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}

		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(strconv.FormatFloat(p.Num[k], 'g', -1, 64))
	}

	b.WriteByte(')')

	return b.String()
}
