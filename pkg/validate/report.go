package validate

import (
	"fmt"

	"github.com/dwforge/romfmt/pkg/format"
)

// report accumulates violations across passes; nothing short-circuits
type report struct {
	pass       format.Pass
	violations []format.Violation
}

func (r *report) add(record, field string, value int, constraint string) {
	r.violations = append(r.violations, format.Violation{
		Pass:       r.pass,
		Record:     record,
		Field:      field,
		Value:      int64(value),
		Constraint: constraint,
	})
}

func (r *report) between(record, field string, value, lo, hi int) {
	if value < lo || value > hi {
		r.add(record, field, value, fmt.Sprintf("%d..%d", lo, hi))
	}
}

func (r *report) byteRange(record, field string, value int) {
	r.between(record, field, value, 0, 0xFF)
}

func (r *report) atLeast(record, field string, value, lo int) {
	if value < lo {
		r.add(record, field, value, fmt.Sprintf(">=%d", lo))
	}
}

func (r *report) below(record, field string, value, limit int) {
	if value >= limit {
		r.add(record, field, value, fmt.Sprintf("<%d", limit))
	}
}

func (r *report) zero(record, field string, value int) {
	if value != 0 {
		r.add(record, field, value, "==0")
	}
}

// reserved checks an explicit padding field: exactly size zeros
func (r *report) reserved(record string, values []int, size int) {
	if len(values) != size {
		r.add(record, "reserved", len(values), fmt.Sprintf("len==%d", size))
	}
	for i, v := range values {
		r.zero(record, fmt.Sprintf("reserved[%d]", i), v)
	}
}

func rec(kind string, i int) string {
	return fmt.Sprintf("%s[%d]", kind, i)
}
