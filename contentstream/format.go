// Package contentstream turns a page's instruction sequence into PDF
// content stream bytes.
package contentstream

import (
	"bytes"
	"strconv"
	"strings"
)

// DefaultPrecision is the number of decimal places emitted for operands
// when the caller does not choose one.
const DefaultPrecision = 4

// opWriter accumulates operators with fixed-precision operand formatting.
// Numbers are written with trailing zeros trimmed so that semantically
// equal pages produce identical bytes.
type opWriter struct {
	buf       bytes.Buffer
	precision int
}

func newOpWriter(precision int) *opWriter {
	if precision <= 0 || precision > 10 {
		precision = DefaultPrecision
	}
	return &opWriter{precision: precision}
}

func (w *opWriter) num(f float64) string {
	s := strconv.FormatFloat(f, 'f', w.precision, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

// op writes numeric operands followed by the operator, one line per op.
func (w *opWriter) op(operator string, operands ...float64) {
	for _, f := range operands {
		w.buf.WriteString(w.num(f))
		w.buf.WriteByte(' ')
	}
	w.buf.WriteString(operator)
	w.buf.WriteByte('\n')
}

// opName writes a name operand (with leading slash) and the operator.
func (w *opWriter) opName(operator, name string) {
	w.buf.WriteByte('/')
	w.buf.WriteString(name)
	w.buf.WriteByte(' ')
	w.buf.WriteString(operator)
	w.buf.WriteByte('\n')
}

func (w *opWriter) raw(s string) {
	w.buf.WriteString(s)
}

func (w *opWriter) bytes() []byte {
	return w.buf.Bytes()
}

const hexDigits = "0123456789ABCDEF"

// hexCode renders a 16-bit character code as a hex string literal.
func hexCode(code uint16) string {
	return string([]byte{
		'<',
		hexDigits[code>>12],
		hexDigits[code>>8&0xF],
		hexDigits[code>>4&0xF],
		hexDigits[code&0xF],
		'>',
	})
}
