package writer

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Marisada/krilla/ir/raw"
)

// serializeObject renders a raw object as body bytes. Dictionary entries
// are written in sorted key order so the same object graph always encodes
// identically.
func serializeObject(buf *bytes.Buffer, obj raw.Object) error {
	switch o := obj.(type) {
	case raw.NullObj:
		buf.WriteString("null")

	case raw.BoolObj:
		if o.V {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}

	case raw.NumberObj:
		if o.IsInt {
			buf.WriteString(strconv.FormatInt(o.I, 10))
		} else {
			buf.WriteString(formatObjFloat(o.F))
		}

	case raw.NameObj:
		writeName(buf, o.Val)

	case raw.StringObj:
		if o.Hex {
			buf.WriteByte('<')
			for _, b := range o.Bytes {
				buf.WriteString(fmt.Sprintf("%02X", b))
			}
			buf.WriteByte('>')
		} else {
			writeLiteralString(buf, o.Bytes)
		}

	case raw.RefObj:
		fmt.Fprintf(buf, "%d %d R", o.R.Num, o.R.Gen)

	case *raw.ArrayObj:
		buf.WriteByte('[')
		for i, item := range o.Items {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := serializeObject(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	case *raw.DictObj:
		if err := serializeDict(buf, o); err != nil {
			return err
		}

	case *raw.StreamObj:
		dict := streamDict(o)
		if err := serializeDict(buf, dict); err != nil {
			return err
		}
		buf.WriteString("\nstream\n")
		buf.Write(o.Data)
		buf.WriteString("\nendstream")

	default:
		return fmt.Errorf("writer: cannot serialize %T", obj)
	}
	return nil
}

func serializeDict(buf *bytes.Buffer, d *raw.DictObj) error {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteString("<<")
	for _, k := range keys {
		buf.WriteByte(' ')
		writeName(buf, k)
		buf.WriteByte(' ')
		if err := serializeObject(buf, d.KV[k]); err != nil {
			return err
		}
	}
	buf.WriteString(" >>")
	return nil
}

// streamDict clones the stream's dictionary with /Length and /Filter
// filled in, leaving the original untouched.
func streamDict(s *raw.StreamObj) *raw.DictObj {
	dict := raw.Dict()
	if s.Dict != nil {
		for k, v := range s.Dict.KV {
			dict.Set(k, v)
		}
	}
	dict.Set("Length", raw.NumberInt(int64(len(s.Data))))
	if s.Filter != "" {
		dict.Set("Filter", raw.NameLiteral(s.Filter))
	}
	return dict
}

// writeName emits a name object, escaping delimiters and non-regular
// bytes in #XX form.
func writeName(buf *bytes.Buffer, name string) {
	buf.WriteByte('/')
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= 0x20 || c >= 0x7F || bytes.IndexByte([]byte("()<>[]{}/%#"), c) >= 0 {
			fmt.Fprintf(buf, "#%02X", c)
		} else {
			buf.WriteByte(c)
		}
	}
}

func writeLiteralString(buf *bytes.Buffer, data []byte) {
	buf.WriteByte('(')
	for _, c := range data {
		switch c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if c < 0x20 || c >= 0x7F {
				fmt.Fprintf(buf, "\\%03o", c)
			} else {
				buf.WriteByte(c)
			}
		}
	}
	buf.WriteByte(')')
}

// formatObjFloat renders body-level numbers with up to six decimals and
// trailing zeros trimmed.
func formatObjFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = trimZeros(s)
	if s == "-0" {
		return "0"
	}
	return s
}

func trimZeros(s string) string {
	if !strings.ContainsRune(s, '.') {
		return s
	}
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}
