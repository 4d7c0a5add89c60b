package markup

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// Serialize renders el as indented markup. Parsing the output yields an
// equivalent tree.
func Serialize(el *Element) (string, error) {
	var buf bytes.Buffer
	if err := Write(&buf, el); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Write renders el to w.
func Write(w io.Writer, el *Element) error {
	return writeElement(w, el, 0)
}

func writeElement(w io.Writer, el *Element, depth int) error {
	indent := strings.Repeat("  ", depth)

	var b strings.Builder
	b.WriteString(indent)
	b.WriteByte('<')
	b.WriteString(el.Tag)
	for _, a := range el.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		if err := escape(&b, a.Value); err != nil {
			return err
		}
		b.WriteByte('"')
	}

	if len(el.Children) == 0 && el.Text == "" {
		b.WriteString("/>\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteByte('>')
	if len(el.Children) == 0 {
		if err := escape(&b, el.Text); err != nil {
			return err
		}
		b.WriteString("</" + el.Tag + ">\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	b.WriteByte('\n')
	if el.Text != "" {
		b.WriteString(indent + "  ")
		if err := escape(&b, el.Text); err != nil {
			return err
		}
		b.WriteByte('\n')
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return err
	}
	for _, c := range el.Children {
		if err := writeElement(w, c, depth+1); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, indent+"</"+el.Tag+">\n")
	return err
}

func escape(b *strings.Builder, s string) error {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return err
	}
	b.Write(buf.Bytes())
	return nil
}
