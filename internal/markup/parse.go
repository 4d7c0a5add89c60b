package markup

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sentinel errors for parse failures.
var (
	ErrNoRoot        = errors.New("document has no root element")
	ErrMultipleRoots = errors.New("document has more than one root element")
)

// Parse reads an XML-like composition document into an element tree.
// Attribute names keep their prefix ("on:click"); text content is the
// concatenation of an element's direct character data, trimmed.
// Namespace declarations are dropped: names in the default namespace come
// out unprefixed and declared prefixes are restored.
func Parse(r io.Reader) (*Element, error) {
	dec := xml.NewDecoder(r)

	var (
		root  *Element
		stack []*Element
		texts []*strings.Builder
		ns    = make(namespaces)
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse markup: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			ns.declare(t.Attr)
			el := &Element{Tag: ns.name(t.Name)}
			for _, a := range t.Attr {
				if isNamespaceDecl(a.Name) {
					continue
				}
				el.Attrs = append(el.Attrs, Attr{Name: ns.name(a.Name), Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, ErrMultipleRoots
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			}
			stack = append(stack, el)
			texts = append(texts, &strings.Builder{})

		case xml.EndElement:
			el := stack[len(stack)-1]
			el.Text = strings.TrimSpace(texts[len(texts)-1].String())
			stack = stack[:len(stack)-1]
			texts = texts[:len(texts)-1]

		case xml.CharData:
			if len(texts) > 0 {
				texts[len(texts)-1].Write(t)
			} else if strings.TrimSpace(string(t)) != "" {
				return nil, fmt.Errorf("parse markup: text outside root element")
			}
		}
	}
	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

// ParseString parses markup held in memory.
func ParseString(s string) (*Element, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile parses the markup file at path.
func ParseFile(path string) (*Element, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	el, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return el, nil
}

// namespaces maps declared namespace URLs to the prefix they were declared
// with; the default namespace maps to "".
type namespaces map[string]string

func (ns namespaces) declare(attrs []xml.Attr) {
	for _, a := range attrs {
		switch {
		case a.Name.Space == "xmlns":
			ns[a.Value] = a.Name.Local
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			ns[a.Value] = ""
		}
	}
}

// name renders n the way it was written. The decoder replaces declared
// prefixes with their URL and leaves undeclared ones ("on") as they are.
func (ns namespaces) name(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	if prefix, ok := ns[n.Space]; ok {
		if prefix == "" {
			return n.Local
		}
		return prefix + ":" + n.Local
	}
	return n.Space + ":" + n.Local
}

func isNamespaceDecl(n xml.Name) bool {
	return n.Space == "xmlns" || (n.Space == "" && n.Local == "xmlns")
}
