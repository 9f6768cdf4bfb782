// Package gamexml reads and writes the game's windows-1251 XML files
// (config.cfg, globalprops) with the exact formatting the game's own tools
// produce, so patched files stay byte-stable across installs.
package gamexml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Attr is one attribute, order-preserving.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of the document tree. Text content is not modeled;
// the game's config files carry data in attributes only.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
}

// Attr returns the value of a named attribute and whether it exists.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr replaces or appends an attribute, keeping declaration order for
// existing names.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// Child returns the first child with the given tag, or nil.
func (n *Node) Child(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// Load reads and parses an XML file.
func Load(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	root, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// Parse decodes XML bytes into a tree. The parser is tolerant: unknown
// charsets fall back to windows-1251, text content and comments are
// dropped, and trailing junk after the root element is ignored.
func Parse(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	}

	var root *Node
	var stack []*Node
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if root != nil {
				break
			}
			return nil, fmt.Errorf("parsing XML: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &Node{Tag: t.Name.Local}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) == 0 {
				if root == nil {
					root = n
				}
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}
	return root, nil
}

const declaration = `<?xml version="1.0" encoding="windows-1251" standalone="yes" ?>`

// Marshal renders the tree in the game's canonical formatting: the
// windows-1251 declaration, tab indentation, attributes one per line at
// indent+1, and a blank line before the first sibling of each tree level.
// Output is deterministic for a given tree.
func Marshal(root *Node) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(declaration)
	sb.WriteString("\n")
	writeNode(&sb, root, 0)
	encoded, err := charmap.Windows1251.NewEncoder().String(sb.String())
	if err != nil {
		return nil, fmt.Errorf("encoding XML to windows-1251: %w", err)
	}
	return []byte(encoded), nil
}

// Save writes the tree to a file.
func Save(path string, root *Node) error {
	data, err := Marshal(root)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func writeNode(sb *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("\t", depth)
	sb.WriteString(indent)
	sb.WriteString("<")
	sb.WriteString(n.Tag)
	for _, a := range n.Attrs {
		sb.WriteString("\n")
		sb.WriteString(indent)
		sb.WriteString("\t")
		sb.WriteString(a.Name)
		sb.WriteString("=\"")
		sb.WriteString(escapeAttr(a.Value))
		sb.WriteString("\"")
	}
	if len(n.Children) == 0 {
		sb.WriteString("/>\n")
		return
	}
	sb.WriteString(">\n")
	for i, c := range n.Children {
		if i == 0 {
			sb.WriteString("\n")
		}
		writeNode(sb, c, depth+1)
	}
	sb.WriteString(indent)
	sb.WriteString("</")
	sb.WriteString(n.Tag)
	sb.WriteString(">\n")
}

func escapeAttr(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return r.Replace(s)
}
