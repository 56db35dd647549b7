package instrument

import (
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// ParseGUI parses an XML GUI descriptor. Every element, the root included,
// is listed under its name in depth-first document order; nesting is kept
// through Parent and Children.
func ParseGUI(text string) (Definition, error) {
	d := xml.NewDecoder(strings.NewReader(text))
	d.Entity = xml.HTMLEntity

	def := make(Definition)
	var stack []*Element
	index := 0

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, guiError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &Element{
				Name:     t.Name.Local,
				Attrs:    make(Attributes, len(t.Attr)),
				Children: make(Definition),
				Index:    index,
			}
			index++
			for _, a := range t.Attr {
				el.Attrs[a.Name.Local] = a.Value
			}
			if len(stack) > 0 {
				el.Parent = stack[len(stack)-1]
				el.Parent.Children.add(el)
			}
			def.add(el)
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}

	if index == 0 {
		return nil, &ParseError{Format: "gui", Msg: "no elements"}
	}
	return def, nil
}

func guiError(err error) error {
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		return &ParseError{Format: "gui", Line: syn.Line, Msg: syn.Msg}
	}
	return &ParseError{Format: "gui", Msg: err.Error()}
}
