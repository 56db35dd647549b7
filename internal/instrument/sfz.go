package instrument

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Header nesting levels. A header closes every open section at its level
// or deeper; opcodes belong to the most recent header.
var headerLevels = map[string]int{
	"control": 0,
	"global":  1,
	"master":  2,
	"group":   3,
	"region":  4,
}

// Headers outside the hierarchy (curve, effect, midi, sample...) are
// leaves at the deepest level.
const leafLevel = 4

var (
	opcodeName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	nextToken  = regexp.MustCompile(`\s[A-Za-z_][A-Za-z0-9_]*=|<`)
)

type sfzParser struct {
	def     Definition
	open    [leafLevel + 1]*Element
	current *Element
	defines map[string]string
	index   int
}

// ParseSFZ parses region-format text. Section inheritance is kept as
// element parent links; nothing is flattened.
func ParseSFZ(text string) (Definition, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	stripped, err := stripComments(text)
	if err != nil {
		return nil, err
	}

	p := &sfzParser{
		def:     make(Definition),
		defines: make(map[string]string),
	}
	for i, line := range strings.Split(stripped, "\n") {
		if err := p.parseLine(i+1, line); err != nil {
			return nil, err
		}
	}
	return p.def, nil
}

func sfzError(line int, format string, args ...interface{}) error {
	return &ParseError{Format: "sfz", Line: line, Msg: fmt.Sprintf(format, args...)}
}

// stripComments removes // and /* */ comments, keeping newlines so line
// numbers stay accurate.
func stripComments(text string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	line := 1
	for i := 0; i < len(text); {
		switch {
		case strings.HasPrefix(text[i:], "//"):
			end := strings.IndexByte(text[i:], '\n')
			if end < 0 {
				return b.String(), nil
			}
			i += end
		case strings.HasPrefix(text[i:], "/*"):
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				return "", sfzError(line, "unterminated block comment")
			}
			body := text[i : i+2+end+2]
			n := strings.Count(body, "\n")
			b.WriteString(strings.Repeat("\n", n))
			line += n
			i += len(body)
		default:
			if text[i] == '\n' {
				line++
			}
			b.WriteByte(text[i])
			i++
		}
	}
	return b.String(), nil
}

func (p *sfzParser) parseLine(n int, line string) error {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "#") {
		return p.parseDirective(n, trimmed)
	}

	line = p.expand(line)
	for i := 0; i < len(line); {
		switch c := line[i]; {
		case c == ' ' || c == '\t':
			i++
		case c == '<':
			end := strings.IndexByte(line[i:], '>')
			if end < 0 {
				return sfzError(n, "unterminated header")
			}
			name := strings.TrimSpace(line[i+1 : i+end])
			if !opcodeName.MatchString(name) {
				return sfzError(n, "invalid header name %q", name)
			}
			p.openHeader(name)
			i += end + 1
		default:
			eq := strings.IndexByte(line[i:], '=')
			if eq < 0 {
				return sfzError(n, "expected opcode, found %q", strings.TrimSpace(line[i:]))
			}
			key := line[i : i+eq]
			if !opcodeName.MatchString(key) {
				return sfzError(n, "invalid opcode name %q", key)
			}
			if p.current == nil {
				return sfzError(n, "opcode %q outside of any header", key)
			}

			rest := line[i+eq+1:]
			end := len(rest)
			if loc := nextToken.FindStringIndex(rest); loc != nil {
				end = loc[0]
			}
			p.current.Attrs[key] = strings.TrimSpace(rest[:end])
			i += eq + 1 + end
		}
	}
	return nil
}

func (p *sfzParser) parseDirective(n int, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "#define":
		if len(fields) < 3 || !strings.HasPrefix(fields[1], "$") || len(fields[1]) < 2 {
			return sfzError(n, "malformed #define")
		}
		value := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.TrimPrefix(line, "#define")), fields[1]))
		p.defines[fields[1]] = value
		return nil
	case "#include":
		if len(fields) != 2 {
			return sfzError(n, "malformed #include")
		}
		target := strings.Trim(fields[1], `"`)
		if target == "" || !strings.HasPrefix(fields[1], `"`) || !strings.HasSuffix(fields[1], `"`) {
			return sfzError(n, "malformed #include")
		}
		p.add(&Element{Name: "include", Attrs: Attributes{"path": target}})
		return nil
	default:
		return sfzError(n, "unknown directive %q", fields[0])
	}
}

// expand substitutes #define variables, longest names first.
func (p *sfzParser) expand(line string) string {
	if len(p.defines) == 0 || !strings.Contains(line, "$") {
		return line
	}
	names := make([]string, 0, len(p.defines))
	for name := range p.defines {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	for _, name := range names {
		line = strings.ReplaceAll(line, name, p.defines[name])
	}
	return line
}

func (p *sfzParser) openHeader(name string) {
	level, ok := headerLevels[name]
	if !ok {
		level = leafLevel
	}

	var parent *Element
	for l := level - 1; l >= 0; l-- {
		if p.open[l] != nil {
			parent = p.open[l]
			break
		}
	}
	for l := level; l <= leafLevel; l++ {
		p.open[l] = nil
	}

	el := &Element{Name: name, Attrs: make(Attributes), Parent: parent}
	p.add(el)
	p.open[level] = el
	p.current = el
}

func (p *sfzParser) add(el *Element) {
	el.Index = p.index
	p.index++
	if el.Children == nil {
		el.Children = make(Definition)
	}
	p.def.add(el)
	if el.Parent != nil {
		el.Parent.Children.add(el)
	}
}
