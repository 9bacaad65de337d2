package directive

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/aranea-sec/aranea/internal/domain"
)

// ParseLiteral parses a single-line Python/JSON-style dict literal into an
// ordered argument mapping. Keys are single- or double-quoted strings; values
// are strings, numbers, booleans, null/None, lists, or nested dicts.
func ParseLiteral(s string) (*domain.Args, error) {
	p := &literalParser{input: s}
	p.skipSpaces()
	args, err := p.parseDict()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return nil, p.errorf("unexpected trailing data")
	}
	return args, nil
}

type literalParser struct {
	input string
	pos   int
}

func (p *literalParser) errorf(format string, a ...any) error {
	msg := fmt.Sprintf(format, a...)
	return fmt.Errorf("argument literal: %s at offset %d", msg, p.pos)
}

func (p *literalParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *literalParser) peek() (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *literalParser) consume(c byte) bool {
	if ch, ok := p.peek(); ok && ch == c {
		p.pos++
		return true
	}
	return false
}

func (p *literalParser) parseDict() (*domain.Args, error) {
	if !p.consume('{') {
		return nil, p.errorf("expected '{'")
	}
	args := domain.NewArgs()
	p.skipSpaces()
	if p.consume('}') {
		return args, nil
	}
	for {
		p.skipSpaces()
		key, err := p.parseQuoted()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if !p.consume(':') {
			return nil, p.errorf("expected ':' after key %q", key)
		}
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		args.Set(key, val)
		p.skipSpaces()
		if p.consume(',') {
			continue
		}
		if p.consume('}') {
			return args, nil
		}
		return nil, p.errorf("expected ',' or '}'")
	}
}

func (p *literalParser) parseList() ([]any, error) {
	if !p.consume('[') {
		return nil, p.errorf("expected '['")
	}
	list := []any{}
	p.skipSpaces()
	if p.consume(']') {
		return list, nil
	}
	for {
		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		list = append(list, val)
		p.skipSpaces()
		if p.consume(',') {
			continue
		}
		if p.consume(']') {
			return list, nil
		}
		return nil, p.errorf("expected ',' or ']'")
	}
}

func (p *literalParser) parseValue() (any, error) {
	p.skipSpaces()
	ch, ok := p.peek()
	if !ok {
		return nil, p.errorf("unexpected end of input")
	}
	switch {
	case ch == '"' || ch == '\'':
		return p.parseQuoted()
	case ch == '{':
		return p.parseDict()
	case ch == '[':
		return p.parseList()
	case ch == '-' || ch == '+' || (ch >= '0' && ch <= '9'):
		return p.parseNumber()
	default:
		return p.parseKeyword()
	}
}

func (p *literalParser) parseQuoted() (string, error) {
	quote, ok := p.peek()
	if !ok || (quote != '"' && quote != '\'') {
		return "", p.errorf("expected quoted string")
	}
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		switch ch {
		case quote:
			p.pos++
			return sb.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.input) {
				return "", p.errorf("dangling escape")
			}
			esc := p.input[p.pos]
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'u':
				r, err := p.hexRune(p.pos + 1)
				if err != nil {
					return "", err
				}
				p.pos += 4
				// Combine a UTF-16 surrogate pair when the low half follows.
				if utf16.IsSurrogate(r) && p.pos+6 < len(p.input) &&
					p.input[p.pos+1] == '\\' && p.input[p.pos+2] == 'u' {
					if low, lowErr := p.hexRune(p.pos + 3); lowErr == nil {
						if paired := utf16.DecodeRune(r, low); paired != unicode.ReplacementChar {
							r = paired
							p.pos += 6
						}
					}
				}
				sb.WriteRune(r)
			default:
				sb.WriteByte(esc)
			}
			p.pos++
		default:
			sb.WriteByte(ch)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

// hexRune decodes the four hex digits of a \uXXXX escape starting at start.
func (p *literalParser) hexRune(start int) (rune, error) {
	if start+4 > len(p.input) {
		return 0, p.errorf("truncated unicode escape")
	}
	v, err := strconv.ParseUint(p.input[start:start+4], 16, 32)
	if err != nil {
		return 0, p.errorf("invalid unicode escape %q", p.input[start:start+4])
	}
	return rune(v), nil
}

func (p *literalParser) parseNumber() (any, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if (ch >= '0' && ch <= '9') || ch == '.' || ch == '-' || ch == '+' || ch == 'e' || ch == 'E' {
			p.pos++
			continue
		}
		break
	}
	text := p.input[start:p.pos]
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, p.errorf("invalid number %q", text)
	}
	return n, nil
}

func (p *literalParser) parseKeyword() (any, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') {
			p.pos++
			continue
		}
		break
	}
	switch p.input[start:p.pos] {
	case "true", "True":
		return true, nil
	case "false", "False":
		return false, nil
	case "null", "None":
		return nil, nil
	default:
		p.pos = start
		return nil, p.errorf("unexpected token")
	}
}
