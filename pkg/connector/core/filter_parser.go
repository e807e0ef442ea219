package core

import (
	"strings"

	"github.com/ajitpratap0/idbridge/pkg/errors"
)

// ParseFilter parses the textual filter syntax used by the CLI:
//
//	__NAME__ sw "jo" and not (email ew "@example.com" or age gt 40)
//
// Operators are eq, sw, ew, co, gt and lt. "not" binds tighter than "and",
// which binds tighter than "or". Values are double quoted or bare words.
// An empty expression yields a nil filter.
func ParseFilter(expr string) (Filter, error) {
	toks, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	if len(toks) == 0 {
		return nil, nil
	}
	p := &filterParser{toks: toks}
	f, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, errors.Newf(errors.ErrorTypeValidation, "unexpected %q in filter", p.peek().text)
	}
	return f, nil
}

type token struct {
	text   string
	quoted bool
}

func tokenize(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n':
			i++
		case c == '(' || c == ')':
			toks = append(toks, token{text: string(c)})
			i++
		case c == '"':
			var b strings.Builder
			i++
			closed := false
			for i < len(s) {
				if s[i] == '\\' && i+1 < len(s) {
					b.WriteByte(s[i+1])
					i += 2
					continue
				}
				if s[i] == '"' {
					closed = true
					i++
					break
				}
				b.WriteByte(s[i])
				i++
			}
			if !closed {
				return nil, errors.New(errors.ErrorTypeValidation, "unterminated string in filter")
			}
			toks = append(toks, token{text: b.String(), quoted: true})
		default:
			start := i
			for i < len(s) && !strings.ContainsRune(" \t\n()\"", rune(s[i])) {
				i++
			}
			toks = append(toks, token{text: s[start:i]})
		}
	}
	return toks, nil
}

type filterParser struct {
	toks []token
	pos  int
}

func (p *filterParser) done() bool { return p.pos >= len(p.toks) }

func (p *filterParser) peek() token {
	if p.done() {
		return token{}
	}
	return p.toks[p.pos]
}

func (p *filterParser) next() (token, error) {
	if p.done() {
		return token{}, errors.New(errors.ErrorTypeValidation, "unexpected end of filter")
	}
	t := p.toks[p.pos]
	p.pos++
	return t, nil
}

func (p *filterParser) keyword(kw string) bool {
	t := p.peek()
	if !t.quoted && strings.EqualFold(t.text, kw) {
		p.pos++
		return true
	}
	return false
}

func (p *filterParser) parseOr() (Filter, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.keyword("or") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &OrFilter{Left: left, Right: right}
	}
	return left, nil
}

func (p *filterParser) parseAnd() (Filter, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.keyword("and") {
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &AndFilter{Left: left, Right: right}
	}
	return left, nil
}

func (p *filterParser) parseUnary() (Filter, error) {
	if p.keyword("not") {
		f, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &NotFilter{Filter: f}, nil
	}
	if p.keyword("(") {
		f, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if !p.keyword(")") {
			return nil, errors.New(errors.ErrorTypeValidation, "missing ) in filter")
		}
		return f, nil
	}
	return p.parseCompare()
}

func (p *filterParser) parseCompare() (Filter, error) {
	attr, err := p.next()
	if err != nil {
		return nil, err
	}
	if attr.quoted || attr.text == "(" || attr.text == ")" {
		return nil, errors.Newf(errors.ErrorTypeValidation, "expected attribute name, got %q", attr.text)
	}
	op, err := p.next()
	if err != nil {
		return nil, err
	}
	fop := FilterOp(strings.ToLower(op.text))
	switch fop {
	case OpEquals, OpStartsWith, OpEndsWith, OpContains, OpGreaterThan, OpLessThan:
	default:
		return nil, errors.Newf(errors.ErrorTypeValidation, "unknown filter operator %q", op.text)
	}
	val, err := p.next()
	if err != nil {
		return nil, err
	}
	if !val.quoted && (val.text == "(" || val.text == ")") {
		return nil, errors.Newf(errors.ErrorTypeValidation, "expected value after %s %s", attr.text, op.text)
	}
	return &CompareFilter{Op: fop, Name: attr.text, Value: val.text}, nil
}
