package engine

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/automateai/agentrun/types"
)

// EvalCondition parses and evaluates a boolean expression against ctx.
// Supported grammar:
//
//	expr    = or
//	or      = and { "||" and }
//	and     = unary { "&&" unary }
//	unary   = "!" unary | cmp
//	cmp     = term [ ( "==" | "!=" | ">" | ">=" | "<" | "<=" ) term ]
//	term    = number | string | "true" | "false" | "null" | path | "(" expr ")"
//
// Paths are dotted identifiers resolved against ctx; a missing path yields
// nil, which compares unequal to everything except nil and is falsy.
func EvalCondition(expr string, ctx map[string]any) (bool, error) {
	p := &condParser{toks: nil, pos: 0}
	toks, err := lexCondition(expr)
	if err != nil {
		return false, err
	}
	if len(toks) == 0 {
		return false, types.NewError(types.ErrValidation, "empty condition expression")
	}
	p.toks = toks
	v, err := p.parseOr(ctx)
	if err != nil {
		return false, err
	}
	if p.pos != len(p.toks) {
		return false, condError(expr, "unexpected token %q", p.toks[p.pos].text)
	}
	return truthy(v), nil
}

func condError(expr, format string, args ...any) error {
	return types.NewError(types.ErrValidation,
		fmt.Sprintf("invalid condition %q: %s", expr, fmt.Sprintf(format, args...)))
}

type condTokenKind int

const (
	tokIdent condTokenKind = iota
	tokNumber
	tokString
	tokOp
	tokLParen
	tokRParen
)

type condToken struct {
	kind condTokenKind
	text string
}

func lexCondition(expr string) ([]condToken, error) {
	var toks []condToken
	rs := []rune(expr)
	i := 0
	for i < len(rs) {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, condToken{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, condToken{tokRParen, ")"})
			i++
		case r == '\'' || r == '"':
			quote := r
			j := i + 1
			for j < len(rs) && rs[j] != quote {
				j++
			}
			if j >= len(rs) {
				return nil, types.NewError(types.ErrValidation, "unterminated string in condition")
			}
			toks = append(toks, condToken{tokString, string(rs[i+1 : j])})
			i = j + 1
		case strings.ContainsRune("><=!&|", r):
			j := i
			for j < len(rs) && strings.ContainsRune("><=!&|", rs[j]) {
				j++
			}
			op := string(rs[i:j])
			switch op {
			case ">", ">=", "<", "<=", "==", "!=", "&&", "||", "!":
				toks = append(toks, condToken{tokOp, op})
			default:
				return nil, types.NewError(types.ErrValidation,
					fmt.Sprintf("unknown operator %q in condition", op))
			}
			i = j
		case unicode.IsDigit(r) || (r == '-' && i+1 < len(rs) && unicode.IsDigit(rs[i+1])):
			j := i + 1
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			toks = append(toks, condToken{tokNumber, string(rs[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_' || rs[j] == '.') {
				j++
			}
			toks = append(toks, condToken{tokIdent, string(rs[i:j])})
			i = j
		default:
			return nil, types.NewError(types.ErrValidation,
				fmt.Sprintf("unexpected character %q in condition", string(r)))
		}
	}
	return toks, nil
}

type condParser struct {
	toks []condToken
	pos  int
}

func (p *condParser) peek() (condToken, bool) {
	if p.pos >= len(p.toks) {
		return condToken{}, false
	}
	return p.toks[p.pos], true
}

func (p *condParser) acceptOp(ops ...string) (string, bool) {
	t, ok := p.peek()
	if !ok || t.kind != tokOp {
		return "", false
	}
	for _, op := range ops {
		if t.text == op {
			p.pos++
			return op, true
		}
	}
	return "", false
}

func (p *condParser) parseOr(ctx map[string]any) (any, error) {
	left, err := p.parseAnd(ctx)
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("||"); !ok {
			return left, nil
		}
		right, err := p.parseAnd(ctx)
		if err != nil {
			return nil, err
		}
		left = truthy(left) || truthy(right)
	}
}

func (p *condParser) parseAnd(ctx map[string]any) (any, error) {
	left, err := p.parseUnary(ctx)
	if err != nil {
		return nil, err
	}
	for {
		if _, ok := p.acceptOp("&&"); !ok {
			return left, nil
		}
		right, err := p.parseUnary(ctx)
		if err != nil {
			return nil, err
		}
		left = truthy(left) && truthy(right)
	}
}

func (p *condParser) parseUnary(ctx map[string]any) (any, error) {
	if _, ok := p.acceptOp("!"); ok {
		v, err := p.parseUnary(ctx)
		if err != nil {
			return nil, err
		}
		return !truthy(v), nil
	}
	return p.parseCmp(ctx)
}

func (p *condParser) parseCmp(ctx map[string]any) (any, error) {
	left, err := p.parseTerm(ctx)
	if err != nil {
		return nil, err
	}
	op, ok := p.acceptOp("==", "!=", ">=", "<=", ">", "<")
	if !ok {
		return left, nil
	}
	right, err := p.parseTerm(ctx)
	if err != nil {
		return nil, err
	}
	return compare(op, left, right)
}

func (p *condParser) parseTerm(ctx map[string]any) (any, error) {
	t, ok := p.peek()
	if !ok {
		return nil, types.NewError(types.ErrValidation, "condition ends unexpectedly")
	}
	switch t.kind {
	case tokLParen:
		p.pos++
		v, err := p.parseOr(ctx)
		if err != nil {
			return nil, err
		}
		if nt, ok := p.peek(); !ok || nt.kind != tokRParen {
			return nil, types.NewError(types.ErrValidation, "missing closing parenthesis in condition")
		}
		p.pos++
		return v, nil
	case tokNumber:
		p.pos++
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, types.NewError(types.ErrValidation,
				fmt.Sprintf("bad number %q in condition", t.text))
		}
		return f, nil
	case tokString:
		p.pos++
		return t.text, nil
	case tokIdent:
		p.pos++
		switch t.text {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null", "nil":
			return nil, nil
		}
		return LookupPath(ctx, t.text), nil
	}
	return nil, types.NewError(types.ErrValidation,
		fmt.Sprintf("unexpected token %q in condition", t.text))
}

func compare(op string, left, right any) (bool, error) {
	switch op {
	case "==":
		return looseEqual(left, right), nil
	case "!=":
		return !looseEqual(left, right), nil
	}
	lf, lok := toFloat(left)
	rf, rok := toFloat(right)
	if lok && rok {
		switch op {
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		}
	}
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		switch op {
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		}
	}
	return false, types.NewError(types.ErrValidation,
		fmt.Sprintf("operands of %q are not comparable: %T vs %T", op, left, right))
}

func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ab == bb
		}
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}

// LookupPath resolves a dotted path like "user.score" against nested maps.
// A missing segment or a non-map intermediate yields nil.
func LookupPath(ctx map[string]any, path string) any {
	parts := strings.Split(path, ".")
	var cur any = ctx
	for _, part := range parts {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = m[part]
		if !ok {
			return nil
		}
	}
	return cur
}
