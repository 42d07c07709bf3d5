package expr

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/stillcare/carefront/pkg/visibility"
)

// Compiler parses rule strings into visibility.Condition values.
//
// Supported forms:
// - truthy checks: `consent_given`, `!photos_taken`
// - comparisons: `status == "cancelled"`, `repeats != false`, `count == 3`
// - composition: `a && (b || !c)`
//
// Missing controls are falsy and compare equal to null. Evaluation never
// fails; every error is reported by Compile.
type Compiler struct{}

// New returns a Compiler.
func New() *Compiler { return &Compiler{} }

var _ visibility.Compiler = (*Compiler)(nil)

// Compile parses rule. An empty rule compiles to a condition that is always
// true.
func (c *Compiler) Compile(rule string) (visibility.Condition, error) {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return always{}, nil
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	stream := &tokenStream{tokens: tokens}
	root, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("visibility/expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}

	seen := make(map[string]struct{})
	root.identifiers(seen)
	idents := make([]string, 0, len(seen))
	for ident := range seen {
		idents = append(idents, ident)
	}
	sort.Strings(idents)

	return &condition{source: trimmed, root: root, idents: idents}, nil
}

// MustCompile is like Compile but panics on error. Intended for rule tables
// declared in code.
func MustCompile(rule string) visibility.Condition {
	cond, err := New().Compile(rule)
	if err != nil {
		panic(err)
	}
	return cond
}

type always struct{}

func (always) Eval(visibility.Context) bool { return true }
func (always) Identifiers() []string { return nil }

type condition struct {
	source string
	root   node
	idents []string
}

func (c *condition) Eval(ctx visibility.Context) bool {
	return c.root.eval(ctx)
}

func (c *condition) Identifiers() []string {
	return append([]string(nil), c.idents...)
}

func (c *condition) String() string {
	return c.source
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenAnd
	tokenOr
	tokenNot
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(input) {
		ch := input[i]
		switch {
		case isSpace(ch):
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			i++
		case ch == '!':
			if i+1 < len(input) && input[i+1] == '=' {
				tokens = append(tokens, token{kind: tokenNeq, raw: "!="})
				i += 2
				continue
			}
			tokens = append(tokens, token{kind: tokenNot, raw: "!"})
			i++
		case ch == '=' || ch == '&' || ch == '|':
			if i+1 >= len(input) || input[i+1] != ch {
				return nil, fmt.Errorf("visibility/expr: unexpected %q; use %q", string(ch), string([]byte{ch, ch}))
			}
			tokens = append(tokens, token{kind: operatorKind(ch), raw: input[i : i+2]})
			i += 2
		case ch == '"' || ch == '\'':
			value, next, err := scanString(input, i)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token{kind: tokenString, raw: value})
			i = next
		default:
			start := i
			for i < len(input) && !isSpace(input[i]) && !strings.ContainsRune("()!=&|", rune(input[i])) {
				i++
			}
			tokens = append(tokens, classifyWord(input[start:i]))
		}
	}
	return tokens, nil
}

func scanString(input string, start int) (string, int, error) {
	quote := input[start]
	escaped := false
	for i := start + 1; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c != quote {
			continue
		}
		body := input[start+1 : i]
		if quote == '\'' {
			body = strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(body)
			return body, i + 1, nil
		}
		value, err := strconv.Unquote(`"` + body + `"`)
		if err != nil {
			return "", 0, fmt.Errorf("visibility/expr: invalid string literal: %w", err)
		}
		return value, i + 1, nil
	}
	return "", 0, errors.New("visibility/expr: unterminated string literal")
}

func classifyWord(raw string) token {
	switch strings.ToLower(raw) {
	case "true", "false":
		return token{kind: tokenBool, raw: strings.ToLower(raw)}
	case "null", "nil":
		return token{kind: tokenNull, raw: "null"}
	}
	if looksLikeNumber(raw) {
		if _, err := strconv.ParseFloat(raw, 64); err == nil {
			return token{kind: tokenNumber, raw: raw}
		}
	}
	return token{kind: tokenIdentifier, raw: raw}
}

func looksLikeNumber(raw string) bool {
	ch := raw[0]
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+'
}

func operatorKind(ch byte) tokenKind {
	switch ch {
	case '=':
		return tokenEq
	case '&':
		return tokenAnd
	default:
		return tokenOr
	}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

type node interface {
	eval(ctx visibility.Context) bool
	identifiers(into map[string]struct{})
}

type orNode struct{ left, right node }

func (n orNode) eval(ctx visibility.Context) bool { return n.left.eval(ctx) || n.right.eval(ctx) }
func (n orNode) identifiers(into map[string]struct{}) {
	n.left.identifiers(into)
	n.right.identifiers(into)
}

type andNode struct{ left, right node }

func (n andNode) eval(ctx visibility.Context) bool { return n.left.eval(ctx) && n.right.eval(ctx) }
func (n andNode) identifiers(into map[string]struct{}) {
	n.left.identifiers(into)
	n.right.identifiers(into)
}

type notNode struct{ inner node }

func (n notNode) eval(ctx visibility.Context) bool { return !n.inner.eval(ctx) }
func (n notNode) identifiers(into map[string]struct{}) { n.inner.identifiers(into) }

type truthyNode struct{ ident string }

func (n truthyNode) eval(ctx visibility.Context) bool {
	value, ok := lookup(ctx, n.ident)
	return ok && truthy(value)
}

func (n truthyNode) identifiers(into map[string]struct{}) { addIdent(into, n.ident) }

type compareNode struct {
	ident   string
	negate  bool
	literal token
	number  float64
}

func (n compareNode) eval(ctx visibility.Context) bool {
	value, ok := lookup(ctx, n.ident)
	if !ok {
		value = nil
	}

	var equal bool
	switch n.literal.kind {
	case tokenNull:
		equal = value == nil
	case tokenBool:
		equal = truthy(value) == (n.literal.raw == "true")
	case tokenNumber:
		got, ok := coerceNumber(value)
		equal = ok && got == n.number
	default:
		equal = coerceString(value) == n.literal.raw
	}
	if n.negate {
		return !equal
	}
	return equal
}

func (n compareNode) identifiers(into map[string]struct{}) { addIdent(into, n.ident) }

func addIdent(into map[string]struct{}, ident string) {
	if strings.HasPrefix(strings.ToLower(ident), "extras.") {
		return
	}
	into[ident] = struct{}{}
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseOr(s *tokenStream) (node, error) {
	left, err := parseAnd(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokenOr) {
		right, err := parseAnd(s)
		if err != nil {
			return nil, err
		}
		left = orNode{left: left, right: right}
	}
	return left, nil
}

func parseAnd(s *tokenStream) (node, error) {
	left, err := parseUnary(s)
	if err != nil {
		return nil, err
	}
	for s.match(tokenAnd) {
		right, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		left = andNode{left: left, right: right}
	}
	return left, nil
}

func parseUnary(s *tokenStream) (node, error) {
	if s.match(tokenNot) {
		inner, err := parseUnary(s)
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return parsePrimary(s)
}

func parsePrimary(s *tokenStream) (node, error) {
	if s.match(tokenLParen) {
		inner, err := parseOr(s)
		if err != nil {
			return nil, err
		}
		if !s.match(tokenRParen) {
			return nil, errors.New("visibility/expr: missing closing ')'")
		}
		return inner, nil
	}

	if s.pos >= len(s.tokens) {
		return nil, errors.New("visibility/expr: unexpected end of expression")
	}
	ident := s.tokens[s.pos]
	if ident.kind != tokenIdentifier {
		return nil, fmt.Errorf("visibility/expr: expected identifier, got %q", ident.raw)
	}
	s.pos++

	negate := false
	switch {
	case s.match(tokenEq):
	case s.match(tokenNeq):
		negate = true
	default:
		return truthyNode{ident: ident.raw}, nil
	}

	if s.pos >= len(s.tokens) {
		return nil, errors.New("visibility/expr: missing literal")
	}
	lit := s.tokens[s.pos]
	s.pos++
	cmp := compareNode{ident: ident.raw, negate: negate, literal: lit}
	switch lit.kind {
	case tokenString, tokenBool, tokenNull:
	case tokenNumber:
		cmp.number, _ = strconv.ParseFloat(lit.raw, 64)
	case tokenIdentifier:
		// Bare words compare as strings: `consent_type == verbal`.
		cmp.literal.kind = tokenString
	default:
		return nil, fmt.Errorf("visibility/expr: expected literal, got %q", lit.raw)
	}
	return cmp, nil
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func lookup(ctx visibility.Context, key string) (any, bool) {
	if strings.HasPrefix(strings.ToLower(key), "extras.") {
		v, ok := ctx.Extras[key[len("extras."):]]
		return v, ok
	}
	if ctx.Values == nil {
		return nil, false
	}
	return ctx.Values.Resolve(key)
}

func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		trimmed := strings.TrimSpace(v)
		if parsed, err := strconv.ParseBool(trimmed); err == nil {
			return parsed
		}
		return trimmed != "" && trimmed != "off"
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case []string:
		return len(v) > 0
	default:
		return true
	}
}

func coerceNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func coerceString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(value)
	}
}
