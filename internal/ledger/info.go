package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Info is the structured form of a record's info payload: a string-keyed
// mapping with primitive, list or nested-mapping values. JSON is the
// primary encoding; ledgers migrated from the legacy system may still
// carry single-quoted literal mappings, which DecodeInfo accepts as a
// compatibility fallback.
type Info map[string]any

// Merge shallow-merges other into i; other's keys win on conflict.
func (i Info) Merge(other Info) {
	for key, value := range other {
		i[key] = value
	}
}

// Encode renders the canonical JSON form. encoding/json sorts map keys,
// so the output is deterministic.
func (i Info) Encode() string {
	raw, err := json.Marshal(i)
	if err != nil {
		// Values come from DecodeInfo or plain literals; marshalling
		// them cannot fail in practice.
		return "{}"
	}
	return string(raw)
}

// DecodeInfo parses an info payload into its structured form. It tries
// JSON first, then the legacy quoted-literal format. Stray wrapping
// quote characters around the whole payload are stripped before parsing.
func DecodeInfo(payload string) (Info, error) {
	trimmed := stripWrappingQuotes(strings.TrimSpace(payload))
	if trimmed == "" || trimmed == UnsetLabel {
		return Info{}, nil
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err == nil {
		return Info(decoded), nil
	}
	return decodeLegacyInfo(trimmed)
}

func stripWrappingQuotes(payload string) string {
	if len(payload) > 0 && (payload[0] == '"' || payload[0] == '\'') {
		payload = payload[1:]
	}
	if len(payload) > 0 {
		last := payload[len(payload)-1]
		if last == '"' || last == '\'' {
			payload = payload[:len(payload)-1]
		}
	}
	return payload
}

// decodeLegacyInfo parses the legacy literal format: a mapping like
// {'client': '127.0.0.1', 'pages': 9, 'languages': ['ger']} written by
// the previous implementation. Only the subset that ever occurs in
// ledgers is supported: mappings, lists, tuples, quoted strings,
// numbers, True/False/None.
func decodeLegacyInfo(payload string) (Info, error) {
	p := &legacyParser{input: payload}
	value, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("info payload: trailing data at offset %d", p.pos)
	}
	mapping, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("info payload: not a mapping")
	}
	return Info(mapping), nil
}

type legacyParser struct {
	input string
	pos   int
}

func (p *legacyParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *legacyParser) peek() (byte, bool) {
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *legacyParser) expect(c byte) error {
	got, ok := p.peek()
	if !ok || got != c {
		return fmt.Errorf("info payload: expected %q at offset %d", string(c), p.pos)
	}
	p.pos++
	return nil
}

func (p *legacyParser) parseValue() (any, error) {
	p.skipSpace()
	c, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("info payload: unexpected end of input")
	}
	switch {
	case c == '{':
		return p.parseDict()
	case c == '[':
		return p.parseSeq('[', ']')
	case c == '(':
		return p.parseSeq('(', ')')
	case c == '\'' || c == '"':
		return p.parseString()
	case c == '-' || c == '+' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.parseKeyword()
	}
}

func (p *legacyParser) parseDict() (map[string]any, error) {
	if err := p.expect('{'); err != nil {
		return nil, err
	}
	result := map[string]any{}
	p.skipSpace()
	if c, ok := p.peek(); ok && c == '}' {
		p.pos++
		return result, nil
	}
	for {
		p.skipSpace()
		key, err := p.parseString()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if err := p.expect(':'); err != nil {
			return nil, err
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		result[key] = value
		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("info payload: unterminated mapping")
		}
		if c == ',' {
			p.pos++
			continue
		}
		if c == '}' {
			p.pos++
			return result, nil
		}
		return nil, fmt.Errorf("info payload: unexpected %q at offset %d", string(c), p.pos)
	}
}

func (p *legacyParser) parseSeq(open, close byte) ([]any, error) {
	if err := p.expect(open); err != nil {
		return nil, err
	}
	var result []any
	p.skipSpace()
	if c, ok := p.peek(); ok && c == close {
		p.pos++
		return result, nil
	}
	for {
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		result = append(result, value)
		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("info payload: unterminated sequence")
		}
		if c == ',' {
			p.pos++
			p.skipSpace()
			// tolerate a trailing comma before the closing bracket
			if c2, ok2 := p.peek(); ok2 && c2 == close {
				p.pos++
				return result, nil
			}
			continue
		}
		if c == close {
			p.pos++
			return result, nil
		}
		return nil, fmt.Errorf("info payload: unexpected %q at offset %d", string(c), p.pos)
	}
}

func (p *legacyParser) parseString() (string, error) {
	quote, ok := p.peek()
	if !ok || (quote != '\'' && quote != '"') {
		return "", fmt.Errorf("info payload: expected string at offset %d", p.pos)
	}
	p.pos++
	var sb strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '\\' && p.pos+1 < len(p.input) {
			next := p.input[p.pos+1]
			switch next {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(next)
			}
			p.pos += 2
			continue
		}
		if c == quote {
			p.pos++
			return sb.String(), nil
		}
		sb.WriteByte(c)
		p.pos++
	}
	return "", fmt.Errorf("info payload: unterminated string")
}

func (p *legacyParser) parseNumber() (any, error) {
	start := p.pos
	if c, ok := p.peek(); ok && (c == '-' || c == '+') {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' {
			isFloat = true
			p.pos++
			continue
		}
		break
	}
	token := p.input[start:p.pos]
	if isFloat {
		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return nil, fmt.Errorf("info payload: bad number %q", token)
		}
		return value, nil
	}
	value, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("info payload: bad number %q", token)
	}
	return value, nil
}

func (p *legacyParser) parseKeyword() (any, error) {
	rest := p.input[p.pos:]
	switch {
	case strings.HasPrefix(rest, "True"):
		p.pos += 4
		return true, nil
	case strings.HasPrefix(rest, "False"):
		p.pos += 5
		return false, nil
	case strings.HasPrefix(rest, "None"):
		p.pos += 4
		return nil, nil
	default:
		return nil, fmt.Errorf("info payload: unexpected token at offset %d", p.pos)
	}
}
