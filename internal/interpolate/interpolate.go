// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package interpolate expands ${NAME} and ${NAME:default} references in
// configuration strings.
//
// A reference without a default fails to render when the variable is
// unset. A backslash before the dollar sign (\${NAME}) produces the
// reference text literally.
package interpolate

import (
	"fmt"
	"strings"
)

type (
	term interface {
		render(VariableResolver) (string, error)
	}

	literal string

	variable struct {
		Name       string
		Default    string
		HasDefault bool
	}
)

func (l literal) render(VariableResolver) (string, error) { return string(l), nil }

func (v variable) render(resolve VariableResolver) (string, error) {
	if val, ok := resolve(v.Name); ok {
		return val, nil
	}
	if v.HasDefault {
		return v.Default, nil
	}
	return "", errUnknownVariable{Name: v.Name}
}

// VariableResolver looks up the value of a variable. ok is false when the
// variable is unset.
type VariableResolver func(name string) (value string, ok bool)

// String is a parsed string made of literals and variable references.
type String []term

// Parse parses s into a String.
func Parse(s string) (String, error) {
	var (
		out String
		lit strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, literal(lit.String()))
			lit.Reset()
		}
	}

	for i := 0; i < len(s); {
		switch {
		case s[i] == '\\' && strings.HasPrefix(s[i+1:], "$"):
			lit.WriteByte('$')
			i += 2
		case strings.HasPrefix(s[i:], "${"):
			end := strings.IndexByte(s[i+2:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated reference at offset %d", i)
			}
			v, err := parseVariable(s[i+2 : i+2+end])
			if err != nil {
				return nil, fmt.Errorf("bad reference at offset %d: %v", i, err)
			}
			flush()
			out = append(out, v)
			i += end + 3
		default:
			lit.WriteByte(s[i])
			i++
		}
	}
	flush()
	return out, nil
}

// parseVariable parses the body of a ${...} reference. Names are made of
// letters, digits and underscores, optionally joined by single dashes.
func parseVariable(body string) (variable, error) {
	v := variable{Name: body}
	if idx := strings.IndexByte(body, ':'); idx >= 0 {
		v = variable{Name: body[:idx], Default: body[idx+1:], HasDefault: true}
	}

	name := v.Name
	if name == "" {
		return v, fmt.Errorf("empty variable name")
	}
	if name[0] == '-' || name[len(name)-1] == '-' || strings.Contains(name, "--") {
		return v, fmt.Errorf("invalid variable name %q", name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return v, fmt.Errorf("invalid character %q in variable name %q", r, name)
		}
	}
	return v, nil
}

// Render renders the string, resolving variables with resolve.
func (s String) Render(resolve VariableResolver) (string, error) {
	var sb strings.Builder
	for _, t := range s {
		val, err := t.render(resolve)
		if err != nil {
			return "", err
		}
		sb.WriteString(val)
	}
	return sb.String(), nil
}

type errUnknownVariable struct{ Name string }

func (e errUnknownVariable) Error() string {
	return fmt.Sprintf("variable %q does not have a value or a default", e.Name)
}
