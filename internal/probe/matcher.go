package probe

import (
	"fmt"
	"regexp"
)

// Pattern is a compiled extraction pattern. Only its first capture group is
// ever reported.
type Pattern struct {
	expr string
	re   *regexp.Regexp
}

// Extraction is the outcome of applying a Pattern to a body.
// Matched distinguishes "no match" from a match whose group captured "".
type Extraction struct {
	Text    string
	Matched bool
}

// NoMatch is returned by Extract when the body does not match.
var NoMatch = Extraction{}

// CompilePattern compiles expr in multiline mode so ^ and $ anchor at line
// boundaries. The pattern must declare at least one capture group.
func CompilePattern(expr string) (*Pattern, error) {
	re, err := regexp.Compile("(?m)" + expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, expr, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("%w: %q has no capture group", ErrInvalidPattern, expr)
	}
	return &Pattern{expr: expr, re: re}, nil
}

// String returns the pattern as the caller supplied it.
func (p *Pattern) String() string { return p.expr }

// Extract returns the first capture group of the first match in body.
func (p *Pattern) Extract(body string) Extraction {
	m := p.re.FindStringSubmatchIndex(body)
	if m == nil {
		return NoMatch
	}
	// group 1 may be optional and not participate in the match
	if m[2] < 0 {
		return Extraction{Matched: true}
	}
	return Extraction{Text: body[m[2]:m[3]], Matched: true}
}
