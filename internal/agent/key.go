package agent

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidKey = errors.New("invalid item key")

// ParseKey splits an item key such as
//
//	glassfish.ping.connection.pool["https://app",4848,pool,"exit_code.:.(\w+).,",user,pass]
//
// into its name and parameters. Parameters are comma separated; a parameter
// may be wrapped in double quotes, in which case it can contain commas and
// ']' and a literal quote is written as \". Spaces before a parameter are
// ignored.
func ParseKey(s string) (string, []string, error) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '[')
	if open < 0 {
		if s == "" {
			return "", nil, fmt.Errorf("%w: empty key", ErrInvalidKey)
		}
		return s, nil, nil
	}
	name := s[:open]
	if name == "" {
		return "", nil, fmt.Errorf("%w: missing key name", ErrInvalidKey)
	}
	if !strings.HasSuffix(s, "]") {
		return "", nil, fmt.Errorf("%w: missing closing bracket", ErrInvalidKey)
	}

	params, err := parseParams(s[open+1 : len(s)-1])
	if err != nil {
		return "", nil, err
	}
	return name, params, nil
}

func parseParams(in string) ([]string, error) {
	var (
		params []string
		cur    strings.Builder
		i      int
	)
	for {
		for i < len(in) && in[i] == ' ' {
			i++
		}
		cur.Reset()
		quoted := false
		if i < len(in) && in[i] == '"' {
			quoted = true
			i++
			closed := false
			for i < len(in) {
				c := in[i]
				if c == '\\' && i+1 < len(in) && in[i+1] == '"' {
					cur.WriteByte('"')
					i += 2
					continue
				}
				if c == '"' {
					closed = true
					i++
					break
				}
				cur.WriteByte(c)
				i++
			}
			if !closed {
				return nil, fmt.Errorf("%w: unterminated quoted parameter %d", ErrInvalidKey, len(params)+1)
			}
			for i < len(in) && in[i] == ' ' {
				i++
			}
			if i < len(in) && in[i] != ',' {
				return nil, fmt.Errorf("%w: unexpected %q after quoted parameter %d", ErrInvalidKey, in[i], len(params)+1)
			}
		} else {
			for i < len(in) && in[i] != ',' {
				if in[i] == ']' {
					return nil, fmt.Errorf("%w: unquoted ']' in parameter %d", ErrInvalidKey, len(params)+1)
				}
				cur.WriteByte(in[i])
				i++
			}
		}
		v := cur.String()
		if !quoted {
			v = strings.TrimRight(v, " ")
		}
		params = append(params, v)
		if i >= len(in) {
			return params, nil
		}
		i++ // skip ','
	}
}
