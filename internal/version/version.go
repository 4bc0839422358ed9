package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrInvalid = errors.New("invalid version")

// Version is a dotted numeric version with an optional Java-style update
// counter ("1.8.0_65") and a free-form qualifier ("-rc1", "+10-LTS",
// ".windows.1").
type Version struct {
	Parts     []int  `json:"parts" yaml:"parts"`
	Update    int    `json:"update,omitempty" yaml:"update,omitempty"`
	HasUpdate bool   `json:"has_update,omitempty" yaml:"has_update,omitempty"`
	Qualifier string `json:"qualifier,omitempty" yaml:"qualifier,omitempty"`

	raw string
}

func Parse(s string) (Version, error) {
	raw := s
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "v")
	if s == "" || s[0] < '0' || s[0] > '9' {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
	}

	v := Version{raw: strings.TrimSpace(raw)}

	main := s
	if i := strings.IndexAny(s, "-+ \t"); i >= 0 {
		main = s[:i]
		v.Qualifier = strings.TrimSpace(s[i:])
	}

	components := strings.Split(main, ".")
	for i, c := range components {
		if c == "" {
			return Version{}, fmt.Errorf("%w: empty component in %q", ErrInvalid, raw)
		}

		num, update, hasUpdate, ok := parseComponent(c)
		if !ok {
			if i == 0 {
				return Version{}, fmt.Errorf("%w: %q", ErrInvalid, raw)
			}
			v.Qualifier = joinQualifier(strings.Join(components[i:], "."), v.Qualifier)
			break
		}

		v.Parts = append(v.Parts, num)
		if hasUpdate {
			v.Update = update
			v.HasUpdate = true
			if i < len(components)-1 {
				v.Qualifier = joinQualifier(strings.Join(components[i+1:], "."), v.Qualifier)
			}
			break
		}
	}

	return v, nil
}

func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// parseComponent reads "8", or "0_65" where the underscore separates the
// update counter from the last numeric part.
func parseComponent(c string) (num, update int, hasUpdate, ok bool) {
	head, tail, found := strings.Cut(c, "_")
	n, err := strconv.Atoi(head)
	if err != nil || n < 0 {
		return 0, 0, false, false
	}
	if !found {
		return n, 0, false, true
	}
	u, err := strconv.Atoi(tail)
	if err != nil || u < 0 {
		return 0, 0, false, false
	}
	return n, u, true, true
}

func joinQualifier(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + b
	}
}

func (v Version) Major() int {
	if len(v.Parts) == 0 {
		return 0
	}
	return v.Parts[0]
}

// String returns the text the version was parsed from, or a canonical
// rendering for versions built by hand.
func (v Version) String() string {
	if v.raw != "" {
		return v.raw
	}
	parts := make([]string, len(v.Parts))
	for i, p := range v.Parts {
		parts[i] = strconv.Itoa(p)
	}
	s := strings.Join(parts, ".")
	if v.HasUpdate {
		s += "_" + strconv.Itoa(v.Update)
	}
	if v.Qualifier != "" {
		if strings.IndexAny(v.Qualifier[:1], "-+.") < 0 {
			s += "."
		}
		s += v.Qualifier
	}
	return s
}

// Compare returns -1, 0 or 1. Numeric parts are compared element-wise with
// the shorter sequence padded with zeros, then the update counter, then the
// qualifier (an empty qualifier sorts first).
func (v Version) Compare(o Version) int {
	n := max(len(v.Parts), len(o.Parts))
	for i := range n {
		if c := cmpInt(at(v.Parts, i), at(o.Parts, i)); c != 0 {
			return c
		}
	}
	if c := cmpInt(v.Update, o.Update); c != 0 {
		return c
	}
	return strings.Compare(v.Qualifier, o.Qualifier)
}

func (v Version) Less(o Version) bool {
	return v.Compare(o) < 0
}

func (v Version) LessOrEqual(o Version) bool {
	return v.Compare(o) <= 0
}

func at(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
