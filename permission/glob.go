package permission

import (
	"regexp"
	"strings"
)

// CompilePattern compiles a rule glob pattern into an anchored regular
// expression. The dialect:
//
//   - `**/` matches zero or more leading path segments
//   - `**` (not followed by `/`) matches any characters including `/`
//   - `*` matches any characters except `/`
//   - `?` matches exactly one character except `/`
//   - `[seq]` is passed through verbatim as a character class; an
//     unterminated `[` is treated as a literal bracket
//   - everything else matches literally
//
// The result matches the full target string only, case-sensitively, with no
// path-separator normalization.
//
// Character-class negation is asymmetric and deliberately kept that way:
// `[!seq]` is NOT translated to a negated class — the `!` is an ordinary
// member, so "file[!123].txt" matches both "file!.txt" and "file1.txt" —
// while `[^seq]` negates natively. This deviates from POSIX glob; rulesets
// that need negation must use `[^seq]`.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")

	i, n := 0, len(pattern)
	for i < n {
		switch c := pattern[i]; c {
		case '*':
			if i+1 < n && pattern[i+1] == '*' {
				if i+2 < n && pattern[i+2] == '/' {
					// **/ matches zero or more directories
					b.WriteString("(?:.*/)?")
					i += 3
				} else {
					b.WriteString(".*")
					i += 2
				}
			} else {
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			j := i + 1
			if j < n && (pattern[j] == '!' || pattern[j] == '^') {
				j++
			}
			if j < n && pattern[j] == ']' {
				// `]` as first class member does not close the class
				j++
			}
			for j < n && pattern[j] != ']' {
				j++
			}
			if j < n {
				b.WriteString(pattern[i : j+1])
				i = j + 1
			} else {
				// No closing bracket: literal `[`
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		}
	}

	b.WriteString("$")
	return regexp.Compile(b.String())
}

// MatchPattern reports whether target matches the glob pattern.
// A pattern that fails to compile matches nothing.
func MatchPattern(target, pattern string) bool {
	re, err := CompilePattern(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(target)
}
