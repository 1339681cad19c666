package sqlite

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/varunr89/oews-sub002/internal/domain/schema"
)

// parseCheckConstraints pulls CHECK constraints out of a CREATE TABLE
// statement. SQLite exposes no pragma for them, so the original SQL text
// kept in sqlite_master is the only record. The scan is quote-aware:
// CHECK inside a string literal or quoted identifier is ignored, and the
// expression runs to the matching close paren.
func parseCheckConstraints(table, createSQL string) []schema.CheckConstraint {
	var checks []schema.CheckConstraint
	src := createSQL
	for i := 0; i < len(src); {
		switch src[i] {
		case '\'', '"', '`':
			i = skipQuoted(src, i, src[i])
		case '[':
			i = skipBracketed(src, i)
		default:
			if isKeywordAt(src, i, "CHECK") {
				exprStart := strings.IndexByte(src[i:], '(')
				if exprStart < 0 {
					return checks
				}
				exprStart += i
				exprEnd := matchParen(src, exprStart)
				if exprEnd < 0 {
					return checks
				}
				name := constraintNameBefore(src, i)
				if name == "" {
					name = fmt.Sprintf("chk_%s_%d", table, len(checks)+1)
				}
				checks = append(checks, schema.CheckConstraint{
					Name:       name,
					Expression: strings.TrimSpace(src[exprStart+1 : exprEnd]),
				})
				i = exprEnd + 1
				continue
			}
			i++
		}
	}
	return checks
}

// skipQuoted advances past a quoted region starting at i, honoring the
// doubled-quote escape.
func skipQuoted(s string, i int, quote byte) int {
	for i++; i < len(s); i++ {
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(s)
}

func skipBracketed(s string, i int) int {
	for i++; i < len(s); i++ {
		if s[i] == ']' {
			return i + 1
		}
	}
	return len(s)
}

// isKeywordAt reports whether keyword starts at i as a whole word.
func isKeywordAt(s string, i int, keyword string) bool {
	if i+len(keyword) > len(s) {
		return false
	}
	if !strings.EqualFold(s[i:i+len(keyword)], keyword) {
		return false
	}
	if i > 0 && isIdentChar(rune(s[i-1])) {
		return false
	}
	if i+len(keyword) < len(s) && isIdentChar(rune(s[i+len(keyword)])) {
		return false
	}
	return true
}

func isIdentChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// matchParen returns the index of the close paren matching the open paren
// at i, or -1. Quoted regions inside the expression are skipped.
func matchParen(s string, i int) int {
	depth := 0
	for ; i < len(s); i++ {
		switch s[i] {
		case '\'', '"', '`':
			i = skipQuoted(s, i, s[i]) - 1
		case '[':
			i = skipBracketed(s, i) - 1
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// constraintNameBefore looks backwards from a CHECK keyword for a
// "CONSTRAINT <name>" prefix and returns the name, unquoted.
func constraintNameBefore(s string, checkAt int) string {
	j := checkAt - 1
	for j >= 0 && unicode.IsSpace(rune(s[j])) {
		j--
	}
	if j < 0 {
		return ""
	}

	var name string
	switch s[j] {
	case '"', '`', '\'':
		quote := s[j]
		end := j
		j--
		for j >= 0 && s[j] != quote {
			j--
		}
		if j < 0 {
			return ""
		}
		name = s[j+1 : end]
		j--
	case ']':
		end := j
		j--
		for j >= 0 && s[j] != '[' {
			j--
		}
		if j < 0 {
			return ""
		}
		name = s[j+1 : end]
		j--
	default:
		end := j + 1
		for j >= 0 && isIdentChar(rune(s[j])) {
			j--
		}
		name = s[j+1 : end]
	}
	if name == "" {
		return ""
	}

	for j >= 0 && unicode.IsSpace(rune(s[j])) {
		j--
	}
	const kw = "CONSTRAINT"
	start := j - len(kw) + 1
	if start < 0 || !strings.EqualFold(s[start:j+1], kw) {
		return ""
	}
	if start > 0 && isIdentChar(rune(s[start-1])) {
		return ""
	}
	return name
}
