package validator

import (
	"fmt"
	"strings"

	"github.com/wildcard/caro/internal/model"
)

// Tokenize splits a command line into pipeline segments, honoring single
// and double quoting. Text inside single quotes is never treated as a
// pattern-match context (Validate checks each match's byte offset against
// the mask from tokenizeWithQuoteMask), matching spec's "ignore matches
// inside single quotes" rule.
func Tokenize(line string) ([]model.ParsedSegment, error) {
	segments, _, err := tokenizeWithQuoteMask(line)
	return segments, err
}

// tokenizeWithQuoteMask returns both the parsed pipeline segments and a
// per-byte mask reporting whether that offset fell inside single quotes,
// so the rule engine can apply the "ignore matches inside single quotes"
// context predicate against the original, untokenized string.
func tokenizeWithQuoteMask(line string) ([]model.ParsedSegment, []bool, error) {
	mask := make([]bool, len(line))

	var segments []model.ParsedSegment
	var argv []string
	var redirects []string
	var cur strings.Builder
	haveToken := false
	background := false

	inSingle, inDouble := false, false

	flushToken := func() {
		if haveToken {
			argv = append(argv, cur.String())
			cur.Reset()
			haveToken = false
		}
	}
	flushSegment := func() {
		flushToken()
		if len(argv) > 0 || len(redirects) > 0 {
			segments = append(segments, model.ParsedSegment{Argv: argv, Redirects: redirects, Background: background})
		}
		argv = nil
		redirects = nil
		background = false
	}

	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case inSingle:
			mask[i] = true
			if c == '\'' {
				inSingle = false
			} else {
				cur.WriteByte(c)
				haveToken = true
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			} else {
				cur.WriteByte(c)
				haveToken = true
			}
		case c == '\'':
			inSingle = true
			haveToken = true
		case c == '"':
			inDouble = true
			haveToken = true
		case c == ' ' || c == '\t':
			flushToken()
		case c == '|':
			flushSegment()
		case c == '>' || c == '<':
			flushToken()
			redir := string(c)
			if i+1 < len(line) && line[i+1] == '>' {
				redir += ">"
				i++
			}
			i++
			for i < len(line) && (line[i] == ' ' || line[i] == '\t') {
				i++
			}
			start := i
			for i < len(line) && line[i] != ' ' && line[i] != '\t' && line[i] != '|' {
				i++
			}
			redirects = append(redirects, redir+" "+line[start:i])
			continue
		case c == '&' && i+1 >= len(line):
			background = true
			i++
			continue
		default:
			cur.WriteByte(c)
			haveToken = true
		}
		i++
	}

	if inSingle || inDouble {
		return nil, mask, fmt.Errorf("unterminated quote in command")
	}

	flushSegment()
	return segments, mask, nil
}
