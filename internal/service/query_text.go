package service

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/cloo-solutions/nl2sparql/internal/vocabulary"
)

// IRIREF per SPARQL 1.1: no whitespace, angle brackets, quotes, braces, pipe,
// caret, backtick or backslash.
const iriChars = `[^<>"{}|^` + "`" + `\\\s]*`

// PN_PREFIX, restricted so it never ends in '.'.
const pnPrefix = `\pL[\pL\pN_-]*(?:\.[\pL\pN_-]+)*`

var (
	iriAtStart        = regexp.MustCompile(`^<` + iriChars + `>`)
	iriPattern        = regexp.MustCompile(`<(` + iriChars + `)>`)
	iriRefPattern     = regexp.MustCompile(`^` + iriChars + `$`)
	prefixDeclPattern = regexp.MustCompile(`(?i)\bPREFIX\s+(` + pnPrefix + `)?:\s*<(` + iriChars + `)>`)
	baseDeclPattern   = regexp.MustCompile(`(?i)\bBASE\s*<(` + iriChars + `)>`)
	queryFormPattern  = regexp.MustCompile(`(?i)\b(select|ask|construct|describe)\b`)
	limitPattern      = regexp.MustCompile(`(?i)\b(limit)\b`)

	// Where a model reply's query begins: a declaration or query form at the
	// start of a line, or failing that anywhere as a whole word.
	queryStartLine = regexp.MustCompile(`(?im)^[ \t]*(prefix|base|select|ask|construct|describe)\b`)
	queryStartWord = regexp.MustCompile(`(?i)\b(prefix|select|ask|construct|describe)\b`)
)

// maskQuery returns q with string literals and comments replaced by spaces.
// IRIs are left intact so a '#' fragment is not read as a comment. Byte
// offsets and newlines are preserved.
func maskQuery(q string) string {
	out := []byte(q)
	n := len(q)
	blank := func(i int) {
		if out[i] != '\n' {
			out[i] = ' '
		}
	}

	for i := 0; i < n; {
		c := q[i]
		switch c {
		case '<':
			if loc := iriAtStart.FindStringIndex(q[i:]); loc != nil {
				i += loc[1]
				continue
			}
			i++
		case '\\':
			// PN_LOCAL_ESC such as dbr:Guns_N\'_Roses; the escaped
			// character never opens a literal or comment.
			i += 2
		case '#':
			for i < n && q[i] != '\n' {
				blank(i)
				i++
			}
		case '"', '\'':
			if i+2 < n && q[i+1] == c && q[i+2] == c {
				blank(i)
				blank(i + 1)
				blank(i + 2)
				i += 3
				for i < n {
					if q[i] == '\\' && i+1 < n {
						blank(i)
						blank(i + 1)
						i += 2
						continue
					}
					if i+2 < n && q[i] == c && q[i+1] == c && q[i+2] == c {
						blank(i)
						blank(i + 1)
						blank(i + 2)
						i += 3
						break
					}
					blank(i)
					i++
				}
				continue
			}
			blank(i)
			i++
			for i < n && q[i] != '\n' {
				if q[i] == '\\' && i+1 < n && q[i+1] != '\n' {
					blank(i)
					blank(i + 1)
					i += 2
					continue
				}
				if q[i] == c {
					blank(i)
					i++
					break
				}
				blank(i)
				i++
			}
		default:
			i++
		}
	}
	return string(out)
}

// blankMatches overwrites every match of re in s with spaces.
func blankMatches(s string, re *regexp.Regexp) string {
	locs := re.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return s
	}
	out := []byte(s)
	for _, loc := range locs {
		for i := loc[0]; i < loc[1]; i++ {
			if out[i] != '\n' {
				out[i] = ' '
			}
		}
	}
	return string(out)
}

// queryBody is the masked query with PREFIX and BASE declarations blanked.
func queryBody(query string) string {
	body := maskQuery(query)
	body = blankMatches(body, prefixDeclPattern)
	return blankMatches(body, baseDeclPattern)
}

// findKeyword returns the first match of re that is a keyword rather than
// part of a variable (?select) or prefixed name (ex:ask, ask:x).
func findKeyword(s string, re *regexp.Regexp) (string, bool) {
	for _, loc := range re.FindAllStringSubmatchIndex(s, -1) {
		start, end := loc[0], loc[1]
		if start > 0 && strings.ContainsRune("?$:", rune(s[start-1])) {
			continue
		}
		if end < len(s) && s[end] == ':' {
			continue
		}
		return s[loc[2]:loc[3]], true
	}
	return "", false
}

// QueryForm returns the upper-cased query form keyword (SELECT, ASK,
// CONSTRUCT or DESCRIBE) or "" when the text has none.
func QueryForm(query string) string {
	kw, ok := findKeyword(queryBody(query), queryFormPattern)
	if !ok {
		return ""
	}
	return strings.ToUpper(kw)
}

// DeclaredPrefixes returns the prefixes a query declares. The empty prefix
// is keyed as "".
func DeclaredPrefixes(query string) map[string]string {
	out := make(map[string]string)
	masked := maskQuery(query)
	for _, m := range prefixDeclPattern.FindAllStringSubmatchIndex(masked, -1) {
		name := ""
		if m[2] >= 0 {
			name = query[m[2]:m[3]]
		}
		out[name] = query[m[4]:m[5]]
	}
	return out
}

// BaseIRI returns the IRI of the last BASE declaration, resolved against the
// ones before it, or "" when the query declares none.
func BaseIRI(query string) string {
	base := ""
	masked := maskQuery(query)
	for _, m := range baseDeclPattern.FindAllStringSubmatchIndex(masked, -1) {
		base = resolveIRI(base, query[m[2]:m[3]])
	}
	return base
}

// resolveIRI resolves ref against base per RFC 3986. Absolute references and
// references that do not parse are returned unchanged.
func resolveIRI(base, ref string) string {
	if base == "" {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil || r.IsAbs() {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// IsIRIRef reports whether s is an absolute IRI that can be written between
// angle brackets without breaking out of them.
func IsIRIRef(s string) bool {
	if s == "" || !iriRefPattern.MatchString(s) {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}

// stripFences returns the contents of the first markdown code block, or the
// text unchanged when it has none.
func stripFences(text string) string {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			start = i
			break
		}
	}
	if start < 0 {
		return text
	}
	end := len(lines)
	for i := start + 1; i < len(lines); i++ {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
			end = i
			break
		}
	}
	return strings.Join(lines[start+1:end], "\n")
}

// ExtractQuery pulls the query out of a model reply: markdown fences are
// removed and any commentary before the first declaration or query form is
// dropped.
func ExtractQuery(text string) string {
	s := strings.TrimSpace(stripFences(text))
	if loc := queryStartLine.FindStringSubmatchIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[2]:])
	}
	if loc := queryStartWord.FindStringIndex(s); loc != nil {
		return strings.TrimSpace(s[loc[0]:])
	}
	return s
}

// EnsurePrefixes prepends, in table order, every standard PREFIX declaration
// the query does not already declare. Existing lines keep their order.
func EnsurePrefixes(query string) string {
	query = strings.TrimSpace(query)
	declared := DeclaredPrefixes(query)

	var missing []string
	for _, ns := range vocabulary.Standard() {
		if _, ok := declared[ns.Prefix]; !ok {
			missing = append(missing, ns.Declaration())
		}
	}
	if len(missing) == 0 {
		return query
	}
	block := strings.Join(missing, "\n")
	if query == "" {
		return block
	}
	return block + "\n" + query
}

// EnsureSelectLimit appends "LIMIT n" to a SELECT query that has no LIMIT.
// Other query forms are returned unchanged.
func EnsureSelectLimit(query string, limit int) string {
	query = strings.TrimSpace(query)
	if limit <= 0 || QueryForm(query) != "SELECT" {
		return query
	}
	if _, ok := findKeyword(queryBody(query), limitPattern); ok {
		return query
	}
	return query + "\nLIMIT " + strconv.Itoa(limit)
}
