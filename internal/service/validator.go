package service

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/nl2sparql/internal/domain"
	"github.com/cloo-solutions/nl2sparql/internal/vocabulary"
)

// PN_LOCAL pieces: plain characters (':' included), %-encoded bytes and
// backslash escapes. A local name may contain '.' but not end with one.
const (
	pnLocalChar  = `(?:[\pL\pN_:-]|%[0-9A-Fa-f]{2}|\\[_~.\-!$&'()*+,;=/?#@%])`
	pnLocalFirst = `(?:[\pL\pN_:]|%[0-9A-Fa-f]{2}|\\[_~.\-!$&'()*+,;=/?#@%])`
)

// Anchored token patterns for scanning a masked query body the way the
// SPARQL lexer does: longest token first, left to right.
var (
	prefixedNamePattern = regexp.MustCompile(`^(` + pnPrefix + `)?:(` + pnLocalFirst + `(?:(?:` + pnLocalChar + `|\.)*` + pnLocalChar + `)?)?`)
	varNamePattern      = regexp.MustCompile(`^[?$][\pL\pN_]*`)
	langTagPattern      = regexp.MustCompile(`^@[A-Za-z]+(?:-[A-Za-z0-9]+)*`)
	numberPattern       = regexp.MustCompile(`^(?:[0-9]+\.[0-9]*[eE][+-]?[0-9]+|\.?[0-9]+[eE][+-]?[0-9]+|[0-9]*\.[0-9]+|[0-9]+)`)
	blankNodePattern    = regexp.MustCompile(`^_:[\pL\pN_](?:[\pL\pN_.-]*[\pL\pN_-])?`)
	wordPattern         = regexp.MustCompile(`^[\pL\pN_]+`)
)

var (
	// ErrNoQueryForm is returned for text without SELECT, ASK, CONSTRUCT or DESCRIBE.
	ErrNoQueryForm = errors.New("query has no SELECT, ASK, CONSTRUCT or DESCRIBE form")
)

// DisallowedIdentifiersError lists the identifiers outside the allow set.
type DisallowedIdentifiersError struct {
	Identifiers []string
}

func (e *DisallowedIdentifiersError) Error() string {
	return fmt.Sprintf("query references identifiers outside the allowed set: %s", strings.Join(e.Identifiers, ", "))
}

// alwaysAllowed may appear in any query regardless of retrieval.
var alwaysAllowed = []string{
	"rdf:type", vocabulary.RDFType,
	"rdfs:label", vocabulary.RDFSLabel,
	"dbo:abstract", vocabulary.DBOAbstract,
}

// AllowSet holds the identifiers, both full and prefixed, a generated query
// may reference.
type AllowSet map[string]struct{}

// NewAllowSet collects the URIs and prefixed forms of the retrieved
// entities, properties and classes plus the always-allowed terms.
func NewAllowSet(entities []domain.Entity, properties, classes []domain.SchemaItem) AllowSet {
	set := make(AllowSet)
	for _, id := range alwaysAllowed {
		set[id] = struct{}{}
	}
	for _, e := range entities {
		if e.URI == "" {
			continue
		}
		set[e.URI] = struct{}{}
		set[vocabulary.ToPrefixed(e.URI)] = struct{}{}
	}
	for _, items := range [][]domain.SchemaItem{properties, classes} {
		for _, it := range items {
			if it.URI == "" {
				continue
			}
			set[it.URI] = struct{}{}
			prefixed := it.Prefixed
			if prefixed == "" {
				prefixed = vocabulary.ToPrefixed(it.URI)
			}
			set[prefixed] = struct{}{}
		}
	}
	return set
}

func (a AllowSet) Contains(id string) bool {
	_, ok := a[id]
	return ok
}

// Identifier is an external name referenced by a query.
type Identifier struct {
	// Token is the text as written: an IRI without brackets ("<>" for the
	// empty relative IRI) or a prefixed name.
	Token string
	// IRI is the expanded form, resolved against the query's BASE.
	IRI      string
	Prefixed bool
}

// ExtractIdentifiers returns, in order of first appearance, every BASE IRI,
// every IRI and every prefixed name with a standard or query-declared prefix
// outside the declarations. String literals and comments are not scanned.
func ExtractIdentifiers(query string) []Identifier {
	declared := DeclaredPrefixes(query)
	base := BaseIRI(query)
	body := queryBody(query)

	type hit struct {
		pos int
		id  Identifier
	}
	var hits []hit

	masked := maskQuery(query)
	for _, m := range baseDeclPattern.FindAllStringSubmatchIndex(masked, -1) {
		iri := query[m[2]:m[3]]
		hits = append(hits, hit{pos: m[0], id: iriIdentifier(iri, resolveIRI(base, iri))})
	}

	for _, m := range iriPattern.FindAllStringSubmatchIndex(body, -1) {
		iri := body[m[2]:m[3]]
		hits = append(hits, hit{pos: m[0], id: iriIdentifier(iri, resolveIRI(base, iri))})
	}

	// IRIs are removed so their scheme or path is not read as a prefixed name.
	names := blankMatches(body, iriPattern)
	reserved := vocabulary.PrefixMap()
	for pos := 0; pos < len(names); {
		rest := names[pos:]
		if n := skipNonName(rest); n > 0 {
			pos += n
			continue
		}
		m := prefixedNamePattern.FindStringSubmatchIndex(rest)
		if m == nil {
			if w := wordPattern.FindStringIndex(rest); w != nil {
				pos += w[1]
				continue
			}
			_, width := utf8.DecodeRuneInString(rest)
			pos += width
			continue
		}
		start, token := pos, rest[:m[1]]
		pos += m[1]

		prefix := ""
		if m[2] >= 0 {
			prefix = rest[m[2]:m[3]]
		}
		_, isDeclared := declared[prefix]
		_, isReserved := reserved[prefix]
		if !isDeclared && !isReserved {
			continue
		}
		iri, _ := vocabulary.Expand(token, declared)
		// Namespace IRIs hold no backslash, so every one left is a
		// PN_LOCAL_ESC marker.
		iri = strings.ReplaceAll(iri, `\`, "")
		hits = append(hits, hit{pos: start, id: Identifier{Token: token, IRI: resolveIRI(base, iri), Prefixed: true}})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := make(map[string]bool)
	var out []Identifier
	for _, h := range hits {
		if seen[h.id.Token] {
			continue
		}
		seen[h.id.Token] = true
		out = append(out, h.id)
	}
	return out
}

func iriIdentifier(token, resolved string) Identifier {
	if token == "" {
		token = "<>"
	}
	return Identifier{Token: token, IRI: resolved}
}

// skipNonName returns the length of the variable, language tag, number or
// blank node label at the start of s, or 0. These tokens may run straight
// into a prefixed name: "?c.dbr:X", "@en.dbo:x", "(1dbo:x)".
func skipNonName(s string) int {
	for _, re := range []*regexp.Regexp{varNamePattern, langTagPattern, numberPattern, blankNodePattern} {
		if loc := re.FindStringIndex(s); loc != nil && loc[1] > 0 {
			return loc[1]
		}
	}
	return 0
}

// QueryValidator turns raw model output into a candidate query and checks it
// against an allow set.
type QueryValidator struct {
	selectLimit int
}

func NewQueryValidator(selectLimit int) *QueryValidator {
	return &QueryValidator{selectLimit: selectLimit}
}

// PostProcess extracts the query, adds missing standard prefixes and the
// default SELECT limit.
func (v *QueryValidator) PostProcess(raw string) string {
	query := ExtractQuery(raw)
	query = EnsurePrefixes(query)
	return EnsureSelectLimit(query, v.selectLimit)
}

// Validate returns nil when the query has a query form and references only
// allowed identifiers or XML Schema datatypes.
func (v *QueryValidator) Validate(query string, allow AllowSet) error {
	if QueryForm(query) == "" {
		return ErrNoQueryForm
	}

	var rejected []string
	for _, id := range ExtractIdentifiers(query) {
		if strings.HasPrefix(id.IRI, vocabulary.XSD) {
			continue
		}
		if allow.Contains(id.IRI) {
			continue
		}
		rejected = append(rejected, id.Token)
	}
	if len(rejected) > 0 {
		return &DisallowedIdentifiersError{Identifiers: rejected}
	}
	return nil
}
