// Package vocabulary holds the RDF namespaces the pipeline knows about and
// helpers for moving between full IRIs and their prefixed forms.
package vocabulary

import (
	"strings"
)

// Namespace IRIs used by DBpedia queries.
const (
	DBpediaOntology = "http://dbpedia.org/ontology/"
	DBpediaResource = "http://dbpedia.org/resource/"
	DBpediaProperty = "http://dbpedia.org/property/"
	RDF             = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS            = "http://www.w3.org/2000/01/rdf-schema#"
	FOAF            = "http://xmlns.com/foaf/0.1/"
	XSD             = "http://www.w3.org/2001/XMLSchema#"
)

// Standard term IRIs referenced by the validator and the property fetch.
const (
	RDFType     = RDF + "type"
	RDFSLabel   = RDFS + "label"
	RDFSComment = RDFS + "comment"
	DBOAbstract = DBpediaOntology + "abstract"
)

// Namespace binds a prefix name to its IRI.
type Namespace struct {
	Prefix string
	IRI    string
}

// Declaration renders the namespace as a SPARQL PREFIX line.
func (n Namespace) Declaration() string {
	return "PREFIX " + n.Prefix + ": <" + n.IRI + ">"
}

// standard is ordered: declarations are emitted in this order.
var standard = []Namespace{
	{Prefix: "dbo", IRI: DBpediaOntology},
	{Prefix: "dbr", IRI: DBpediaResource},
	{Prefix: "dbp", IRI: DBpediaProperty},
	{Prefix: "rdf", IRI: RDF},
	{Prefix: "rdfs", IRI: RDFS},
	{Prefix: "foaf", IRI: FOAF},
	{Prefix: "xsd", IRI: XSD},
}

// Standard returns a copy of the standard namespace table.
func Standard() []Namespace {
	out := make([]Namespace, len(standard))
	copy(out, standard)
	return out
}

// StandardPrefixes returns the reserved prefix names in table order.
func StandardPrefixes() []string {
	out := make([]string, 0, len(standard))
	for _, ns := range standard {
		out = append(out, ns.Prefix)
	}
	return out
}

// PrefixMap returns prefix name -> IRI for the standard table.
func PrefixMap() map[string]string {
	out := make(map[string]string, len(standard))
	for _, ns := range standard {
		out[ns.Prefix] = ns.IRI
	}
	return out
}

// PrefixDeclarations returns the standard PREFIX block, one declaration per
// line, terminated by a newline.
func PrefixDeclarations() string {
	var b strings.Builder
	for _, ns := range standard {
		b.WriteString(ns.Declaration())
		b.WriteByte('\n')
	}
	return b.String()
}

// ToPrefixed compacts uri with the first matching standard namespace.
// URIs outside the table are returned unchanged.
func ToPrefixed(uri string) string {
	for _, ns := range standard {
		if strings.HasPrefix(uri, ns.IRI) {
			return ns.Prefix + ":" + uri[len(ns.IRI):]
		}
	}
	return uri
}

// Expand resolves a prefixed name. overrides take precedence over the
// standard table, mirroring a query that redeclares a prefix. The empty
// prefix (":local") only resolves through overrides. ok is false when the
// token is not prefixed or the prefix is unknown.
func Expand(prefixed string, overrides map[string]string) (string, bool) {
	idx := strings.IndexByte(prefixed, ':')
	if idx < 0 {
		return "", false
	}
	prefix, local := prefixed[:idx], prefixed[idx+1:]
	if iri, ok := overrides[prefix]; ok {
		return iri + local, true
	}
	for _, ns := range standard {
		if ns.Prefix == prefix {
			return ns.IRI + local, true
		}
	}
	return "", false
}

// LabelFromURI derives a readable label from the last path or fragment
// segment of uri: "http://dbpedia.org/ontology/birth_place" -> "birth place".
func LabelFromURI(uri string) string {
	token := uri
	if idx := strings.LastIndexByte(token, '/'); idx >= 0 {
		token = token[idx+1:]
	}
	if idx := strings.LastIndexByte(token, '#'); idx >= 0 {
		token = token[idx+1:]
	}
	return strings.ReplaceAll(token, "_", " ")
}

// ShortName returns the segment after the last '#' or '/' of an IRI, used to
// display datatypes ("http://www.w3.org/2001/XMLSchema#date" -> "date").
func ShortName(iri string) string {
	idx := strings.LastIndexAny(iri, "#/")
	if idx < 0 || idx == len(iri)-1 {
		return iri
	}
	return iri[idx+1:]
}
