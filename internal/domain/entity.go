package domain

// Entity is a span of the question linked to a canonical knowledge-base URI.
// Entities are produced by the linker and are read-only afterwards.
type Entity struct {
	SurfaceForm     string  `json:"surface_form"`
	URI             string  `json:"uri"`
	Types           string  `json:"types,omitempty"`
	SimilarityScore float64 `json:"similarity_score"`
	Support         int     `json:"support"`
}
