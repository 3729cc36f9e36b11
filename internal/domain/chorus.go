package domain

// Chorus is a unit of ingestible content: a chorus text with its
// display name and musical attributes. Once ingested, the vector store
// owns the record; the pipeline keeps no copy.
type Chorus struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Text          string         `json:"text"`
	Key           int            `json:"key"`
	Type          int            `json:"type"`
	TimeSignature int            `json:"timeSignature"`
	WordPositions map[string]any `json:"word_positions,omitempty"`
}

// Metadata returns the payload metadata stored alongside the vector.
// The lowercase "id" field is the canonical business identifier.
func (c Chorus) Metadata() map[string]any {
	m := map[string]any{
		"id":            c.ID,
		"name":          c.Name,
		"key":           c.Key,
		"type":          c.Type,
		"timeSignature": c.TimeSignature,
	}
	if len(c.WordPositions) > 0 {
		m["word_positions"] = c.WordPositions
	}
	return m
}

// IDSource records how a result's business identifier was obtained.
type IDSource string

const (
	// IDResolved means the identifier was read from the stored payload.
	IDResolved IDSource = "resolved"
	// IDSynthesized means the payload had no identifier and a
	// placeholder was generated so the result is not dropped.
	IDSynthesized IDSource = "synthesized"
)

// DocumentID is a business identifier together with its provenance,
// so callers can tell a trustworthy id from a best-effort placeholder.
type DocumentID struct {
	Value  string   `json:"value"`
	Source IDSource `json:"source"`
}

// ResolvedID wraps an identifier read from the store payload.
func ResolvedID(v string) DocumentID {
	return DocumentID{Value: v, Source: IDResolved}
}

// SynthesizedID wraps a generated placeholder identifier.
func SynthesizedID(v string) DocumentID {
	return DocumentID{Value: v, Source: IDSynthesized}
}

// SearchResult is an ephemeral per-query projection of a stored chorus
// plus its similarity score and, optionally, a generated explanation.
type SearchResult struct {
	ID          DocumentID     `json:"id"`
	Text        string         `json:"text"`
	Score       float32        `json:"score"`
	Explanation string         `json:"explanation,omitempty"`
	Metadata    map[string]any `json:"metadata"`
}

// Name returns the display name from the result metadata, if present.
func (r SearchResult) Name() string {
	if v, ok := r.Metadata["name"].(string); ok {
		return v
	}
	return ""
}

// IntelligentSearchResult bundles search results with LLM-generated
// context: an overall analysis and the interpreted query.
type IntelligentSearchResult struct {
	SearchResults      []SearchResult `json:"search_results"`
	AIAnalysis         string         `json:"ai_analysis,omitempty"`
	QueryUnderstanding string         `json:"query_understanding,omitempty"`
}

// StoredPoint is the unit the vector store persists: a machine-generated
// point identifier, a vector, and a payload of text plus metadata.
type StoredPoint struct {
	PointID  string
	Vector   []float32
	Text     string
	Metadata map[string]any
}

// ScoredPoint is a stored point returned from a similarity query.
type ScoredPoint struct {
	Text     string
	Score    float32
	Metadata map[string]any
}

// ChorusID extracts the business identifier from point metadata.
// Returns false when the field is missing or empty.
func (p ScoredPoint) ChorusID() (string, bool) {
	v, ok := p.Metadata["id"].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
