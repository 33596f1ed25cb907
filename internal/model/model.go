package model

// WebResult is one hit returned by a keyword web search provider.
type WebResult struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description"`
}

// ProviderResults keeps the results of one provider together with its name so
// that the declared provider order survives concurrent execution.
type ProviderResults struct {
	Provider string      `json:"provider"`
	Results  []WebResult `json:"results"`
}

type DocumentMetadata struct {
	DocName    string `json:"doc_name,omitempty"`
	References string `json:"references,omitempty"`
}

// VectorDocument is a nearest-neighbour hit from the vector store. The JSON
// shape matches what the chat widget already renders.
type VectorDocument struct {
	Content    string           `json:"content"`
	Metadata   DocumentMetadata `json:"metadata"`
	Similarity float64          `json:"$similarity"`
}

// VectorStatus records how the knowledge base lookup for a request ended.
type VectorStatus int

const (
	VectorSkipped = VectorStatus(iota)
	VectorFound
	VectorEmpty
	VectorEmbeddingFailed
	VectorSearchFailed
)

func (s VectorStatus) String() string {
	switch s {
	case VectorFound:
		return "found"
	case VectorEmpty:
		return "empty"
	case VectorEmbeddingFailed:
		return "embedding_failed"
	case VectorSearchFailed:
		return "search_failed"
	default:
		return "skipped"
	}
}

// Retrieval is the fused grounding context for one request.
type Retrieval struct {
	Web          []ProviderResults
	Vector       []VectorDocument
	VectorStatus VectorStatus
}

// Credential is one named API key of a credential pool.
type Credential struct {
	Name   string
	APIKey string
}

// CredentialPool is an ordered list of credentials for one capability.
type CredentialPool struct {
	Name        string
	Credentials []Credential
}

func (p CredentialPool) Len() int {
	return len(p.Credentials)
}

// FinishReason is the provider-neutral reason a generation stopped.
type FinishReason string

const (
	FinishReasonStop       = FinishReason("STOP")
	FinishReasonMaxTokens  = FinishReason("MAX_TOKENS")
	FinishReasonSafety     = FinishReason("SAFETY")
	FinishReasonRecitation = FinishReason("RECITATION")
	FinishReasonOther      = FinishReason("OTHER")
)

// Generation is the text payload returned by a generation call.
type Generation struct {
	Text         string
	FinishReason FinishReason
}
