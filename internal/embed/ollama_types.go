package embed

import "time"

// Ollama API constants.
const (
	// DefaultOllamaHost is the default Ollama API endpoint.
	DefaultOllamaHost = "http://localhost:11434"

	// DefaultOllamaModel is a general-purpose text embedding model,
	// suited to ADR/issue prose rather than source code.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultOllamaTimeout bounds a single embed request.
	DefaultOllamaTimeout = 30 * time.Second

	// OllamaConnectTimeout bounds the initial health check.
	OllamaConnectTimeout = 5 * time.Second

	// OllamaPoolSize is the HTTP connection pool size.
	OllamaPoolSize = 4

	// DefaultPullTimeout bounds a model pull, which can take minutes on a
	// slow connection.
	DefaultPullTimeout = 5 * time.Minute
)

// FallbackOllamaModels are tried in order if the primary model is
// unavailable.
var FallbackOllamaModels = []string{
	"mxbai-embed-large",
	"all-minilm",
}

// OllamaConfig configures the Ollama embedder.
type OllamaConfig struct {
	// Host is the Ollama API endpoint.
	Host string

	// Model is the embedding model to use.
	Model string

	// FallbackModels are tried in order if the primary model is unavailable.
	FallbackModels []string

	// Dimensions overrides auto-detection when non-zero.
	Dimensions int

	// BatchSize bounds how many texts are sent per batch request.
	BatchSize int

	// Timeout bounds a single API request.
	Timeout time.Duration

	// ConnectTimeout bounds the initial health check.
	ConnectTimeout time.Duration

	// MaxRetries bounds transient-failure retries.
	MaxRetries int

	// PoolSize is the HTTP connection pool size.
	PoolSize int

	// SkipHealthCheck skips the initial Ollama availability check, for
	// tests that construct an OllamaEmbedder against a fake server.
	SkipHealthCheck bool

	// DisablePull prevents NewOllamaEmbedder from requesting Ollama pull
	// the model when it isn't already installed locally.
	DisablePull bool

	// PullTimeout bounds how long a model pull is allowed to run.
	PullTimeout time.Duration
}

// DefaultOllamaConfig returns sensible defaults.
func DefaultOllamaConfig() OllamaConfig {
	return OllamaConfig{
		Host:           DefaultOllamaHost,
		Model:          DefaultOllamaModel,
		FallbackModels: FallbackOllamaModels,
		Dimensions:     0,
		BatchSize:      DefaultBatchSize,
		Timeout:        DefaultOllamaTimeout,
		ConnectTimeout: OllamaConnectTimeout,
		MaxRetries:     DefaultMaxRetries,
		PoolSize:       OllamaPoolSize,
		PullTimeout:    DefaultPullTimeout,
	}
}

// OllamaEmbedRequest is the Ollama /api/embed request.
type OllamaEmbedRequest struct {
	Model string `json:"model"`
	Input any    `json:"input"` // string or []string for batch
}

// OllamaEmbedResponse is the Ollama /api/embed response.
type OllamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float64 `json:"embeddings"`
}

// OllamaModelListResponse is the Ollama /api/tags response.
type OllamaModelListResponse struct {
	Models []OllamaModelInfo `json:"models"`
}

// OllamaModelInfo describes an installed model.
type OllamaModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at"`
	Size       int64     `json:"size"`
}
