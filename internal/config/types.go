package config

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int               `yaml:"port"`
	Env            string            `yaml:"env"` // "development" | "production"
	AllowedOrigins []string          `yaml:"allowed_origins"`
	JWTSecret      string            `yaml:"jwt_secret"`
	Database       DatabaseConfig    `yaml:"database"`
	Redis          RedisConfig       `yaml:"redis"`
	VectorStore    VectorStoreConfig `yaml:"vector_store"`
	Embedding      EmbeddingConfig   `yaml:"embedding"`
	AI             AIConfig          `yaml:"ai"`
	Extractor      ExtractorConfig   `yaml:"extractor"`
	GitHub         GitHubConfig      `yaml:"github"`
	Archive        ArchiveConfig     `yaml:"archive"`
	Retrieval      RetrievalConfig   `yaml:"retrieval"`
}

// DatabaseConfig configures the MySQL connection used for chat sessions
// and ingestion task bookkeeping.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Charset  string `yaml:"charset"`
	Loc      string `yaml:"loc"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

// VectorStoreConfig configures the pgvector-backed chunk store.
type VectorStoreConfig struct {
	DSN string `yaml:"dsn"` // postgres connection string
}

// EmbeddingConfig configures the embedding collaborator. The endpoint may
// point at any OpenAI-compatible embeddings API (including local servers).
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	Endpoint   string `yaml:"endpoint,omitempty"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// AIConfig mirrors the provider list style of the admin settings: multiple
// providers, first enabled one wins unless an assignment names another.
type AIConfig struct {
	Providers       []AIProvider       `yaml:"providers"`
	ChatModel       *AIModelAssignment `yaml:"chat_model,omitempty"`
	ComparisonModel *AIModelAssignment `yaml:"comparison_model,omitempty"`
}

type AIModelAssignment struct {
	ProviderID string `yaml:"provider_id"`
	Model      string `yaml:"model"`
}

type AIProvider struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Type         string `yaml:"type"` // OpenAI | OpenAI-Compatible | Anthropic
	APIKey       string `yaml:"api_key"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	DefaultModel string `yaml:"default_model"`
	Enabled      bool   `yaml:"enabled"`
}

// ExtractorConfig points at the external document-conversion service that
// turns PDFs into markdown, chunks and images.
type ExtractorConfig struct {
	Endpoint       string `yaml:"endpoint"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type GitHubConfig struct {
	Token string `yaml:"token"`
}

// ArchiveConfig configures optional S3 archival of original PDFs. When the
// bucket is empty the feature is disabled.
type ArchiveConfig struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix,omitempty"`
}

type RetrievalConfig struct {
	DefaultTextTopK  int `yaml:"default_text_top_k"`
	DefaultImageTopK int `yaml:"default_image_top_k"`
}
