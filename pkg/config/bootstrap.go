// Package config wires the process: static bootstrap read from a YAML file,
// and runtime settings read once from the configuration store.
package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// RedisConfig contains connection details for the configuration store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// QdrantConfig contains connection details for the vector index store.
type QdrantConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig contains connection details for the document object store.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
	Bucket    string `yaml:"bucket"`
}

// OllamaConfig selects the inference server and the models used for
// embeddings and completions.
type OllamaConfig struct {
	URL            string `yaml:"url"`
	EmbedModel     string `yaml:"embed_model"`
	EmbedDimension int    `yaml:"embed_dimension"`
	GenerateModel  string `yaml:"generate_model"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
}

// FunctionsConfig optionally points the retrieval and synthesis stages at
// remote deployments. Empty URLs mean the stage runs in-process.
type FunctionsConfig struct {
	Retriever string `yaml:"retriever"`
	Response  string `yaml:"response"`
}

// Bootstrap is the static process wiring, distinct from the runtime Settings
// kept in the configuration store.
type Bootstrap struct {
	AppName   string          `yaml:"app_name"`
	Listen    string          `yaml:"listen"`
	Redis     RedisConfig     `yaml:"redis"`
	Qdrant    QdrantConfig    `yaml:"qdrant"`
	Storage   StorageConfig   `yaml:"storage"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Functions FunctionsConfig `yaml:"functions"`
}

// LoadBootstrap reads the bootstrap file. A missing file yields defaults.
func LoadBootstrap(path string) (*Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultBootstrap(), nil
		}
		return nil, err
	}
	cfg := defaultBootstrap()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultBootstrap() *Bootstrap {
	return &Bootstrap{
		AppName: "rag",
		Listen:  ":8080",
		Redis:   RedisConfig{Addr: "localhost:6379"},
		Qdrant:  QdrantConfig{Host: "localhost", Port: 6334},
		Storage: StorageConfig{Endpoint: "localhost:9000", Bucket: "documents"},
		Ollama: OllamaConfig{
			URL:            "http://localhost:11434",
			EmbedModel:     "nomic-embed-text",
			EmbedDimension: 768,
			GenerateModel:  "llama3",
			TimeoutSecs:    120,
		},
	}
}
