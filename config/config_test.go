package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"review-digest/config"
)

func TestParseAppliesDefaults(t *testing.T) {
	t.Setenv("MONGO_URI", "")
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "")
	t.Setenv("CHROME_PATH", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := config.Parse([]byte("{}"))
	require.NoError(t, err)

	assert.Equal(t, 150, cfg.Collector.TargetReviews)
	assert.Equal(t, 0, cfg.Collector.Retries)
	assert.Equal(t, 20*time.Second, cfg.Collector.ReviewBlocksTimeout)
	require.NotNil(t, cfg.Collector.Headless)
	assert.True(t, *cfg.Collector.Headless)
	assert.NotEmpty(t, cfg.Collector.Selectors.ReviewBlock)

	assert.Equal(t, "en", cfg.Admission.Language)
	assert.Equal(t, 10, cfg.Admission.MinWords)
	assert.Equal(t, 15, cfg.Admission.MinWordsLargeCorpus)
	assert.Equal(t, 100, cfg.Admission.LargeCorpusThreshold)

	assert.Equal(t, 900, cfg.Chunking.TokenBudget)
	assert.Equal(t, config.ProviderGemini, cfg.Summarizer.Provider)
	assert.Equal(t, 250, cfg.Summarizer.ReduceWordThreshold)
	assert.Equal(t, 150, cfg.Summarizer.Map.MaxNewTokens)
	assert.Equal(t, 250, cfg.Summarizer.Reduce.MaxNewTokens)
	assert.Equal(t, 7, cfg.Summarizer.Reduce.NumBeams)
	require.NotNil(t, cfg.Summarizer.Map.EarlyStopping)
	assert.True(t, *cfg.Summarizer.Map.EarlyStopping)

	assert.Empty(t, cfg.Mongo.URI)
	assert.Equal(t, ":8080", cfg.API.Address)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	cfg, err := config.Parse([]byte(`
collector:
  target_reviews: 40
  headless: false
  retries: 2
  page_load_delay: 500ms
chunking:
  token_budget: 512
summarizer:
  map:
    max_new_tokens: 90
`))
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.Collector.TargetReviews)
	assert.False(t, *cfg.Collector.Headless)
	assert.Equal(t, 2, cfg.Collector.Retries)
	assert.Equal(t, 500*time.Millisecond, cfg.Collector.PageLoadDelay)
	assert.Equal(t, 512, cfg.Chunking.TokenBudget)
	assert.Equal(t, 90, cfg.Summarizer.Map.MaxNewTokens)
	assert.Equal(t, 70, cfg.Summarizer.Map.MinNewTokens)
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Parse([]byte(`mongo: {uri: "mongodb://ignored"}`))
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "localhost:9092", cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestParseHuggingFaceDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`
summarizer:
  provider: huggingface
  tokenizer_file: ./tokenizer.json
`))
	require.NoError(t, err)

	assert.Equal(t, "facebook/bart-large-cnn", cfg.Summarizer.ModelName)
	assert.Equal(t, "https://api-inference.huggingface.co/models/facebook/bart-large-cnn", cfg.Summarizer.Endpoint)
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"unknown provider":      "summarizer: {provider: openai}",
		"missing tokenizer":     "summarizer: {provider: huggingface}",
		"min above max":         "summarizer: {map: {min_new_tokens: 200, max_new_tokens: 100}}",
		"min words above large": "admission: {min_words: 20, min_words_large_corpus: 15}",
		"malformed yaml":        "collector: [",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := config.Default()
	assert.NoError(t, cfg.Validate())
}
