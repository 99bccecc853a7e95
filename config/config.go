package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const ENV_FILE = ".env"
const CONFIG_FILE = "config.yaml"

type AppConfig struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Collector    CollectorConfig    `yaml:"collector"`
	Admission    AdmissionConfig    `yaml:"admission"`
	Chunking     ChunkingConfig     `yaml:"chunking"`
	Summarizer   SummarizerConfig   `yaml:"summarizer"`
	SummaryQuota SummaryQuotaConfig `yaml:"summary_quota"`
	Mongo        MongoConfig        `yaml:"mongo"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	API          APIConfig          `yaml:"api"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// CollectorConfig 는 리뷰 수집기(브라우저 세션)의 동작을 정의한다.
// 모든 타임아웃은 개별 조회 한 번에 대한 상한이며 파이프라인 전체 타임아웃이 아니다.
type CollectorConfig struct {
	BaseURL       string `yaml:"base_url"`
	TargetReviews int    `yaml:"target_reviews"`

	ChromePath string `yaml:"chrome_path"`
	Headless   *bool  `yaml:"headless"`
	UserAgent  string `yaml:"user_agent"`

	PopupTimeout        time.Duration `yaml:"popup_timeout"`
	SearchTimeout       time.Duration `yaml:"search_timeout"`
	ProductTimeout      time.Duration `yaml:"product_timeout"`
	ReviewsPanelTimeout time.Duration `yaml:"reviews_panel_timeout"`
	ReviewBlocksTimeout time.Duration `yaml:"review_blocks_timeout"`
	NextPageTimeout     time.Duration `yaml:"next_page_timeout"`
	PageLoadDelay       time.Duration `yaml:"page_load_delay"`
	PageSettleDelay     time.Duration `yaml:"page_settle_delay"`

	// Retries 는 구조적 조회(검색창, 상품 링크, 리뷰 패널, 리뷰 블록)의 추가 시도 횟수이다.
	// 0 이면 첫 타임아웃에서 바로 중단한다.
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`

	Selectors SelectorConfig `yaml:"selectors"`
}

// SelectorConfig 는 문서 소스에서 사용하는 XPath/CSS 셀렉터 모음이다.
// 사이트 마크업이 바뀌면 코드 수정 없이 config.yaml 에서 교체한다.
type SelectorConfig struct {
	Popup          string `yaml:"popup"`
	SearchBox      string `yaml:"search_box"`
	ProductLink    string `yaml:"product_link"`
	ReviewsPanel   string `yaml:"reviews_panel"`
	AggregateBlock string `yaml:"aggregate_block"`
	ReviewBlock    string `yaml:"review_block"`
	NextPage       string `yaml:"next_page"`

	OverallRating string `yaml:"overall_rating"`
	TotalRatings  string `yaml:"total_ratings"`
	UserRating    string `yaml:"user_rating"`
	Title         string `yaml:"title"`
	Comment       string `yaml:"comment"`
}

type AdmissionConfig struct {
	Language             string  `yaml:"language"`
	MinConfidence        float64 `yaml:"min_confidence"`
	MinLetters           int     `yaml:"min_letters"`
	MinWords             int     `yaml:"min_words"`
	MinWordsLargeCorpus  int     `yaml:"min_words_large_corpus"`
	LargeCorpusThreshold int     `yaml:"large_corpus_threshold"`
	Dedupe               bool    `yaml:"dedupe"`
}

type ChunkingConfig struct {
	TokenBudget int `yaml:"token_budget"`
	// ShuffleSeed 가 0 이면 실행마다 시간 기반 시드를 사용한다.
	ShuffleSeed uint64 `yaml:"shuffle_seed"`
}

type SummarizerConfig struct {
	Provider            string           `yaml:"provider"`
	ModelName           string           `yaml:"model_name"`
	Endpoint            string           `yaml:"endpoint"`
	TokenizerFile       string           `yaml:"tokenizer_file"`
	RequestTimeout      time.Duration    `yaml:"request_timeout"`
	MaxInputTokens      int              `yaml:"max_input_tokens"`
	ReduceWordThreshold int              `yaml:"reduce_word_threshold"`
	Map                 GenerationConfig `yaml:"map"`
	Reduce              GenerationConfig `yaml:"reduce"`
}

type GenerationConfig struct {
	MinNewTokens  int     `yaml:"min_new_tokens"`
	MaxNewTokens  int     `yaml:"max_new_tokens"`
	NumBeams      int     `yaml:"num_beams"`
	LengthPenalty float64 `yaml:"length_penalty"`
	EarlyStopping *bool   `yaml:"early_stopping"`
	EOSTokenID    int     `yaml:"eos_token_id"`
}

// SummaryQuotaConfig 는 요약용 모델 호출에 대한 속도/일일 한도를 정의한다.
type SummaryQuotaConfig struct {
	// RequestsPerMinute 는 요약용 모델 호출에 대한 분당 최대 요청 수이다.
	// 0 이하면 제한 없음으로 간주한다.
	RequestsPerMinute int `yaml:"requests_per_minute"`

	// RequestsPerDay 는 요약용 모델 호출에 대한 일일 최대 요청 수이다.
	// 0 이하면 제한 없음으로 간주한다.
	RequestsPerDay int `yaml:"requests_per_day"`
}

// MongoConfig 의 URI 가 비어 있으면 모델 호출 로그를 저장하지 않는다.
type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// KafkaConfig 의 Brokers 가 비어 있으면 분석 이벤트를 발행하지 않는다.
type KafkaConfig struct {
	Brokers    string `yaml:"brokers"`
	Topic      string `yaml:"topic"`
	Partitions int    `yaml:"partitions"`
}

type APIConfig struct {
	Address        string   `yaml:"address"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

const (
	ProviderGemini      = "gemini"
	ProviderHuggingFace = "huggingface"
)

var config *AppConfig

func InitApp() {
	// load environment variables
	godotenv.Load(filepath.Join(GetBasePath(), ENV_FILE))

	c, err := Load(filepath.Join(GetBasePath(), CONFIG_FILE))
	if err != nil {
		panic(err)
	}
	config = c
}

// Load 는 주어진 경로의 YAML 설정을 읽고 기본값과 환경변수를 반영한다.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*AppConfig, error) {
	var c AppConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	c.applyEnv()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func GetConfig() AppConfig {
	if config == nil {
		InitApp()
	}

	return *config
}

// Default 는 설정 파일 없이 사용할 수 있는 기본 설정을 반환한다.
func Default() AppConfig {
	var c AppConfig
	c.applyDefaults()
	return c
}

func (c *AppConfig) applyEnv() {
	if v := os.Getenv("MONGO_URI"); v != "" {
		c.Mongo.URI = v
	}
	if v := os.Getenv("KAFKA_BOOTSTRAP_SERVERS"); v != "" {
		c.Kafka.Brokers = v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		c.Collector.ChromePath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *AppConfig) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	col := &c.Collector
	if col.BaseURL == "" {
		col.BaseURL = "https://www.flipkart.com/"
	}
	if col.TargetReviews <= 0 {
		col.TargetReviews = 150
	}
	if col.Headless == nil {
		col.Headless = boolPtr(true)
	}
	if col.UserAgent == "" {
		col.UserAgent = USER_AGENT
	}
	setDuration(&col.PopupTimeout, 8*time.Second)
	setDuration(&col.SearchTimeout, 10*time.Second)
	setDuration(&col.ProductTimeout, 15*time.Second)
	setDuration(&col.ReviewsPanelTimeout, 20*time.Second)
	setDuration(&col.ReviewBlocksTimeout, 20*time.Second)
	setDuration(&col.NextPageTimeout, 10*time.Second)
	setDuration(&col.PageLoadDelay, 7*time.Second)
	setDuration(&col.PageSettleDelay, 2*time.Second)
	if col.Retries < 0 {
		col.Retries = 0
	}
	setDuration(&col.RetryDelay, 2*time.Second)

	s := &col.Selectors
	setString(&s.Popup, `//button[contains(text(), '✕')] | //span[@role='button' and contains(@class, '_30XB9F')]`)
	setString(&s.SearchBox, `//input[@name='q']`)
	setString(&s.ProductLink, `//a[contains(@href, '/p/') and @rel='noopener noreferrer']`)
	setString(&s.ReviewsPanel, `//span[contains(text(), 'reviews')]`)
	setString(&s.AggregateBlock, `//div[@class='col-4-12 F2+K4v']`)
	setString(&s.ReviewBlock, `//div[@class='col EPCmJX Ma1fCG']`)
	setString(&s.NextPage, `//span[text()='Next']`)
	setString(&s.OverallRating, `.ipqd2A`)
	setString(&s.TotalRatings, `span:contains("Ratings")`)
	setString(&s.UserRating, `.XQDdHH.Ga3i8K`)
	setString(&s.Title, `.z9E0IG`)
	setString(&s.Comment, `.ZmyHeo`)

	a := &c.Admission
	if a.Language == "" {
		a.Language = "en"
	}
	if a.MinLetters <= 0 {
		a.MinLetters = 3
	}
	if a.MinWords <= 0 {
		a.MinWords = 10
	}
	if a.MinWordsLargeCorpus <= 0 {
		a.MinWordsLargeCorpus = 15
	}
	if a.LargeCorpusThreshold <= 0 {
		a.LargeCorpusThreshold = 100
	}

	if c.Chunking.TokenBudget <= 0 {
		c.Chunking.TokenBudget = 900
	}

	sm := &c.Summarizer
	if sm.Provider == "" {
		sm.Provider = ProviderGemini
	}
	if sm.ModelName == "" {
		sm.ModelName = "gemini-2.5-flash"
		if strings.EqualFold(sm.Provider, ProviderHuggingFace) {
			sm.ModelName = "facebook/bart-large-cnn"
		}
	}
	if sm.Endpoint == "" && strings.EqualFold(sm.Provider, ProviderHuggingFace) {
		sm.Endpoint = "https://api-inference.huggingface.co/models/" + sm.ModelName
	}
	setDuration(&sm.RequestTimeout, 2*time.Minute)
	if sm.MaxInputTokens <= 0 {
		sm.MaxInputTokens = 1024
	}
	if sm.ReduceWordThreshold <= 0 {
		sm.ReduceWordThreshold = 250
	}
	sm.Map.applyDefaults(GenerationConfig{MinNewTokens: 70, MaxNewTokens: 150, NumBeams: 6, LengthPenalty: 1.0, EOSTokenID: 2})
	sm.Reduce.applyDefaults(GenerationConfig{MinNewTokens: 100, MaxNewTokens: 250, NumBeams: 7, LengthPenalty: 1.5, EOSTokenID: 2})

	if c.Mongo.Database == "" {
		c.Mongo.Database = "reviewdigest"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "review-digest.analysis.events"
	}
	if c.Kafka.Partitions <= 0 {
		c.Kafka.Partitions = 3
	}
	if c.API.Address == "" {
		c.API.Address = ":8080"
	}
}

func (g *GenerationConfig) applyDefaults(def GenerationConfig) {
	if g.MinNewTokens <= 0 {
		g.MinNewTokens = def.MinNewTokens
	}
	if g.MaxNewTokens <= 0 {
		g.MaxNewTokens = def.MaxNewTokens
	}
	if g.NumBeams <= 0 {
		g.NumBeams = def.NumBeams
	}
	if g.LengthPenalty == 0 {
		g.LengthPenalty = def.LengthPenalty
	}
	if g.EarlyStopping == nil {
		g.EarlyStopping = boolPtr(true)
	}
	if g.EOSTokenID <= 0 {
		g.EOSTokenID = def.EOSTokenID
	}
}

// Validate 는 기본값 적용 이후에도 잘못된 설정을 걸러낸다.
func (c AppConfig) Validate() error {
	if c.Chunking.TokenBudget <= 0 {
		return fmt.Errorf("chunking.token_budget must be > 0")
	}
	switch strings.ToLower(c.Summarizer.Provider) {
	case ProviderGemini:
	case ProviderHuggingFace:
		if c.Summarizer.TokenizerFile == "" {
			return fmt.Errorf("summarizer.tokenizer_file is required for the %s provider", ProviderHuggingFace)
		}
	default:
		return fmt.Errorf("unsupported summarizer provider: %s", c.Summarizer.Provider)
	}
	for name, g := range map[string]GenerationConfig{"map": c.Summarizer.Map, "reduce": c.Summarizer.Reduce} {
		if g.MinNewTokens > g.MaxNewTokens {
			return fmt.Errorf("summarizer.%s.min_new_tokens must be <= max_new_tokens", name)
		}
	}
	if c.Admission.MinWords > c.Admission.MinWordsLargeCorpus {
		return fmt.Errorf("admission.min_words must be <= min_words_large_corpus")
	}
	return nil
}

func GetBasePath() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	dir := cwd
	for {
		cfgPath := filepath.Join(dir, CONFIG_FILE)
		if info, err := os.Stat(cfgPath); err == nil && !info.IsDir() {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

const USER_AGENT = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/139.0.0.0 Safari/537.36"

func setDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

func setString(s *string, def string) {
	if strings.TrimSpace(*s) == "" {
		*s = def
	}
}

func boolPtr(b bool) *bool { return &b }
