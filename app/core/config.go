package core

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/quka-ai/ragstore/pkg/types"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	conf.SetConfigBytes(raw)

	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}

	return conf.WithDefaults()
}

func (c CoreConfig) LoadCustomConfig(cfg any) error {
	if len(c.bytes) == 0 {
		return nil
	}
	if err := toml.Unmarshal(c.bytes, cfg); err != nil {
		return err
	}
	return nil
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	return c.WithDefaults()
}

type CoreConfig struct {
	Addr             string `toml:"addr"`
	DefaultWorkspace string `toml:"default_workspace"`
	Log              Log    `toml:"log"`

	Storage  StorageConfig `toml:"storage"`
	Postgres PGConfig      `toml:"postgres"`
	Redis    RedisConfig   `toml:"redis"`
	Badger   BadgerConfig  `toml:"badger"`
	Mongo    MongoConfig   `toml:"mongo"`
	S3       S3Config      `toml:"s3"`

	Pipeline PipelineConfig `toml:"pipeline"`
	Crawler  CrawlerConfig  `toml:"crawler"`
	AI       AIConfig       `toml:"ai"`

	bytes []byte `toml:"-"`
}

func (c *CoreConfig) SetConfigBytes(raw []byte) {
	c.bytes = raw
}

// WithDefaults fills every unset field with its default value.
func (c CoreConfig) WithDefaults() CoreConfig {
	if c.Addr == "" {
		c.Addr = ":9621"
	}
	if c.DefaultWorkspace == "" {
		c.DefaultWorkspace = types.DEFAULT_WORKSPACE
	}
	c.Storage = c.Storage.withDefaults()
	c.Pipeline = c.Pipeline.withDefaults()
	if c.Mongo.Database == "" {
		c.Mongo.Database = "ragstore"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "ragstore:"
	}
	return c
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("RAGSTORE_ADDR")
	c.DefaultWorkspace = os.Getenv("RAGSTORE_DEFAULT_WORKSPACE")
	c.Log.FromENV()
	c.Storage.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
	c.Badger.FromENV()
	c.Mongo.FromENV()
	c.S3.FromENV()
	c.Pipeline.FromENV()
	c.AI.FromENV()
}

const (
	BACKEND_MEMORY   = "memory"
	BACKEND_POSTGRES = "postgres"
	BACKEND_REDIS    = "redis"
	BACKEND_BADGER   = "badger"
	BACKEND_MONGO    = "mongo"
	BACKEND_S3       = "s3"
)

// StorageConfig names the backend serving each store kind.
// FullDocs falls back to KV when empty.
type StorageConfig struct {
	KV        string `toml:"kv"`
	FullDocs  string `toml:"full_docs"`
	DocStatus string `toml:"doc_status"`
	Vector    string `toml:"vector"`
	Graph     string `toml:"graph"`
}

func (s StorageConfig) withDefaults() StorageConfig {
	for _, v := range []*string{&s.KV, &s.DocStatus, &s.Vector, &s.Graph} {
		if *v == "" {
			*v = BACKEND_MEMORY
		}
	}
	if s.FullDocs == "" {
		s.FullDocs = s.KV
	}
	return s
}

func (s *StorageConfig) FromENV() {
	s.KV = os.Getenv("RAGSTORE_STORAGE_KV")
	s.FullDocs = os.Getenv("RAGSTORE_STORAGE_FULL_DOCS")
	s.DocStatus = os.Getenv("RAGSTORE_STORAGE_DOC_STATUS")
	s.Vector = os.Getenv("RAGSTORE_STORAGE_VECTOR")
	s.Graph = os.Getenv("RAGSTORE_STORAGE_GRAPH")
}

type PGConfig struct {
	DSN      string `toml:"dsn"`
	MaxConns int    `toml:"max_conns"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("RAGSTORE_POSTGRES_DSN")
	m.MaxConns = envInt("RAGSTORE_POSTGRES_MAX_CONNS")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

func (c PGConfig) PoolSize() int {
	if c.MaxConns <= 0 {
		return 20
	}
	return c.MaxConns
}

type RedisConfig struct {
	// 单机模式配置
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`

	// 集群模式配置
	Cluster      bool     `toml:"cluster"`
	ClusterAddrs []string `toml:"cluster_addrs"`

	PoolSize  int    `toml:"pool_size"`
	KeyPrefix string `toml:"key_prefix"`
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("RAGSTORE_REDIS_ADDR")
	r.Password = os.Getenv("RAGSTORE_REDIS_PASSWORD")
	r.DB = envInt("RAGSTORE_REDIS_DB")
	r.KeyPrefix = os.Getenv("RAGSTORE_REDIS_KEY_PREFIX")
	if addrs := os.Getenv("RAGSTORE_REDIS_CLUSTER_ADDRS"); addrs != "" {
		r.Cluster = true
		r.ClusterAddrs = strings.Split(addrs, ",")
	}
}

func (r RedisConfig) Addrs() []string {
	if r.Cluster {
		return r.ClusterAddrs
	}
	return []string{r.Addr}
}

// BadgerConfig keeps data in memory when Dir is empty.
type BadgerConfig struct {
	Dir string `toml:"dir"`
}

func (b *BadgerConfig) FromENV() {
	b.Dir = os.Getenv("RAGSTORE_BADGER_DIR")
}

type MongoConfig struct {
	URI      string `toml:"uri"`
	Database string `toml:"database"`
}

func (m *MongoConfig) FromENV() {
	m.URI = os.Getenv("RAGSTORE_MONGO_URI")
	m.Database = os.Getenv("RAGSTORE_MONGO_DATABASE")
}

type S3Config struct {
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	UsePathStyle bool   `toml:"use_path_style"`
	Prefix       string `toml:"prefix"`
}

func (s *S3Config) FromENV() {
	s.Bucket = os.Getenv("RAGSTORE_S3_BUCKET")
	s.Region = os.Getenv("RAGSTORE_S3_REGION")
	s.Endpoint = os.Getenv("RAGSTORE_S3_ENDPOINT")
	s.AccessKey = os.Getenv("RAGSTORE_S3_ACCESS_KEY")
	s.SecretKey = os.Getenv("RAGSTORE_S3_SECRET_KEY")
	s.UsePathStyle = os.Getenv("RAGSTORE_S3_USE_PATH_STYLE") == "true"
	s.Prefix = os.Getenv("RAGSTORE_S3_PREFIX")
}

type PipelineConfig struct {
	MaxParallelWorkspaces int    `toml:"max_parallel_workspaces"`
	RetryTimes            int    `toml:"retry_times"`
	RetryBackoffMillis    int    `toml:"retry_backoff_ms"`
	FlushSpec             string `toml:"flush_spec"`
	ChunkSize             int    `toml:"chunk_size"`
	ChunkOverlap          int    `toml:"chunk_overlap"`
	Encoding              string `toml:"encoding"`
	// DistributedLock guards each workspace run with a redis lock so several
	// service instances can share one set of backends.
	DistributedLock bool `toml:"distributed_lock"`
}

func (p PipelineConfig) withDefaults() PipelineConfig {
	if p.MaxParallelWorkspaces <= 0 {
		p.MaxParallelWorkspaces = 8
	}
	if p.RetryTimes <= 0 {
		p.RetryTimes = 3
	}
	if p.RetryBackoffMillis <= 0 {
		p.RetryBackoffMillis = 500
	}
	if p.FlushSpec == "" {
		p.FlushSpec = "@every 1m"
	}
	return p
}

func (p PipelineConfig) RetryBackoff() time.Duration {
	return time.Duration(p.RetryBackoffMillis) * time.Millisecond
}

func (p *PipelineConfig) FromENV() {
	p.MaxParallelWorkspaces = envInt("RAGSTORE_PIPELINE_MAX_PARALLEL_WORKSPACES")
	p.RetryTimes = envInt("RAGSTORE_PIPELINE_RETRY_TIMES")
	p.DistributedLock = os.Getenv("RAGSTORE_PIPELINE_DISTRIBUTED_LOCK") == "true"
}

type CrawlerConfig struct {
	TimeoutSeconds int     `toml:"timeout_seconds"`
	RatePerSec     float64 `toml:"rate_per_sec"`
	Burst          int     `toml:"burst"`
	MaxBodyBytes   int64   `toml:"max_body_bytes"`
	UserAgent      string  `toml:"user_agent"`
}

const (
	AI_DRIVER_HEURISTIC = "heuristic"
	AI_DRIVER_OPENAI    = "openai"
)

// AIConfig selects the extraction and embedding collaborators.
// The heuristic driver runs offline and stores records without embeddings.
type AIConfig struct {
	Driver         string `toml:"driver"`
	Token          string `toml:"token"`
	BaseURL        string `toml:"base_url"`
	ChatModel      string `toml:"chat_model"`
	EmbeddingModel string `toml:"embedding_model"`
	Dimensions     int    `toml:"dimensions"`
}

func (a *AIConfig) FromENV() {
	a.Driver = os.Getenv("RAGSTORE_AI_DRIVER")
	a.Token = os.Getenv("RAGSTORE_AI_TOKEN")
	a.BaseURL = os.Getenv("RAGSTORE_AI_BASE_URL")
	a.ChatModel = os.Getenv("RAGSTORE_AI_CHAT_MODEL")
	a.EmbeddingModel = os.Getenv("RAGSTORE_AI_EMBEDDING_MODEL")
	a.Dimensions = envInt("RAGSTORE_AI_DIMENSIONS")
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("RAGSTORE_LOG_LEVEL")
	l.Path = os.Getenv("RAGSTORE_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}
