package core

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/quka-ai/ragstore/app/store"
	"github.com/quka-ai/ragstore/app/store/redisstore"
	"github.com/quka-ai/ragstore/pkg/ai"
	"github.com/quka-ai/ragstore/pkg/ai/openai"
	"github.com/quka-ai/ragstore/pkg/chunker"
	"github.com/quka-ai/ragstore/pkg/crawler"
	"github.com/quka-ai/ragstore/pkg/types"
)

// Pipeline is the document lifecycle engine as seen by the request layer.
type Pipeline interface {
	// Enqueue appends pending documents to the workspace queue and starts a
	// run when none is active.
	Enqueue(ws types.Workspace, trackID string, docIDs ...string)
	Busy(ws types.Workspace) bool
	Status(ws types.Workspace) types.PipelineStatus
	Cancel(ws types.Workspace) types.CancelResponse
}

type Core struct {
	cfg        CoreConfig
	stores     *store.Stores
	backends   *backends
	pipeline   Pipeline
	locker     PipelineLocker
	httpEngine *gin.Engine

	fetcher   crawler.PageFetcher
	chunker   chunker.Chunker
	extractor ai.Extractor
	embedder  ai.Embedder
	aiDriver  string

	metrics *Metrics
}

type Option func(*Core)

// WithStores replaces the configured backends.
func WithStores(s *store.Stores) Option {
	return func(c *Core) {
		c.stores = s
	}
}

func WithFetcher(f crawler.PageFetcher) Option {
	return func(c *Core) {
		c.fetcher = f
	}
}

func WithExtractor(e ai.Extractor) Option {
	return func(c *Core) {
		c.extractor = e
	}
}

func WithEmbedder(e ai.Embedder) Option {
	return func(c *Core) {
		c.embedder = e
	}
}

func WithChunker(ch chunker.Chunker) Option {
	return func(c *Core) {
		c.chunker = ch
	}
}

func WithPipelineLocker(l PipelineLocker) Option {
	return func(c *Core) {
		c.locker = l
	}
}

func MustSetupCore(cfg CoreConfig, opts ...Option) *Core {
	cfg = cfg.WithDefaults()
	{
		var writer io.Writer = os.Stdout
		if cfg.Log.Path != "" {
			writer = &lumberjack.Logger{
				Filename:   cfg.Log.Path,
				MaxSize:    500, // megabytes
				MaxBackups: 3,
				MaxAge:     28,   //days
				Compress:   true, // disabled by default
			}
		}
		l := slog.New(slog.NewJSONHandler(writer, &slog.HandlerOptions{
			Level: cfg.Log.SlogLevel(),
		}))
		slog.SetDefault(l)
	}

	core := &Core{
		cfg:        cfg,
		metrics:    NewMetrics("ragstore", "core"),
		httpEngine: gin.New(),
	}
	for _, o := range opts {
		o(core)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	if core.stores == nil {
		core.stores = mustSetupStores(ctx, core)
	}
	setupAI(core)

	if core.fetcher == nil {
		core.fetcher = crawler.NewFetcher(crawler.Config{
			Timeout:      time.Duration(cfg.Crawler.TimeoutSeconds) * time.Second,
			RatePerSec:   cfg.Crawler.RatePerSec,
			Burst:        cfg.Crawler.Burst,
			MaxBodyBytes: cfg.Crawler.MaxBodyBytes,
			UserAgent:    cfg.Crawler.UserAgent,
		})
	}
	if core.chunker == nil {
		core.chunker = chunker.New(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap, cfg.Pipeline.Encoding)
	}

	if core.locker == nil && cfg.Pipeline.DistributedLock {
		core.locker = NewRedisPipelineLocker(core.mustRedis(ctx), cfg.Redis.KeyPrefix, time.Minute*10)
	}

	return core
}

func mustSetupStores(ctx context.Context, core *Core) *store.Stores {
	stores, b, err := setupStores(ctx, core.cfg)
	if err != nil {
		if b != nil {
			_ = b.closeAll()
		}
		panic(err)
	}
	core.backends = b
	return stores
}

func setupAI(core *Core) {
	switch core.cfg.AI.Driver {
	case AI_DRIVER_OPENAI:
		driver := openai.New(core.cfg.AI.Token, core.cfg.AI.BaseURL, ai.ModelName{
			ChatModel:      core.cfg.AI.ChatModel,
			EmbeddingModel: core.cfg.AI.EmbeddingModel,
		}, core.cfg.AI.Dimensions)
		if core.extractor == nil {
			core.extractor = driver
		}
		if core.embedder == nil {
			core.embedder = driver
		}
		core.aiDriver = openai.NAME
	default:
		core.aiDriver = AI_DRIVER_HEURISTIC
	}

	if core.extractor == nil {
		core.extractor = ai.HeuristicExtractor{}
	}
	if core.embedder == nil {
		core.embedder = ai.NoopEmbedder{}
	}
}

// mustRedis reuses the redis storage client when redis serves a store kind.
func (s *Core) mustRedis(ctx context.Context) redis.UniversalClient {
	if s.backends == nil {
		s.backends = &backends{cfg: s.cfg, opened: map[string]store.Backend{}}
	}
	b, err := s.backends.open(ctx, BACKEND_REDIS)
	if err != nil {
		panic(err)
	}
	return b.(*redisstore.Provider).Client()
}

func (s *Core) Cfg() CoreConfig {
	return s.cfg
}

func (s *Core) HttpEngine() *gin.Engine {
	return s.httpEngine
}

func (s *Core) Metrics() *Metrics {
	return s.metrics
}

func (s *Core) Stores() *store.Stores {
	return s.stores
}

// Backends lists the opened backend families in open order.
func (s *Core) Backends() []store.Backend {
	if s.backends == nil {
		return nil
	}
	return s.backends.order
}

func (s *Core) SetPipeline(p Pipeline) {
	s.pipeline = p
}

func (s *Core) Pipeline() Pipeline {
	return s.pipeline
}

func (s *Core) PipelineLocker() PipelineLocker {
	return s.locker
}

func (s *Core) Fetcher() crawler.PageFetcher {
	return s.fetcher
}

func (s *Core) Chunker() chunker.Chunker {
	return s.chunker
}

func (s *Core) Extractor() ai.Extractor {
	return s.extractor
}

func (s *Core) Embedder() ai.Embedder {
	return s.embedder
}

func (s *Core) AIDriver() string {
	return s.aiDriver
}

// DefaultWorkspace is used when a request carries no workspace header.
func (s *Core) DefaultWorkspace() types.Workspace {
	return types.Workspace(s.cfg.DefaultWorkspace)
}

func (s *Core) Close() error {
	if s.backends == nil {
		return nil
	}
	return s.backends.closeAll()
}
