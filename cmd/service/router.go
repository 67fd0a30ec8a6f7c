package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quka-ai/ragstore/app/core"
	"github.com/quka-ai/ragstore/app/response"
	"github.com/quka-ai/ragstore/cmd/service/handler"
	"github.com/quka-ai/ragstore/cmd/service/middleware"
	"github.com/quka-ai/ragstore/pkg/metrics"
)

func serve(core *core.Core) {
	httpSrv := &handler.HttpSrv{
		Core:   core,
		Engine: core.HttpEngine(),
	}
	SetupHttpRouter(httpSrv)

	srv := &http.Server{
		Addr:    core.Cfg().Addr,
		Handler: core.HttpEngine(),
	}
	go func() {
		slog.Info("http server listening", slog.String("addr", srv.Addr), slog.String("component", "service"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server stopped", slog.String("error", err.Error()), slog.String("component", "service"))
			os.Exit(1)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown http server", slog.String("error", err.Error()), slog.String("component", "service"))
	}
}

func SetupHttpRouter(s *handler.HttpSrv) {
	s.Engine.Use(gin.Recovery())
	s.Engine.GET("/metrics", metrics.DefaultExportHandler())

	s.Engine.Use(middleware.I18n(), response.NewResponse(), middleware.Metrics(s.Core))
	s.Engine.Use(middleware.Cors, middleware.AcceptLanguage(), middleware.Workspace(s.Core))

	s.Engine.GET("/health", s.Health)

	documents := s.Engine.Group("/documents")
	{
		documents.POST("/crawl", s.CrawlDocument)
		documents.POST("/text", s.InsertText)
		documents.GET("", s.ListDocuments)
		documents.GET("/status_counts", s.DocumentStatusCounts)
		documents.GET("/track_status/:track_id", s.TrackStatus)
		documents.GET("/pipeline_status", s.PipelineStatus)
		documents.POST("/reprocess_failed", s.ReprocessFailed)
		documents.POST("/cancel_pipeline", s.CancelPipeline)
		documents.GET("/:id", s.GetDocument)
		documents.DELETE("/:id", s.DeleteDocument)
		documents.GET("/:id/chunks", s.DocumentChunks)
		documents.GET("/:id/entities", s.DocumentEntities)
	}

	chunks := s.Engine.Group("/chunks")
	{
		chunks.GET("", s.ListChunks)
		chunks.GET("/:id", s.GetChunk)
	}

	entities := s.Engine.Group("/entities")
	{
		entities.GET("", s.ListEntities)
		entities.GET("/by-document", s.EntitiesByDocument)
		entities.GET("/:name", s.GetEntity)
		entities.GET("/:name/relations", s.EntityRelations)
	}

	s.Engine.GET("/relations", s.ListRelations)
}
