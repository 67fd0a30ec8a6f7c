package process

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/quka-ai/ragstore/app/core"
	"github.com/quka-ai/ragstore/pkg/types"
)

type Process struct {
	cron     *cron.Cron
	core     *core.Core
	pipeline *Pipeline
}

// NewProcess builds the pipeline and installs it on core.
func NewProcess(core *core.Core) *Process {
	pipeline, err := NewPipeline(core)
	if err != nil {
		panic(err)
	}
	core.SetPipeline(pipeline)

	p := &Process{
		cron:     cron.New(),
		core:     core,
		pipeline: pipeline,
	}

	if _, err = p.cron.AddFunc(core.Cfg().Pipeline.FlushSpec, pipeline.Flush); err != nil {
		panic(err)
	}

	return p
}

func (p *Process) Cron() *cron.Cron {
	return p.cron
}

func (p *Process) Core() *core.Core {
	return p.core
}

func (p *Process) Pipeline() *Pipeline {
	return p.pipeline
}

// Start recovers interrupted runs of the known workspaces, then starts the
// periodic flush.
func (p *Process) Start(workspaces ...types.Workspace) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	p.pipeline.Recover(ctx, append(workspaces, p.core.DefaultWorkspace())...)
	p.pipeline.Flush()
	p.cron.Start()
	slog.Info("pipeline process started", slog.String("component", "pipeline"))
}

func (p *Process) Stop() {
	if p.cron != nil {
		ctx := p.cron.Stop()
		<-ctx.Done()
	}
	p.pipeline.Close()
}
