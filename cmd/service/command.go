package service

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/quka-ai/ragstore/app/core"
	"github.com/quka-ai/ragstore/app/logic/v1/process"
	"github.com/quka-ai/ragstore/pkg/types"
	"github.com/quka-ai/ragstore/pkg/utils"
)

type Options struct {
	ConfigPath string
	Workspaces []string
	NodeID     int64
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "init api by given config")
	flagSet.StringSliceVarP(&o.Workspaces, "workspace", "w", nil, "workspaces to recover and flush at startup")
	flagSet.Int64Var(&o.NodeID, "node-id", 1, "node id used by the request id generator")
}

func (o *Options) workspaces() []types.Workspace {
	out := make([]types.Workspace, 0, len(o.Workspaces))
	for _, w := range o.Workspaces {
		ws := types.Workspace(w)
		if err := ws.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "skip workspace %q: %v\n", w, err)
			continue
		}
		out = append(out, ws)
	}
	return out
}

func NewCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "service",
		Short: "document ingestion and knowledge graph api",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func Run(opts *Options) error {
	utils.SetupIDWorker(opts.NodeID)
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))
	defer app.Close()

	proc := process.NewProcess(app)
	proc.Start(opts.workspaces()...)
	defer proc.Stop()

	serve(app)
	return nil
}

func NewProcessCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "process",
		Short: "run startup recovery and the pending document flush without the api",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunProcess(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func RunProcess(opts *Options) error {
	utils.SetupIDWorker(opts.NodeID)
	app := core.MustSetupCore(core.MustLoadBaseConfig(opts.ConfigPath))
	defer app.Close()

	proc := process.NewProcess(app)
	proc.Start(opts.workspaces()...)
	defer proc.Stop()

	fmt.Println("Process starting...")
	sigs := make(chan os.Signal, 1)
	// 监听 os.Interrupt (Ctrl+C) 和 syscall.SIGTERM (kill)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	<-sigs
	return nil
}
