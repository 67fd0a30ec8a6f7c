package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/quka-ai/ragstore/cmd/service"
)

func main() {
	root := &cobra.Command{
		Use:   "ragstore",
		Short: "ragstore",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("empty command")
		},
	}

	root.AddCommand(service.NewCommand(), service.NewProcessCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
