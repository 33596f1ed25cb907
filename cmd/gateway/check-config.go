package main

import (
	"fmt"
	"io"

	"github.com/iamvkosarev/rag-chat-gateway/config"
	"github.com/spf13/cobra"
)

func checkConfigCMD() *cobra.Command {
	var cfgPath string
	check := &cobra.Command{
		Use:   "check-config",
		Short: "Validate configuration and print the credential order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
	check.Flags().StringVarP(&cfgPath, "config", "c", "", "config file, environment only when empty")
	return check
}

// printConfig writes a summary without any secret values.
func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "listen:      %s\n", cfg.Server.Address)
	fmt.Fprintf(w, "storage:     %s\n", cfg.Storage.Driver)
	fmt.Fprintf(w, "vector:      %s\n", cfg.Vector.Driver)
	fmt.Fprintf(w, "llm:         %s (%s)\n", cfg.LLM.Backend, cfg.LLM.GenerationModel)
	fmt.Fprintf(w, "search:      %v\n", cfg.Search.Providers)
	for i, cred := range cfg.GenerationPool().Credentials {
		fmt.Fprintf(w, "generation %d: %s\n", i+1, cred.Name)
	}
	for _, cred := range cfg.EmbeddingPool().Credentials {
		fmt.Fprintf(w, "embedding:   %s\n", cred.Name)
	}
}
