// Command studio is the operator CLI: serve the HTTP console or drive a
// single production run from the terminal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"reelforge/adapters/vertex"
	"reelforge/app"
	"reelforge/internal/auth"
	"reelforge/internal/config"
	"reelforge/internal/dispatch"
	"reelforge/models"
	"reelforge/ports"
	"reelforge/ui"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	root := &cobra.Command{
		Use:   "studio",
		Short: "Agentic video production studio",
	}
	root.AddCommand(serveCmd(log), runCmd(log))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd(log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the production console over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return ui.NewServer(cfg, log).Run()
		},
	}
}

func runCmd(log *logrus.Logger) *cobra.Command {
	var (
		referenceVideo string
		autoApprove    bool
		timeout        time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run <product-url>",
		Short: "Drive one production run from the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			tokens := auth.NewService(cfg.Auth.ProxyEndpoint, log)
			dispatcher := dispatch.New(cfg.AI.Regions, log)
			backend := vertex.NewClient(vertex.Config{
				CompletionModel: cfg.AI.CompletionModel,
				FallbackModel:   cfg.AI.FallbackModel,
				ImageModel:      cfg.AI.ImageModel,
				VideoModel:      cfg.AI.VideoModel,
				TTSModel:        cfg.AI.TTSModel,
				TTSVoice:        cfg.AI.TTSVoice,
			}, dispatcher, tokens, log)

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			orc := app.NewOrchestrator(backend, log)
			obs := ports.Observer{
				OnDialogue: func(e models.DialogueEvent) {
					fmt.Printf("[%s] %s (%s): %s\n", e.Type, e.Agent, e.Role, e.Message)
				},
				OnProgress: func(status string) {
					fmt.Printf("== %s ==\n", status)
					if autoApprove && status == string(app.StateAwaitingApproval) {
						orc.Approve()
					}
				},
			}
			if !autoApprove {
				fmt.Println("Note: the run will pause at awaiting_approval; re-run with --approve for unattended runs.")
			}

			result, err := orc.Run(ctx, args[0], referenceVideo, obs)
			if err != nil {
				return err
			}
			out, _ := json.MarshalIndent(result.Artifact, "", "  ")
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&referenceVideo, "reference-video", "", "reference video URL for the researcher")
	cmd.Flags().BoolVar(&autoApprove, "approve", false, "release the approval gate automatically")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "abort the run after this long (0 = no timeout)")
	return cmd
}
