package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/ctfcord/internal/wire"
)

// digestInterval is how often the upcoming-events digest is posted when
// a digest channel is configured.
const digestInterval = 24 * time.Hour

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to Discord and run the bot",
		Long: `Connect to Discord, register the slash commands and run until
interrupted. The lifecycle sweep runs on the configured tick interval.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := wire.Config()
			gateway := wire.Gateway()
			if err := gateway.Start(cfg.Guilds); err != nil {
				return fmt.Errorf("failed to start gateway: %w", err)
			}
			defer gateway.Stop()

			fmt.Printf("%s connected, sweeping every %s\n", color.GreenString("✓"), cfg.TickInterval)

			ticker := time.NewTicker(cfg.TickInterval)
			defer ticker.Stop()
			digest := time.NewTicker(digestInterval)
			defer digest.Stop()

			for {
				select {
				case <-ctx.Done():
					fmt.Println("shutting down")
					return nil
				case <-ticker.C:
					if err := wire.CtfService().Tick(context.Background()); err != nil {
						log.Printf("sweep failed: %v", err)
					}
				case <-digest.C:
					if err := wire.CtfService().Digest(context.Background()); err != nil {
						log.Printf("digest failed: %v", err)
					}
				}
			}
		},
	}
}
