package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/example/ctfcord/internal/wire"
)

// DetailsCmd returns the details command
func DetailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details [event]",
		Short: "Look up a CTFtime event from the terminal",
		Long: `Resolve an event ID or link against CTFtime and print its details.

Examples:
  ctfcord details 1616
  ctfcord details https://ctftime.org/event/1616/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := wire.CtfService().Details(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve event: %w", err)
			}

			fmt.Println(color.New(color.Bold).Sprint(details.Title))
			if details.Description != "" {
				fmt.Println(details.Description)
			}
			fmt.Printf("Starts: %s\n", details.Start.Format(time.RFC1123))
			fmt.Printf("Ends:   %s\n", details.Finish.Format(time.RFC1123))
			if details.Participants > 0 {
				fmt.Printf("Teams interested: %d\n", details.Participants)
			}
			if details.URL != "" {
				fmt.Println(color.CyanString(details.URL))
			}
			return nil
		},
	}
}
