package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/CrysisFangz/TheFinalMarket-sub014/cmd/cli"
	"github.com/CrysisFangz/TheFinalMarket-sub014/pkg/gologger"
)

var logMode string

var rootCmd = &cobra.Command{
	Use:   "reputation-server",
	Short: "Marketplace Reputation Server",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		switch logMode {
		case "debug", "pretty", "info", "prod", "test":
			gologger.InitWithMode(gologger.LogMode(logMode))
		default:
			gologger.InitWithMode(gologger.LogModePretty)
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		cli.RunServer()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logMode, "log", "pretty", "Log mode: debug, pretty, info, prod, test")

	processEventCmd.Flags().String("event-id", "", "UUID of the reputation event to process")
	processEventCmd.Flags().String("event-type", "", "Event type (gained, lost, reset, level_changed)")
	processEventCmd.Flags().String("user-id", "", "User the event belongs to")
	if err := processEventCmd.MarkFlagRequired("event-id"); err != nil {
		fmt.Fprintf(os.Stderr, "Error marking flag required: %v\n", err)
		os.Exit(1)
	}
	if err := processEventCmd.MarkFlagRequired("event-type"); err != nil {
		fmt.Fprintf(os.Stderr, "Error marking flag required: %v\n", err)
		os.Exit(1)
	}

	generateAnalyticsCmd.Flags().String("date", "", "Snapshot date (YYYY-MM-DD, default today)")

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(processEventCmd)
	rootCmd.AddCommand(refreshLeaderboardsCmd)
	rootCmd.AddCommand(generateAnalyticsCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the reputation server",
	Run: func(cmd *cobra.Command, args []string) {
		cli.RunServer()
	},
}

var processEventCmd = &cobra.Command{
	Use:   "process-event",
	Short: "Process a single reputation event",
	Run: func(cmd *cobra.Command, args []string) {
		eventID, _ := cmd.Flags().GetString("event-id")
		eventType, _ := cmd.Flags().GetString("event-type")
		userID, _ := cmd.Flags().GetString("user-id")

		if err := cli.RunProcessEvent(eventID, eventType, userID); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to process event: %v\n", err)
			os.Exit(1)
		}
	},
}

var refreshLeaderboardsCmd = &cobra.Command{
	Use:   "refresh-leaderboards",
	Short: "Recalculate all leaderboards covering the current time",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cli.RunRefreshLeaderboards(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to refresh leaderboards: %v\n", err)
			os.Exit(1)
		}
	},
}

var generateAnalyticsCmd = &cobra.Command{
	Use:   "generate-analytics",
	Short: "Generate the daily analytics snapshot for a date",
	Run: func(cmd *cobra.Command, args []string) {
		date, _ := cmd.Flags().GetString("date")

		if err := cli.RunGenerateAnalytics(date); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate analytics: %v\n", err)
			os.Exit(1)
		}
	},
}
