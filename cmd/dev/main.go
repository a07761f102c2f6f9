package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/mklimuk/imu/cmd/dev/cmd"
)

var (
	debug bool
	board string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "dev",
		Short: "build and test tool for the imu project",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			charm := log.NewWithOptions(os.Stdout, log.Options{
				ReportTimestamp: true,
				TimeFormat:      time.DateTime,
				Prefix:          "imu",
			})
			charm.SetColorProfile(termenv.TrueColor)
			charm.SetLevel(log.InfoLevel)
			if debug {
				charm.SetLevel(log.DebugLevel)
			}
			slog.SetDefault(slog.New(charm))
			if board != "" {
				slog.Debug("target board selected", "board", board)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&board, "board", os.Getenv("IMU_BOARD"), "target board (nanopi, rpi), defaults to $IMU_BOARD or the host")

	rootCmd.AddCommand(cmd.BuildCmd(&board))
	rootCmd.AddCommand(cmd.BoardsCmd())
	rootCmd.AddCommand(cmd.TestCmd())
	rootCmd.AddCommand(cmd.LintCmd())

	err := rootCmd.Execute()
	if err != nil {
		slog.Error("unexpected error", "error", err)
		os.Exit(1)
	}
}
