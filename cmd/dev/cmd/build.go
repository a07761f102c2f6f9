package cmd

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gophertribe/devtool/build"
)

// Board is a deployment target for the imu cli.
type Board struct {
	OS      string
	Arch    string
	Adapter string // imu --adapter value matching the board's I2C wiring
}

var boards = map[string]Board{
	"nanopi": {OS: "linux", Arch: "arm", Adapter: "nanopi"},
	"rpi":    {OS: "linux", Arch: "arm64", Adapter: "periph"},
}

// ResolveBoard returns the host pair when name is empty.
func ResolveBoard(name string) (Board, error) {
	if name == "" {
		return Board{OS: runtime.GOOS, Arch: runtime.GOARCH, Adapter: "periph"}, nil
	}
	b, ok := boards[name]
	if !ok {
		return Board{}, fmt.Errorf("unknown board %q", name)
	}
	return b, nil
}

func BuildCmd(board *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the imu cli for the host or the selected board",
		RunE: func(cmd *cobra.Command, args []string) error {
			version, _ := cmd.Flags().GetString("version")
			target, err := ResolveBoard(*board)
			if err != nil {
				return err
			}
			noCache, err := cmd.Flags().GetBool("no-cache")
			if err != nil {
				return fmt.Errorf("could not get no-cache flag: %w", err)
			}
			output := "dist/imu"
			if *board != "" {
				output = "dist/imu-" + *board
			}
			// the MCP2221 adapter needs cgo (hidapi), so foreign targets build in docker
			if target.OS != runtime.GOOS || target.Arch != runtime.GOARCH {
				slog.Info("cross building in docker", "board", *board, "os", target.OS, "arch", target.Arch)
				return build.Docker(cmd.Context(), fmt.Sprintf("./dev-%s-%s", target.OS, target.Arch), []string{"build", "--version", version, "--board", *board}, build.DockerBuildOpts{
					NoCache: noCache,
					Image:   "gophertribe/gobuild:1.25-bookworm",
				})
			}
			slog.Info("building", "output", output, "default_adapter", target.Adapter)
			return build.GoBuild(output, "./cmd/imu", build.GoBuildOpts{
				Version:       version,
				InjectVersion: true,
				ConfigPackage: "main",
				EnableCgo:     true,
				Arch:          target.Arch,
				OS:            target.OS,
			})
		},
	}
	cmd.Flags().Bool("no-cache", false, "do not use cache when building in docker")
	cmd.Flags().String("version", "latest", "version of the cli")
	return cmd
}

func BoardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "boards",
		Short: "List deployment boards and the imu adapter each one uses",
		Run: func(cmd *cobra.Command, args []string) {
			names := make([]string, 0, len(boards))
			for name := range boards {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				b := boards[name]
				cmd.Printf("%-8s %s/%s\timu --adapter %s\n", name, b.OS, b.Arch, b.Adapter)
			}
		},
	}
}
