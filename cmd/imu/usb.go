package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/karalabe/hid"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/imu/adapter"
	"github.com/mklimuk/imu/cmd/imu/console"
	"github.com/mklimuk/imu/snsctx"
)

var usbCmd = cli.Command{
	Name:  "usb",
	Usage: "list USB-to-I2C bridges",
	Action: func(c *cli.Context) error {
		devices := hid.Enumerate(adapter.VendorID, adapter.ProductID)
		if len(devices) == 0 {
			console.Printf("no MCP2221 bridge attached\n")
			return nil
		}
		w := tabwriter.NewWriter(console.Writer(), 12, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "BUS\tPATH\tSERIAL\tPRODUCT\n")
		for i, dev := range devices {
			_, _ = fmt.Fprintf(w, "usb%d\t%s\t%s\t%s\n", i, dev.Path, dev.Serial, dev.Product)
		}
		return w.Flush()
	},
}

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "inspect the USB-to-I2C bridge",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "index", Usage: "bridge index as listed by imu usb", Value: -1},
	},
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
	},
}

var mcp2221StatusCmd = cli.Command{
	Name:  "status",
	Usage: "read the bridge I2C engine status",
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221(adapter.HIDOpener(c.Int("index")))
		ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
		status, err := a.Status(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encodeYAML(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel a stuck transfer and free the bus",
	Action: func(c *cli.Context) error {
		a := adapter.NewMCP2221(adapter.HIDOpener(c.Int("index")))
		ctx := snsctx.SetVerbose(c.Context, c.Bool("verbose"))
		status, err := a.ReleaseBus(ctx)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encodeYAML(status)
	},
}
