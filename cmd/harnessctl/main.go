// harnessctl drives the node daemons the way the integration tests do:
// spawn one, wait until it is RPC-reachable, keep it alive until interrupted,
// then shut it down through the graceful path. Useful for poking at a daemon
// with the exact argument synthesis the tests use.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/floresta-chain/nodeharness/certs"
	"github.com/floresta-chain/nodeharness/daemon"
	"github.com/floresta-chain/nodeharness/harness"
	"github.com/floresta-chain/nodeharness/settings"
	"github.com/floresta-chain/nodeharness/ulogger"
)

func main() {
	app := &cli.App{
		Name:  "harnessctl",
		Usage: "drive florestad, utreexod or bitcoind through the harness lifecycle",
		Commands: []*cli.Command{
			runCommand(),
			certgenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "start a node, wait for readiness and keep it running until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "variant",
				Aliases: []string{"v"},
				Value:   "florestad",
				Usage:   "daemon variant: florestad, utreexod or bitcoind",
			},
			&cli.StringFlag{
				Name:  "name",
				Value: "harnessctl",
				Usage: "run name, used for the data and log directories",
			},
			&cli.BoolFlag{
				Name:  "tls",
				Usage: "provision a certificate and enable the variant's TLS listener",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Value: 180 * time.Second,
				Usage: "how long to wait for the node to become ready",
			},
			&cli.StringSliceFlag{
				Name:  "arg",
				Usage: "extra daemon argument, may be repeated; overrides the synthesized default",
			},
		},
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	appSettings := settings.NewSettings()
	logger := ulogger.New(appSettings.ClientName, ulogger.WithLevel(appSettings.LogLevel))

	variant, err := daemon.ParseVariant(c.String("variant"))
	if err != nil {
		return err
	}

	orchestrator, err := harness.NewOrchestrator(logger, appSettings, c.String("name"))
	if err != nil {
		return err
	}

	node, err := orchestrator.AddNode(variant, c.StringSlice("arg"), c.Bool("tls"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err = node.Start(ctx, c.Duration("timeout")); err != nil {
		return err
	}

	logger.Infof("%s ready, ports: %v, interrupt to stop", variant, node.Ports())

	<-ctx.Done()
	stop()

	return orchestrator.StopAllNodes(context.Background())
}

func certgenCommand() *cli.Command {
	return &cli.Command{
		Name:  "certgen",
		Usage: "provision the shared self-signed TLS key and certificate",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "dir",
				Usage: "target directory, defaults to the TLS directory under the temp dir",
			},
		},
		Action: func(c *cli.Context) error {
			appSettings := settings.NewSettings()
			logger := ulogger.New(appSettings.ClientName, ulogger.WithLevel(appSettings.LogLevel))

			dir := c.String("dir")
			if dir == "" {
				if err := appSettings.Validate(); err != nil {
					return err
				}

				dir = appSettings.TLSDir()
			}

			keyPath, certPath, err := certs.EnsureCertificate(logger, dir)
			if err != nil {
				return err
			}

			logger.Infof("key: %s", keyPath)
			logger.Infof("certificate: %s", certPath)

			return nil
		},
	}
}
