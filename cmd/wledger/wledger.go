package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
	"gopkg.in/urfave/cli.v1"

	"wsb.com/wledger/internals/config"
	"wsb.com/wledger/internals/ledger"
	"wsb.com/wledger/internals/miner"
	"wsb.com/wledger/internals/node"
	"wsb.com/wledger/internals/server"
)

const statusInterval = 30 * time.Second

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app := cli.NewApp()
	app.Name = "wledger"
	app.Usage = "Single-node proof-of-work ledger over HTTP."
	app.Version = "1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "configuration file (.json or .toml)",
		},
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "log at debug level",
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.GlobalBool("debug") {
			logrus.SetLevel(logrus.DebugLevel)
		}
		return nil
	}
	app.Commands = cmds
	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func showBanner(identifier, address string) {
	_ = pterm.DefaultBigText.WithLetters(
		putils.LettersFromStringWithStyle("W", pterm.FgCyan.ToStyle()),
		putils.LettersFromStringWithStyle("Ledger", pterm.FgDarkGray.ToStyle()),
	).Render()
	pterm.Info.Printfln("Node identifier: %s", identifier)
	pterm.Info.Printfln("HTTP API: http://%s", address)
	pterm.Println()
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.LoadConfiguration(c.GlobalString("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("host") {
		cfg.NodeHost = c.String("host")
	}
	if c.IsSet("port") {
		cfg.NodePort = c.Int64("port")
	}
	if c.IsSet("threads") {
		cfg.Threads = c.Int("threads")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	level, _ := logrus.ParseLevel(cfg.LogLevel)
	if c.GlobalBool("debug") {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	return cfg, nil
}

// serve runs a node until SIGINT or SIGTERM.
func serve(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return xerrors.Errorf("couldn't load configuration: %w", err)
	}

	identifier := node.NewIdentifier()
	showBanner(identifier, cfg.Address())

	n := node.New(identifier, ledger.New(), miner.New(cfg.Threads))
	srv := server.NewServer(n, cfg.Address(), cfg.MineTimeout())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		reportStatus(gctx, n)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	logrus.Info("Node stopped")
	return nil
}

func reportStatus(ctx context.Context, n *node.Node) {
	ticker := time.NewTicker(statusInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			stats := n.Stats()
			logrus.WithFields(logrus.Fields{
				"blocks":  stats.Blocks,
				"pending": stats.Pending,
				"hashes":  stats.Hashes,
			}).Debug("Node status")
		case <-ctx.Done():
			return
		}
	}
}
