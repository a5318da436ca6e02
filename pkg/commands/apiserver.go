package commands

import (
	"context"

	"github.com/acorn-io/acorn-ddns/pkg/apiserver"
	"github.com/acorn-io/acorn-ddns/pkg/backend"
	"github.com/acorn-io/acorn-ddns/pkg/version"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

type apiServerCommand struct{}

func (s *apiServerCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalHandler(context.Background())

	log := logrus.WithField("command", "api-server")

	log.Infof("version: %v", version.Get())

	database, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}

	var daemons []apiserver.Daemon
	if !c.Bool("disable-reconciler") {
		r, err := newReconciler(c, database)
		if err != nil {
			return err
		}
		daemons = append(daemons, r)
	}

	apiServer := apiserver.NewAPIServer(ctx, log, c.Int("port"))

	if err := apiServer.Start(backend.NewBackend(database), daemons...); err != nil {
		return err
	}

	return nil
}

func serverCommand() *cli.Command {
	cmd := apiServerCommand{}

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Port for the HTTP Server Port",
			EnvVars: []string{"ACORN_PORT", "PORT"},
			Value:   4315,
		},
		&cli.BoolFlag{
			Name:    "disable-reconciler",
			Usage:   "Only serve the API; run the reconcile command separately",
			EnvVars: []string{"ACORN_DISABLE_RECONCILER"},
		},
	}
	flags = append(flags, databaseFlags()...)
	flags = append(flags, reconcilerFlags()...)
	flags = append(flags, providerFlags()...)

	return &cli.Command{
		Name:   "api-server",
		Usage:  "acorn ddns api server, runs the reconciler alongside it",
		Action: cmd.Execute,
		Flags:  append(flags, GlobalFlags()...),
		Before: Before,
	}
}
