package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/provider"
	"github.com/acorn-io/acorn-ddns/pkg/reconciler"
	"github.com/acorn-io/acorn-ddns/pkg/version"
	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"
)

type reconcileCommand struct{}

// Execute runs the reconciliation loop without the API, for deployments that split the two.
func (s *reconcileCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalHandler(context.Background())

	log := logrus.WithField("command", "reconcile")
	log.Infof("version: %v", version.Get())

	database, err := openDatabase(ctx, c)
	if err != nil {
		return err
	}

	r, err := newReconciler(c, database)
	if err != nil {
		return err
	}

	if !c.Bool("once") {
		r.Start(ctx)
		return nil
	}

	result, err := r.RunCycle(ctx)
	for _, outcome := range result.Outcomes() {
		fmt.Printf("%s: %d\n", outcome, result[outcome])
	}
	return err
}

func reconcileCommandDef() *cli.Command {
	cmd := reconcileCommand{}

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:    "once",
			Usage:   "Run a single reconciliation cycle and exit",
			EnvVars: []string{"ACORN_RECONCILE_ONCE"},
		},
	}
	flags = append(flags, databaseFlags()...)
	flags = append(flags, reconcilerFlags()...)
	flags = append(flags, providerFlags()...)

	return &cli.Command{
		Name:   "reconcile",
		Usage:  "converge the DNS provider with the records in the database",
		Action: cmd.Execute,
		Flags:  append(flags, GlobalFlags()...),
		Before: Before,
	}
}

func databaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "sql-dialect",
			Usage:   "The type of sql to use, sqlite or mysql",
			EnvVars: []string{"ACORN_SQL_DIALECT", "SQL_DIALECT"},
			Value:   "sqlite",
		},
		&cli.StringFlag{
			Name:    "sql-dsn",
			Usage:   "The DSN to use to connect to",
			EnvVars: []string{"ACORN_SQL_DSN", "SQL_DSN"},
			Value:   "file:acorn-ddns.sqlite?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		},
	}
}

func reconcilerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Int64Flag{
			Name:    "record-max-age-seconds",
			Usage:   "How long a record lives without a refresh before it is removed",
			EnvVars: []string{"ACORN_RECORD_MAX_AGE_SECONDS", "RECORD_TTL"},
			Value:   int64(reconciler.DefaultRecordMaxAge / time.Second),
		},
		&cli.Int64Flag{
			Name:    "reconcile-interval-seconds",
			Usage:   "Pause between reconciliation cycles",
			EnvVars: []string{"ACORN_RECONCILE_INTERVAL_SECONDS"},
			Value:   int64(reconciler.DefaultInterval / time.Second),
		},
		&cli.IntFlag{
			Name:    "reconcile-concurrency",
			Usage:   "How many records are pushed to the provider in parallel",
			EnvVars: []string{"ACORN_RECONCILE_CONCURRENCY"},
			Value:   1,
		},
		&cli.BoolFlag{
			Name:    "strict-rename-cleanup",
			Usage:   "Keep retrying the delete of a renamed record's old hostname until it succeeds",
			EnvVars: []string{"ACORN_STRICT_RENAME_CLEANUP"},
		},
	}
}

func providerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "dns-provider",
			Usage:   "DNS provider to manage records in: route53, cloudflare, aliyun, tencent or memory",
			EnvVars: []string{"ACORN_DNS_PROVIDER"},
			Value:   provider.Route53,
		},
		&cli.Int64Flag{
			Name:    "dns-record-ttl-seconds",
			Usage:   "TTL of the A records written to the provider",
			EnvVars: []string{"ACORN_DNS_RECORD_TTL_SECONDS"},
			Value:   3600,
		},
		&cli.StringFlag{
			Name:    "zone-id",
			Usage:   "Route53 hosted zone ID",
			EnvVars: []string{"ACORN_ZONE_ID", "ZONE_ID"},
		},
		&cli.StringFlag{
			Name:    "zone-name",
			Usage:   "Zone (domain) the records are created in, for cloudflare, aliyun and tencent",
			EnvVars: []string{"ACORN_ZONE_NAME"},
		},
		&cli.StringFlag{
			Name:    "cloudflare-api-token",
			Usage:   "Cloudflare API token with DNS edit permission on the zone",
			EnvVars: []string{"CLOUDFLARE_API_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "aliyun-access-key-id",
			EnvVars: []string{"ALIYUN_ACCESS_KEY_ID"},
		},
		&cli.StringFlag{
			Name:    "aliyun-access-key-secret",
			EnvVars: []string{"ALIYUN_ACCESS_KEY_SECRET"},
		},
		&cli.StringFlag{
			Name:    "tencent-secret-id",
			EnvVars: []string{"TENCENTCLOUD_SECRET_ID"},
		},
		&cli.StringFlag{
			Name:    "tencent-secret-key",
			EnvVars: []string{"TENCENTCLOUD_SECRET_KEY"},
		},
	}
}

func openDatabase(ctx context.Context, c *cli.Context) (db.Database, error) {
	return db.New(ctx, c.String("sql-dialect"), c.String("sql-dsn"), &gorm.Config{
		Logger: db.NewLogger(c.String("log-level")),
	})
}

func newReconciler(c *cli.Context, database db.Database) (*reconciler.Reconciler, error) {
	p, err := provider.New(provider.Config{
		Name:               c.String("dns-provider"),
		RecordTTLSeconds:   c.Int64("dns-record-ttl-seconds"),
		ZoneID:             c.String("zone-id"),
		ZoneName:           c.String("zone-name"),
		CloudflareAPIToken: c.String("cloudflare-api-token"),
		AliyunAccessKeyID:  c.String("aliyun-access-key-id"),
		AliyunAccessSecret: c.String("aliyun-access-key-secret"),
		TencentSecretID:    c.String("tencent-secret-id"),
		TencentSecretKey:   c.String("tencent-secret-key"),
	})
	if err != nil {
		return nil, err
	}

	return reconciler.New(database, p, reconciler.Config{
		RecordMaxAge:        time.Duration(c.Int64("record-max-age-seconds")) * time.Second,
		Interval:            time.Duration(c.Int64("reconcile-interval-seconds")) * time.Second,
		Concurrency:         c.Int("reconcile-concurrency"),
		StrictRenameCleanup: c.Bool("strict-rename-cleanup"),
	}), nil
}
