package commands

import (
	"encoding/json"
	"fmt"

	"github.com/acorn-io/acorn-ddns/pkg/version"
	"github.com/urfave/cli/v2"
)

func execute(c *cli.Context) error {
	if !c.Bool("json") {
		fmt.Printf("%s\n", version.Get())
		return nil
	}

	out, err := json.Marshal(version.Get())
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "print version",
		Action: execute,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print the version as JSON",
			},
		},
	}
}
