package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"riskenforcer/cmd/accounts"
	"riskenforcer/cmd/enforcer"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Risk Enforcer CMD"
	app.Usage = "The risk enforcement command line interface"

	app.Commands = []cli.Command{
		enforcerCMD,
		accountsCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	enforcerCMD = cli.Command{
		Name:        "enforcer",
		Usage:       "run Enforcer",
		Action:      enforcerAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run Enforcer CMD`,
	}
	accountsCMD = cli.Command{
		Name:        "accounts",
		Usage:       "manage Accounts",
		Action:      accountsAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Manage the supervised account roster`,
	}
)

func enforcerAction(_ *cli.Context) error {

	logrus.Info("Starting enforcer CMD")
	logrus.WithField("cmd", "enforcer")

	engineProcess := &enforcer.Enforcer{}
	err := engineProcess.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

func accountsAction(_ *cli.Context) error {

	logrus.Info("Starting accounts CMD")

	roster := &accounts.Accounts{}
	err := roster.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
