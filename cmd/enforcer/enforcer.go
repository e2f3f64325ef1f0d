package enforcer

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"riskenforcer/src/broadcast"
	"riskenforcer/src/database"
	"riskenforcer/src/engine"
	"riskenforcer/src/repository"
	"riskenforcer/src/security"
	"riskenforcer/src/server"
	"riskenforcer/src/venue"
)

type Enforcer struct {
}

func (t *Enforcer) Start() error {
	GetConfig()
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	venueCfg := venue.GetConfig()
	if venueCfg.APIKey == "" {
		// No env credentials; fall back to the encrypted pair stored with
		// the account roster.
		key, secret, err := storedCredentials(ctx)
		if err != nil {
			logrus.WithError(err).Fatal("Failed to load venue credentials")
			return err
		}
		venueCfg.APIKey, venueCfg.APISecret = key, secret
	}

	client := venue.NewRESTClient(venueCfg)
	stream := venue.NewStream(venueCfg)
	hub := broadcast.NewHub()

	eng, err := engine.New(engine.GetConfig(), client, stream, hub)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to assemble engine")
		return err
	}

	if err := eng.Recover(ctx); err != nil {
		logrus.WithError(err).Fatal("Failed to recover state")
		return err
	}

	go server.StartServer(ctx, server.GetConfig().Port, hub)

	logrus.Info("Starting risk enforcement engine")
	if err := eng.Run(ctx); err != nil {
		logrus.WithError(err).Error("Engine stopped with error")
		return err
	}
	return nil
}

func storedCredentials(ctx context.Context) (string, string, error) {
	accounts, err := repository.NewResetRepository().EnabledAccounts(ctx)
	if err != nil {
		return "", "", err
	}
	for _, account := range accounts {
		if account.APIKeyEnc == "" {
			continue
		}
		key, err := security.DecryptString(account.APIKeyEnc)
		if err != nil {
			return "", "", err
		}
		secret, err := security.DecryptString(account.APISecretEnc)
		if err != nil {
			return "", "", err
		}
		return key, secret, nil
	}
	return "", "", nil
}
