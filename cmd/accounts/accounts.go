package accounts

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	logger "github.com/sirupsen/logrus"

	"riskenforcer/src/database"
	"riskenforcer/src/model"
	"riskenforcer/src/repository"
	"riskenforcer/src/security"
)

type Accounts struct {
}

func printUsage() {
	fmt.Println("Available commands:")
	fmt.Println("  help                                  Show this help message")
	fmt.Println("  shutdown                              Exit the application")
	fmt.Println("  add <id> <name> <api_key> <secret>    Register an account with encrypted credentials")
	fmt.Println("  enable <id>                           Put an account under supervision")
	fmt.Println("  disable <id>                          Stop supervising an account")
	fmt.Println("  show <id>                             Print account status")
	fmt.Println()
}

func (t *Accounts) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
		return err
	}

	accountRep := repository.NewAccountRepository()

	reader := bufio.NewScanner(os.Stdin)
	reader.Buffer(make([]byte, 0, 1024), 1024*1024)

	for {
		fmt.Print("cmd> ")

		if !reader.Scan() {
			return nil
		}

		line := strings.TrimSpace(reader.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, " ")
		cmd := parts[0]

		switch cmd {

		case "shutdown":
			fmt.Println("Exiting CLI...")
			return nil

		case "help":
			printUsage()

		case "add":
			if len(parts) < 5 {
				printUsage()
				continue
			}
			accountID, name, key, secret := parts[1], parts[2], parts[3], parts[4]

			encryptKey, err := security.EncryptString(key)
			if err != nil {
				logger.WithError(err).Error("Failed to encrypt key")
				continue
			}

			encryptSecret, err := security.EncryptString(secret)
			if err != nil {
				logger.WithError(err).Error("Failed to encrypt secret")
				continue
			}

			err = accountRep.Upsert(ctx, &model.Account{
				AccountID:    accountID,
				Name:         name,
				APIKeyEnc:    encryptKey,
				APISecretEnc: encryptSecret,
				Enabled:      true,
			})
			if err != nil {
				logger.WithError(err).Error("Failed to save account")
				continue
			}
			fmt.Printf("Account %s registered\n", accountID)

		case "enable", "disable":
			if len(parts) < 2 {
				printUsage()
				continue
			}
			if err := accountRep.SetEnabled(ctx, parts[1], cmd == "enable"); err != nil {
				logger.WithError(err).Error("Failed to update account")
				continue
			}
			fmt.Printf("Account %s %sd\n", parts[1], cmd)

		case "show":
			if len(parts) < 2 {
				printUsage()
				continue
			}
			account, err := accountRep.FindByAccountID(ctx, parts[1])
			if err != nil {
				logger.WithError(err).Error("Failed to load account")
				continue
			}
			if account == nil {
				fmt.Println("Unknown account")
				continue
			}
			fmt.Printf("%s (%s) enabled=%v\n", account.AccountID, account.Name, account.Enabled)

		default:
			printUsage()
		}
	}
}
