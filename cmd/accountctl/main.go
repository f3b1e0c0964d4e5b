// Command accountctl provisions and inspects login accounts in the configured store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/login-service/internal/auth"
	"github.com/spec-kit/login-service/internal/config"
	"github.com/spec-kit/login-service/internal/persistence"
	"github.com/spec-kit/login-service/internal/service"
)

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "accountctl: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) < 1 {
		printUsage(out)
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	switch args[0] {
	case "hash":
		return runHash(cfg, args[1:], out)
	case "create":
		return withAccounts(ctx, cfg, func(accounts *service.AccountService) error {
			return runCreate(ctx, accounts, args[1:], out)
		})
	case "list":
		return withAccounts(ctx, cfg, func(accounts *service.AccountService) error {
			return runList(ctx, accounts, out)
		})
	case "help", "-h", "--help":
		printUsage(out)
		return nil
	default:
		fmt.Fprintf(out, "Unknown command: %s\n\n", args[0])
		printUsage(out)
		return errUsage
	}
}

func runHash(cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	password := fs.String("password", "", "plaintext password to hash")
	cost := fs.Int("cost", cfg.Auth.BcryptCost, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *password == "" {
		return errors.New("-password is required")
	}

	hash, err := auth.NewBcryptHasher(*cost).Hash(*password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	fmt.Fprintln(out, hash)
	return nil
}

func runCreate(ctx context.Context, accounts *service.AccountService, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	in := service.ProvisionInput{}
	fs.StringVar(&in.ID, "id", "", "account id (generated when empty)")
	fs.StringVar(&in.Username, "username", "", "login name")
	fs.StringVar(&in.Password, "password", "", "plaintext password")
	fs.StringVar(&in.Role, "role", "user", "role claim carried in issued tokens")
	fs.StringVar(&in.Name, "name", "", "display name")
	fs.BoolVar(&in.Disabled, "disabled", false, "create the account disabled")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	account, err := accounts.Provision(ctx, in)
	if err != nil {
		return err
	}
	return writeJSON(out, account.Public())
}

func runList(ctx context.Context, accounts *service.AccountService, out io.Writer) error {
	summaries, err := accounts.ListAccounts(ctx)
	if err != nil {
		return err
	}
	return writeJSON(out, summaries)
}

// withAccounts opens the configured store for the duration of fn.
func withAccounts(ctx context.Context, cfg *config.Config, fn func(*service.AccountService) error) error {
	if cfg.Store.Driver == config.StoreMemory {
		return fmt.Errorf("STORE_DRIVER=%s keeps accounts in the server process; use postgres or redis", cfg.Store.Driver)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	store, err := persistence.OpenAccountStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	defer store.Close()

	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	return fn(service.NewAccountService(store.Accounts, hasher, logger, nil))
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, `accountctl manages login accounts

Usage:
  accountctl <command> [flags]

Commands:
  hash     Print a bcrypt hash (-password, -cost)
  create   Provision an account (-username, -password, -role, -name, -id, -disabled)
  list     Print every account with its lockout state as JSON
  help     Show this help message

The store is selected with STORE_DRIVER and the POSTGRES_* or REDIS_* variables.`)
}
