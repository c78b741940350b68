// Package orbd wires configuration, storage, the token store and the HTTP
// API into the orbd daemon.
package orbd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/MJE43/moonrock-orbs/internal/api"
	"github.com/MJE43/moonrock-orbs/internal/config"
	"github.com/MJE43/moonrock-orbs/internal/secrets"
	"github.com/MJE43/moonrock-orbs/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Config holds orbd settings: the shared environment config plus flags.
type Config struct {
	config.Config
	TokenFile string
	// Args are the positional arguments left after flags, e.g. "token set x".
	Args []string
}

// ParseConfig loads the environment and applies flag overrides.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	base, err := config.Load()
	if err != nil {
		return Config{}, err
	}
	cfg := Config{Config: base, TokenFile: filepath.Join(config.AppDir(), "secrets.json")}
	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database")
	fs.StringVar(&cfg.TokenFile, "token-file", cfg.TokenFile, "fallback token file when no OS keyring is available")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Args = fs.Args()
	return cfg, nil
}

func (c Config) tokenStore() *secrets.TokenStore {
	return secrets.NewTokenStore(c.KeyringService, c.TokenFile)
}

// Serve runs the API until ctx is cancelled or the listener fails.
func Serve(ctx context.Context, cfg Config) error {
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	token, err := cfg.tokenStore().Resolve(cfg.APIToken)
	if err != nil {
		return fmt.Errorf("resolve api token: %w", err)
	}

	srv := api.NewServer(db, api.Options{Token: token, RequestTimeout: cfg.RequestTimeout})
	listener := api.NewListener(cfg.HTTPAddr)
	if err := listener.Start(srv.Routes()); err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}
	log.Printf("orbd listening on http://%s (db=%s auth=%v)", listener.Addr(), cfg.DBPath, token != "")

	select {
	case <-ctx.Done():
	case err := <-listener.Err():
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	log.Printf("orbd shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := listener.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-listener.Err()
}

// RunToken handles "token set <value> | show | clear".
func RunToken(cfg Config, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: orbd token set <value> | show | clear")
	}
	tokens := cfg.tokenStore()

	switch args[0] {
	case "set":
		if len(args) != 2 {
			return errors.New("usage: orbd token set <value>")
		}
		if err := tokens.SetToken(args[1]); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "token stored")
		return err
	case "show":
		token, err := tokens.Token()
		if errors.Is(err, secrets.ErrNotFound) {
			_, err = fmt.Fprintln(out, "no token stored")
			return err
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, token)
		return err
	case "clear":
		if err := tokens.Clear(); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "token cleared")
		return err
	default:
		return fmt.Errorf("unknown token command %q", args[0])
	}
}
