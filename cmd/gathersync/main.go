package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/gathersync-dev/gathersync/internal/config"
	"github.com/gathersync-dev/gathersync/pkg/api"
	"github.com/gathersync-dev/gathersync/pkg/auth"
	"github.com/gathersync-dev/gathersync/pkg/likecache"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gathersync",
		Short: "Event feed, likes, and group chat from the command line",
		Long: `Gathersync synchronizes an event's social feed with its backend.

Feed fetches are reconciled against a persistent like cache, posts and
likes apply optimistically, and group chat streams over a WebSocket.
The serve command runs a self-contained development backend.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", ".",
		"Directory containing gathersync.json")

	rootCmd.AddCommand(
		serveCmd(),
		feedCmd(),
		postCmd(),
		likeCmd(),
		chatCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// loadConfig reads gathersync.json from the --config directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dir, _ := cmd.Flags().GetString("config")
	return config.Load(dir)
}

// openCache builds the like cache selected by the config. The caller owns
// Close.
func openCache(cfg *config.Config) (*likecache.Cache, error) {
	var store likecache.Store
	switch cfg.Cache.Backend {
	case "", "memory":
		store = likecache.NewMemoryStore()

	case "file":
		fs, err := likecache.NewFileStore(cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("open file cache: %w", err)
		}
		store = fs

	case "sqlite":
		db, err := sql.Open("sqlite", cfg.Cache.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite cache: %w", err)
		}
		ss := likecache.NewSQLStore(db, likecache.WithSQLDialect(likecache.DialectSQLite))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ss.InitSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("init sqlite schema: %w", err)
		}
		store = ss

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr: cfg.Cache.RedisAddr,
			DB:   cfg.Cache.RedisDB,
		})
		store = likecache.NewRedisStore(client)

	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}

	return likecache.New(store), nil
}

// newClient builds the API client from the config, attaching the bearer
// token when one is configured.
func newClient(cfg *config.Config) *api.Client {
	opts := []api.ClientOption{}
	if cfg.Backend.Token != "" {
		opts = append(opts, api.WithTokenSource(auth.NewStaticTokenSource(cfg.Backend.Token)))
	}
	if cfg.Backend.TimeoutSeconds > 0 {
		opts = append(opts, api.WithHTTPClient(&http.Client{
			Timeout: time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		}))
	}
	return api.NewClient(cfg.Backend.URL, opts...)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}
