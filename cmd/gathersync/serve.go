package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/cobra"

	"github.com/gathersync-dev/gathersync/internal/devserver"
)

func serveCmd() *cobra.Command {
	var (
		listen  string
		blobDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the development backend",
		Long: `Run a self-contained backend for local development.

It serves the feed, comment, and like endpoints, the group-chat
WebSocket hub, image uploads, and /metrics. Issued access tokens
expire after the configured TTL so clients exercise their token
refresh path.

Examples:
  gathersync serve
  gathersync serve --listen=0.0.0.0:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, listen, blobDir)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Bind address (default from gathersync.json)")
	cmd.Flags().StringVar(&blobDir, "blob-dir", "", "Upload directory for the disk blob store")

	return cmd
}

func runServe(cmd *cobra.Command, listen, blobDir string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if listen == "" {
		listen = cfg.Dev.Listen
	}
	if blobDir == "" {
		blobDir = cfg.Dev.Blob.Dir
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	opts := devserver.Options{
		Addr:     listen,
		TokenTTL: time.Duration(cfg.Dev.TokenTTLSeconds) * time.Second,
		BlobDir:  blobDir,
		Logger:   logger,
	}

	if cfg.Dev.Blob.Backend == "s3" {
		s3opts := s3.Options{Region: cfg.Dev.Blob.Region}
		if cfg.Dev.Blob.Endpoint != "" {
			s3opts.BaseEndpoint = aws.String(cfg.Dev.Blob.Endpoint)
		}
		client := s3.New(s3opts)
		opts.Blobs = devserver.NewS3BlobStore(client, cfg.Dev.Blob.Bucket, "uploads")
	}

	srv, err := devserver.New(opts)
	if err != nil {
		return err
	}

	fmt.Printf("Development backend on http://%s\n", listen)
	info("feed      GET  /events/feed/{eventId}")
	info("comment   POST /events/comment/")
	info("like      POST /events/like/")
	info("chat      WS   /ws/group_chat/{eventId}/")
	info("metrics   GET  /metrics")

	return srv.Run(context.Background())
}
