package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gathersync-dev/gathersync/pkg/api"
	"github.com/gathersync-dev/gathersync/pkg/feed"
)

func feedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed <event-id>",
		Short: "Fetch an event's feed, reconciled against the like cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(cmd, args[0])
		},
	}
	return cmd
}

func runFeed(cmd *cobra.Command, eventID string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	syncer := api.NewSyncer(newClient(cfg), cache)
	snapshot, err := syncer.SyncFeed(context.Background(), eventID, cfg.Username)
	if err != nil {
		return err
	}

	if len(snapshot.Posts) == 0 {
		info("no posts yet")
		return nil
	}

	printPosts(snapshot.Posts, 0)
	fmt.Printf("\n%d likes across the event\n", snapshot.Likes.Total)
	return nil
}

func printPosts(posts []feed.Post, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, p := range posts {
		marker := " "
		if p.LikedByViewer {
			marker = "♥"
		}
		fmt.Printf("%s#%d %s %s: %s (%d likes)\n",
			indent, p.ID, marker, p.AuthorID, p.Text, p.LikeCount)
		for _, url := range p.ImageURLs {
			fmt.Printf("%s    [image] %s\n", indent, url)
		}
		printPosts(p.Replies, depth+1)
	}
}
