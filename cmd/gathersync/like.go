package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gathersync-dev/gathersync/pkg/api"
	"github.com/gathersync-dev/gathersync/pkg/feed"
	"github.com/gathersync-dev/gathersync/pkg/likecache"
)

func likeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "like <event-id> <post-id>",
		Short: "Toggle a like on a post",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("post id %q is not a number", args[1])
			}
			return runLike(cmd, args[0], feed.PostID(postID))
		},
	}
	return cmd
}

func runLike(cmd *cobra.Command, eventID string, postID feed.PostID) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	cache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	ctx := context.Background()
	result, err := newClient(cfg).ToggleLike(ctx, api.LikeRequest{
		Username: cfg.Username,
		EventID:  eventID,
		PostID:   postID,
	})
	if err != nil {
		return err
	}

	// Record the confirmed state so the next feed fetch reconciles
	// against it.
	if err := cache.Put(ctx, eventID, postID, likecache.Entry{
		LikeCount: result.TotalLikes,
		Liked:     result.Liked,
	}); err != nil {
		return fmt.Errorf("update like cache: %w", err)
	}

	if result.Liked {
		success("liked #%d (%d total)", int64(postID), result.TotalLikes)
	} else {
		success("unliked #%d (%d total)", int64(postID), result.TotalLikes)
	}
	return nil
}
