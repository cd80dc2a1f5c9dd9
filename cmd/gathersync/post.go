package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gathersync-dev/gathersync/pkg/api"
	"github.com/gathersync-dev/gathersync/pkg/feed"
)

func postCmd() *cobra.Command {
	var (
		replyTo  int64
		imageURL []string
	)

	cmd := &cobra.Command{
		Use:   "post <event-id> <text>",
		Short: "Create a post or a reply",
		Long: `Create a top-level post, or a reply with --reply-to.

Examples:
  gathersync post 42 "Who's coming tonight?"
  gathersync post 42 "I am!" --reply-to=7
  gathersync post 42 "Look at this" --image=/blobs/abc.png`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPost(cmd, args[0], args[1], replyTo, imageURL)
		},
	}

	cmd.Flags().Int64Var(&replyTo, "reply-to", 0, "Parent post id to reply to")
	cmd.Flags().StringArrayVar(&imageURL, "image", nil, "Image URL to attach (repeatable)")

	return cmd
}

func runPost(cmd *cobra.Command, eventID, text string, replyTo int64, imageURLs []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	req := api.CommentRequest{
		Username:  cfg.Username,
		EventID:   eventID,
		Text:      text,
		ImageURLs: imageURLs,
	}
	if replyTo != 0 {
		parent := feed.PostID(replyTo)
		req.ParentID = &parent
	}

	post, err := newClient(cfg).CreateComment(context.Background(), req)
	if err != nil {
		return err
	}

	if req.ParentID != nil {
		success("replied to #%d as #%d", replyTo, int64(post.ID))
	} else {
		success("posted #%d", int64(post.ID))
	}
	return nil
}
