package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gathersync-dev/gathersync/pkg/chat"
)

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat <event-id>",
		Short: "Join an event's group chat",
		Long: `Join an event's group chat. Lines typed on stdin are sent as the
configured user; incoming messages print as they arrive. Messages sent
while disconnected are lost, and history from before joining is not
replayed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, args[0])
		},
	}
	return cmd
}

func runChat(cmd *cobra.Command, eventID string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	channel := chat.NewChannel(cfg.Backend.URL, eventID, cfg.Username,
		chat.WithHandler(func(m chat.Message) {
			fmt.Printf("[%s] %s\n", m.Sender, m.Text)
		}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := channel.Connect(ctx); err != nil {
		return err
	}
	defer channel.Disconnect()

	success("joined chat for event %s as %s (ctrl-d to leave)", eventID, cfg.Username)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if err := channel.Send(line); err != nil {
				return err
			}
		}
	}
}
