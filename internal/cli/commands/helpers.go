package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aki/mbx/internal/core/client"
	"github.com/aki/mbx/internal/core/config"
	"github.com/aki/mbx/internal/core/logger"
	"github.com/aki/mbx/internal/core/mailbox"
)

// openMailbox resolves the shared directory argument and loads its
// configuration.
func openMailbox(ctx context.Context, dir string) (mailbox.Paths, *config.Config, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return mailbox.Paths{}, nil, fmt.Errorf("shared directory does not exist: %s", dir)
	}
	if !info.IsDir() {
		return mailbox.Paths{}, nil, fmt.Errorf("not a directory: %s", dir)
	}

	paths := mailbox.NewPaths(dir)
	cfg, err := config.Load(ctx, paths)
	if err != nil {
		return mailbox.Paths{}, nil, err
	}
	return paths, cfg, nil
}

// newClient builds a host client for the mailbox at dir. A positive timeout
// overrides the configured send timeout.
func newClient(ctx context.Context, dir string, timeout time.Duration, log logger.Logger) (*client.Client, error) {
	paths, cfg, err := openMailbox(ctx, dir)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		cfg.SendTimeout = timeout
	}
	return client.New(mailbox.NewDirStore(), paths, cfg, mailbox.SystemClock(), log), nil
}
