package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	redisadapter "github.com/target/hookline/internal/adapters/redis"
	"github.com/target/hookline/internal/domain/model"
)

type tailOptions struct {
	Channels []string
	For      time.Duration
}

func runTail(cmdCtx *commandContext, args []string) (err error) {
	opts, err := parseTailFlags(args)
	if err != nil {
		return err
	}

	ctx := cmdCtx.Ctx
	if opts.For > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.For)
		defer cancel()
	}

	_, redisClient, err := connectInfraWithOptions(&connectInfraOptions{
		Ctx:       ctx,
		Logger:    cmdCtx.Logger,
		Config:    &cmdCtx.Config,
		WantRedis: true,
	})
	if err != nil {
		return err
	}
	if redisClient == nil {
		return errors.New("tail requires redis; fan-out is in process when redis is disabled")
	}
	defer func() {
		err = errors.Join(err, closeInfra(nil, redisClient))
	}()

	bus, err := redisadapter.NewBus(redisClient, redisadapter.BusOptions{
		Prefix: cmdCtx.Config.PubSub.ChannelPrefix,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return err
	}
	sub, err := bus.Subscribe(ctx, opts.Channels...)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	defer func() {
		err = errors.Join(err, sub.Close())
	}()

	cmdCtx.Logger.Info("tailing channels", "channels", opts.Channels)
	return printMessages(ctx, cmdCtx.Out, sub.Messages())
}

// printMessages writes one line per message until ctx ends or msgs closes.
func printMessages(ctx context.Context, w io.Writer, msgs <-chan model.BusMessage) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := writef(w, "%s\t%s\t%s\t%s\n",
				time.Now().UTC().Format(time.RFC3339), msg.Channel, msg.EventName, msg.Payload); err != nil {
				return fmt.Errorf("write message: %w", err)
			}
		}
	}
}

func parseTailFlags(args []string) (tailOptions, error) {
	fs := flag.NewFlagSet("tail", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts     tailOptions
		channels string
		tenant   string
		user     string
	)
	fs.StringVar(&channels, "channels", "", "Comma-separated raw channel names")
	fs.StringVar(&tenant, "tenant", "", "Tenant (location) id; subscribes to its tenant channel")
	fs.StringVar(&user, "user", "", "User id; subscribes to its user channel")
	fs.DurationVar(&opts.For, "for", 0, "Stop after this long (0 runs until interrupted)")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	for _, ch := range strings.Split(channels, ",") {
		if ch = strings.TrimSpace(ch); ch != "" {
			opts.Channels = append(opts.Channels, ch)
		}
	}
	if tenant = strings.TrimSpace(tenant); tenant != "" {
		opts.Channels = append(opts.Channels, model.TenantChannel(tenant))
	}
	if user = strings.TrimSpace(user); user != "" {
		opts.Channels = append(opts.Channels, model.UserChannel(user))
	}
	if len(opts.Channels) == 0 {
		return opts, errors.New("at least one of --channels, --tenant or --user is required")
	}
	if opts.For < 0 {
		return opts, errors.New("--for must not be negative")
	}
	return opts, nil
}
