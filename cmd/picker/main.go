package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/divverma2003/convo-app/internal/apiclient"
	"github.com/divverma2003/convo-app/internal/config"
	"github.com/divverma2003/convo-app/internal/search"
	"github.com/divverma2003/convo-app/internal/tui"
	"github.com/divverma2003/convo-app/pkg/jwt"
	pkglog "github.com/divverma2003/convo-app/pkg/log"
)

func main() {
	modeFlag := flag.String("mode", "users", "picker mode: users, invite or create")
	channelFlag := flag.String("channel", "", "channel id to invite users to (invite mode)")
	flag.Parse()

	if err := run(*modeFlag, *channelFlag); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(modeName, channelID string) error {
	mode, err := tui.ParseMode(modeName)
	if err != nil {
		return err
	}
	if mode == tui.ModeInvite && channelID == "" {
		return fmt.Errorf("-channel is required in invite mode")
	}

	cfg, err := config.LoadPicker()
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("could not open log file: %w", err)
	}
	defer logFile.Close()
	cfg.Log.Output = logFile
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	viewerID, err := jwt.UnverifiedSubject(cfg.API.SessionToken)
	if err != nil {
		return fmt.Errorf("a valid session token is required (CONVO_SESSION_TOKEN): %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = pkglog.WithLogger(ctx, logger.With().Str(pkglog.FieldUserID, viewerID).Logger())

	client := apiclient.New(cfg.API.URL, cfg.API.SessionToken, cfg.API.Timeout)

	var exclude []string
	if mode == tui.ModeInvite {
		ch, err := client.GetChannel(ctx, channelID)
		if err != nil {
			return fmt.Errorf("failed to load channel %s: %w", channelID, err)
		}
		exclude = ch.Members
	}

	session, err := search.NewSession(client, search.Config{
		PageSize:        cfg.Search.PageSize,
		ViewerID:        viewerID,
		ExcludeIDs:      exclude,
		SyntheticPrefix: cfg.Search.SyntheticPrefix,
		Debounce:        cfg.Search.Debounce,
	})
	if err != nil {
		return err
	}
	defer session.Close()

	if err := client.Heartbeat(ctx); err != nil {
		logger.Warn().Err(err).Msg("presence heartbeat failed")
	}
	go heartbeat(ctx, client)

	model := tui.New(ctx, session, client, tui.Options{Mode: mode, ChannelID: channelID})
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	model.Subscribe(p.Send)

	logger.Info().Str("mode", mode.String()).Msg("picker started")
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}

	if ch := model.Result(); ch != nil {
		fmt.Printf("Opened channel %s (%d members)\n", ch.ID, len(ch.Members))
	}
	return nil
}

func heartbeat(ctx context.Context, client *apiclient.Client) {
	l := pkglog.Ctx(ctx)
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(ctx); err != nil {
				l.Warn().Err(err).Msg("presence heartbeat failed")
			}
		}
	}
}
