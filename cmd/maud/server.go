package main

import (
	"context"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mau-cards/maud/cmd/maud/shared"
	"github.com/mau-cards/maud/internal/server"
	"github.com/mau-cards/maud/internal/session"
)

// ServerCmd contains core server configuration
type ServerCmd struct {
	Config string `kong:"default='maud.hcl',help='Path to the HCL configuration file'"`
	Addr   string `kong:"help='Listen address, overrides the config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	JSON   bool   `kong:"help='Structured JSON logs instead of console output'"`
}

func (c *ServerCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)
	if c.JSON {
		logger = shared.SetupStructuredLogger(c.Debug)
	}

	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if c.Addr != "" {
		cfg.Server.Address, cfg.Server.Port = splitAddr(c.Addr, cfg.Server.Port)
	}

	var opts []server.Option
	if cfg.Server.ArchiveDir != "" {
		opts = append(opts, server.WithArchiver(session.NewFileArchiver(cfg.Server.ArchiveDir, logger)))
	}
	s := server.New(cfg, logger, opts...)

	logger.Info().
		Str("address", cfg.Addr()).
		Int("hand_size", cfg.Game.HandSize).
		Int("min_players", cfg.Game.MinPlayers).
		Bool("shotgun", cfg.Game.Shotgun).
		Bool("twist_hand", cfg.Game.TwistHand).
		Msg("Starting maud server")

	ctx := shared.SetupSignalHandler(logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(s.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// splitAddr breaks a host:port flag apart, keeping the fallback port
// when none is given
func splitAddr(addr string, fallbackPort int) (string, int) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, fallbackPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return host, fallbackPort
	}
	return host, port
}
