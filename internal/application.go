package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-peer/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-peer/internal/config"
	"github.com/rocketscienceinc/tictactoe-peer/internal/entity"
	"github.com/rocketscienceinc/tictactoe-peer/internal/peer"
	"github.com/rocketscienceinc/tictactoe-peer/internal/repository"
	"github.com/rocketscienceinc/tictactoe-peer/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-peer/internal/service"
	"github.com/rocketscienceinc/tictactoe-peer/internal/session"
	"github.com/rocketscienceinc/tictactoe-peer/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-peer/transport/rest"
	"github.com/rocketscienceinc/tictactoe-peer/transport/tcp"
	"github.com/rocketscienceinc/tictactoe-peer/transport/websocket"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	observers := []usecase.Observer{func(snapshot entity.Snapshot) {
		log.Debug("board updated", "sessionID", snapshot.SessionID, "cells", snapshot.Board.Cells,
			"turn", snapshot.Board.Turn, "status", snapshot.Board.Status, "linkClosed", snapshot.LinkClosed)
	}}

	var mirror *usecase.SnapshotMirror

	if conf.Redis.Enabled {
		redisStorage, err := storage.NewRedisStorage(ctx, conf.Redis.GetRedisAddr())
		if err != nil {
			return fmt.Errorf("could not connect to redis storage: %w", err)
		}

		defer func() {
			if err = redisStorage.Close(); err != nil {
				log.Error("could not close redis storage", "error", err)
			}
		}()

		snapshotRepo := repository.NewSnapshotRepository(redisStorage.Connection, conf.Redis.SnapshotTTL)
		mirror = usecase.NewSnapshotMirror(logger, snapshotRepo)
		observers = append(observers, mirror.Observe)
	}

	sess, err := newSession(ctx, logger, conf, fanOut(observers))
	if err != nil {
		return err
	}

	log = log.With("sessionID", sess.ID())

	mirrorDone := make(chan struct{})
	if mirror != nil {
		mirrorCtx, stopMirror := context.WithCancel(context.Background())
		go func() {
			defer close(mirrorDone)
			mirror.Run(mirrorCtx, sess.ID())
		}()

		defer func() {
			stopMirror()
			<-mirrorDone
		}()
	}

	go func() {
		if runErr := sess.Run(ctx); runErr != nil {
			log.Error("session stopped", "error", runErr)
		}
	}()
	defer sess.Close()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(ctx, conf.HTTPPort, rest.NewRouter(logger, sess)); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-sess.Done():
		log.Info("Session closed, shutting down")
		return nil
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newSession - builds the session for the configured mode. Networked modes block until the peer
// link is up.
func newSession(ctx context.Context, logger *slog.Logger, conf *config.Config, observer usecase.Observer) (*session.Session, error) {
	switch conf.Mode {
	case config.ModeBot:
		bot := service.NewBotService(conf.Bot.MaxDepth)
		return session.NewBot(logger, bot, entity.Mark(conf.Bot.Mark), observer), nil
	case config.ModeHost:
		channel, err := hostChannel(ctx, logger, conf.Network)
		if err != nil {
			return nil, err
		}
		return session.NewNetworked(logger, channel, observer), nil
	case config.ModeJoin:
		channel, err := joinChannel(ctx, logger, conf.Network)
		if err != nil {
			return nil, err
		}
		return session.NewNetworked(logger, channel, observer), nil
	default:
		return session.NewLocal(logger, observer), nil
	}
}

func hostChannel(ctx context.Context, logger *slog.Logger, conf config.Network) (*peer.Channel, error) {
	var (
		listener peer.Listener
		err      error
	)

	switch conf.Transport {
	case config.TransportWebsocket:
		listener, err = websocket.Listen(logger, conf.ListenPort)
	default:
		listener, err = tcp.Listen(conf.ListenPort)
	}

	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrListen, err)
	}

	channel := peer.NewChannel(logger, conf.HandshakeTimeout)

	// the host takes whoever is to move on its board; a new board starts with X
	if err = channel.Host(ctx, listener, entity.NewBoard().Turn); err != nil {
		return nil, fmt.Errorf("failed to host a game: %w", err)
	}

	return channel, nil
}

func joinChannel(ctx context.Context, logger *slog.Logger, conf config.Network) (*peer.Channel, error) {
	var dialer peer.Dialer

	switch conf.Transport {
	case config.TransportWebsocket:
		dialer = websocket.NewDialer(conf.ConnectTimeout)
	default:
		dialer = tcp.NewDialer(conf.ConnectTimeout)
	}

	channel := peer.NewChannel(logger, conf.HandshakeTimeout)

	if err := channel.Join(ctx, dialer, conf.PeerAddr); err != nil {
		return nil, fmt.Errorf("failed to join a game: %w", err)
	}

	return channel, nil
}

func fanOut(observers []usecase.Observer) usecase.Observer {
	return func(snapshot entity.Snapshot) {
		for _, observer := range observers {
			observer(snapshot)
		}
	}
}
