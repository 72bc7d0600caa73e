package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/castkit/uploadd/internal/s3log"
	"github.com/castkit/uploadd/pkg/channeldb"
	"github.com/castkit/uploadd/pkg/handler"
	"github.com/castkit/uploadd/pkg/objstore"
)

// Serve builds the object store gateway, channel database and HTTP
// handler from the parsed flags and environment, then serves until a
// termination signal arrives.
func Serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeConfig, err := objstore.ConfigFromEnv()
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid object store configuration")
	}

	store, err := objstore.NewStore(ctx, storeConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create object store client")
	}
	store.PresignTTL = Flags.PresignTTL
	if Flags.VerboseOutput {
		store.Service = s3log.New(store.Service, logger)
		store.Presigner = s3log.NewPresign(store.Presigner, logger)
	}

	channels, err := channeldb.Open(Flags.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", Flags.DatabasePath).Msg("Unable to open channel database")
	}
	defer channels.Close()

	if Flags.JwtPublicKeyFile == "" {
		logger.Fatal().Msg("The -jwt-public-key flag is required")
	}
	pub, err := os.ReadFile(Flags.JwtPublicKeyFile)
	if err != nil {
		logger.Fatal().Err(err).Str("path", Flags.JwtPublicKeyFile).Msg("Unable to read JWT public key")
	}
	auth, err := handler.NewJwtAuthenticator(pub)
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to parse JWT public key")
	}

	uploadHandler, err := handler.New(handler.Config{
		Store:       store,
		Bucket:      storeConfig.Bucket,
		Channels:    channels,
		Auth:        auth,
		Logger:      &logger,
		ListMaxKeys: int32(Flags.ListMaxKeys),
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create handler")
	}

	basepath := Flags.Basepath
	if !strings.HasSuffix(basepath, "/") {
		basepath += "/"
	}

	mux := http.NewServeMux()
	if basepath == "/" {
		mux.Handle("/", uploadHandler)
	} else {
		mux.Handle(basepath, http.StripPrefix(strings.TrimSuffix(basepath, "/"), uploadHandler))
	}

	if Flags.ExposeMetrics {
		SetupMetrics(mux, store, uploadHandler)
	}
	if Flags.ExposePprof {
		SetupPprof(mux)
	}

	var listener net.Listener
	if Flags.HttpSock != "" {
		listener, err = NewUnixListener(Flags.HttpSock, Flags.NetworkTimeout, Flags.NetworkTimeout)
		if err == nil {
			logger.Info().Str("socket", Flags.HttpSock).Msg("Listening on UNIX socket")
		}
	} else {
		address := Flags.HttpHost + ":" + Flags.HttpPort
		listener, err = NewListener(address, Flags.NetworkTimeout, Flags.NetworkTimeout)
		if err == nil {
			logger.Info().
				Str("address", address).
				Str("basepath", basepath).
				Str("bucket", storeConfig.Bucket).
				Msg("Listening")
		}
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Unable to create listener")
	}

	server := &http.Server{Handler: mux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), Flags.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Unable to serve")
	}
}
