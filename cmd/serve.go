package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sg-explorer/logging"
	"sg-explorer/server"
	"sg-explorer/services"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var skipSeed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, skipSeed)
		},
	}
	cmd.Flags().BoolVar(&skipSeed, "skip-seed", false, "do not seed or reindex POIs on startup")
	return cmd
}

func init() {
	rootCmd.AddCommand(newServeCmd())
}

func serve(ctx context.Context, skipSeed bool) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	users := newUserService(a)
	itineraries := services.NewItineraryService(a.db, a.geo)
	reviews := services.NewReviewService(a.db, a.geo)
	survey := services.NewSurveyService(a.db, a.redis, a.geo)
	recommender := services.NewRecommendationService(a.geo, users, survey, a.cfg.Recommend)

	for name, ensure := range map[string]func(context.Context) error{
		"pois":        a.geo.EnsureIndexes,
		"users":       users.EnsureIndexes,
		"itineraries": itineraries.EnsureIndexes,
		"reviews":     reviews.EnsureIndexes,
		"swipes":      survey.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
		logging.Debug().Str("collection", name).Msg("Indexes ensured")
	}

	if !skipSeed {
		if err := a.geo.SeedIfEmpty(ctx, a.cfg.Seed.File); err != nil {
			return err
		}
	}

	router := server.NewRouter(a.cfg, server.Services{
		POIs:        a.geo,
		Users:       users,
		Itineraries: itineraries,
		Reviews:     reviews,
		Survey:      survey,
		Recommender: recommender,
		Checks: map[string]func(context.Context) error{
			"mongo": func(ctx context.Context) error { return a.mongo.Ping(ctx, readpref.Primary()) },
			"redis": func(ctx context.Context) error { return a.redis.Ping(ctx).Err() },
		},
	})

	srv := &http.Server{
		Addr:              a.cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", srv.Addr).Str("version", Version).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
