package cmd

import (
	"context"
	"fmt"
	"os"
	"sg-explorer/config"
	"sg-explorer/logging"
	"sg-explorer/services"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
)

var rootCmd = &cobra.Command{
	Use:   "sg-explorer",
	Short: "Singapore points of interest, itineraries and recommendations",
	Long: `
sg-explorer serves the API behind the Singapore explorer app: nearby POIs,
itineraries, reviews and the Surprise Me survey that feeds recommendations.
It also carries the maintenance commands for the POI catalogue.
`,
	SilenceUsage: true,
}

var Version = "dev"

func Execute(version string) {
	Version = version
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the connections shared by every command.
type app struct {
	cfg   *config.Config
	mongo *mongo.Client
	db    *mongo.Database
	redis *redis.Client
	geo   *services.GeoService
}

// bootstrap loads configuration, configures logging and connects to the
// stores. The caller must Close the result.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	client, db, err := services.ConnectMongo(ctx, cfg.Mongo)
	if err != nil {
		return nil, err
	}
	rdb, err := services.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &app{
		cfg:   cfg,
		mongo: client,
		db:    db,
		redis: rdb,
		geo:   services.NewGeoService(db, rdb),
	}, nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		logging.Warn().Err(err).Msg("Closing Redis")
	}
	if err := a.mongo.Disconnect(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Disconnecting MongoDB")
	}
}

func newUserService(a *app) *services.UserService {
	return services.NewUserService(a.db, a.redis, a.cfg.Auth.JWTSecret)
}
