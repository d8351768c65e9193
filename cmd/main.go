package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "climate_scheduler/docs"
	"climate_scheduler/internal/climate"
	"climate_scheduler/internal/handlers"
	"climate_scheduler/internal/logger"
	"climate_scheduler/internal/repository"
	"climate_scheduler/internal/repository/db"
	"climate_scheduler/internal/server"
	"climate_scheduler/internal/service"

	"github.com/spf13/viper"
)

// @title Climate Scheduler API
// @version 1.0
// @description Schedule resolution and application engine for climate entities.

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// init logger
	log := logger.Get(logger.InfoLevel)

	// load config.yml
	if err := loadConfig(); err != nil {
		log.Fatalw("error reading config", "err", err)
	}

	// open DB
	conn, err := openDB(log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Fatalw("failed to close sqlite", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(conn)
	ha := climate.NewHAClient(climate.Config{
		BaseURL:       viper.GetString("homeassistant.url"),
		Token:         viper.GetString("homeassistant.token"),
		WorkdayEntity: viper.GetString("homeassistant.workday_entity"),
	})
	hub := handlers.NewHub(log)

	services := service.NewService(repos, ha, ha, hub, service.NewClock(loadLocation(log)), log, service.Config{
		MinTemp:    viper.GetFloat64("engine.min_temp"),
		MaxTemp:    viper.GetFloat64("engine.max_temp"),
		TickSpec:   viper.GetString("engine.tick"),
		SigningKey: viper.GetString("auth.signing_key"),
	})
	apiHandler := handlers.NewHandler(services, hub, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// start the resolution tick
	go services.Runner.Run(ctx)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, viper.GetString("port"), apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

func loadConfig() error {
	viper.AddConfigPath("configs") // configs/config.yml
	viper.SetConfigName("config")
	return viper.ReadInConfig()
}

// loadLocation resolves the configured timezone; all minute-of-day
// arithmetic happens in this location.
func loadLocation(log *logger.Logger) *time.Location {
	name := viper.GetString("engine.timezone")
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Warnw("invalid timezone in config, using local", "timezone", name, "err", err)
		return time.Local
	}
	return loc
}

// openDB initializes the SQLite database using configuration.
func openDB(log *logger.Logger) (*sql.DB, error) {
	dbPath := viper.GetString("db.path")
	if dbPath == "" {
		log.Infow("db.path not set in config; using default file", "default", "scheduler.db")
		dbPath = "scheduler.db"
	}
	return db.InitDB(dbPath)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if port == "" {
			port = "8080"
		}
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalw("server forced to shutdown", "err", err)
	}
}
