package main

import (
	"context"
	"flag"
	"log"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/open-sauced/pizza/activity/pkg/collector"
	"github.com/open-sauced/pizza/activity/pkg/common"
	"github.com/open-sauced/pizza/activity/pkg/config"
	"github.com/open-sauced/pizza/activity/pkg/database"
	"github.com/open-sauced/pizza/activity/pkg/github"
	"github.com/open-sauced/pizza/activity/pkg/output"
)

func main() {
	var logger *zap.Logger
	var err error

	// Initialize & parse flags
	var configPath string
	var outputPath string
	flag.StringVar(&configPath, "config", "", "path to .yaml file config")
	flag.StringVar(&outputPath, "output", "", "path of the csv file to write, overrides the config")
	debugMode := flag.Bool("debug", false, "run in debug mode")
	flag.Parse()

	if *debugMode {
		logger, err = zap.NewDevelopment()
		if err != nil {
			log.Fatalf("Could not initiate debug zap logger: %v", err)
		}
	} else {
		logger, err = zap.NewProduction()
		if err != nil {
			log.Fatalf("Could not initiate production zap logger: %v", err)
		}
	}

	sugarLogger := logger.Sugar()
	//nolint:errcheck
	defer sugarLogger.Sync()
	sugarLogger.Infof("initiated zap logger with level: %d", sugarLogger.Level())

	// Load the environment variables from the .env file
	err = godotenv.Load()
	if err != nil {
		sugarLogger.Warnf("Failed to load the dot env file. Continuing with existing environment: %v", err)
	}

	// The API token is required, every request is authenticated with it
	token := os.Getenv("GITHUB_API_TOKEN")
	if token == "" {
		sugarLogger.Fatal("must specify the GITHUB_API_TOKEN env variable")
	}

	// Initializes configuration using a provided yaml file, or the built-in
	// repository list otherwise
	cfg := config.Default()
	if configPath != "" {
		cfg, err = config.Load(configPath)
		if err != nil {
			sugarLogger.Fatalf("Could not load configuration: %s", err.Error())
		}
		sugarLogger.Infof("Configuration for collector was set using yaml file")
	}

	if outputPath != "" {
		cfg.Output = outputPath
	}

	err = cfg.Normalize()
	if err != nil {
		sugarLogger.Fatalf("Invalid configuration: %s", err.Error())
	}

	ctx := context.Background()

	clientOpts := []github.Option{
		github.WithPerPage(cfg.PerPage),
		github.WithState(cfg.State),
	}
	if apiURL := os.Getenv("GITHUB_API_URL"); apiURL != "" {
		baseURL, err := url.Parse(apiURL)
		if err != nil {
			sugarLogger.Fatalf("Could not parse GITHUB_API_URL: %s", err.Error())
		}
		clientOpts = append(clientOpts, github.WithBaseURL(baseURL))
	}
	githubClient := github.NewTokenClient(ctx, token, sugarLogger, clientOpts...)

	sinks := []collector.Sink{output.NewCSVFile(cfg.Output, sugarLogger)}

	// User specify which database, if any, also receives the dataset
	switch driver := os.Getenv("DATABASE_DRIVER"); driver {
	case "":
		sugarLogger.Infof("No DATABASE_DRIVER set, writing csv only")
	case database.DriverPostgres:
		sugarLogger.Infof("Initiating postgres activity sink")
		dsn := database.PostgresDSN(
			os.Getenv("DATABASE_HOST"),
			os.Getenv("DATABASE_PORT"),
			os.Getenv("DATABASE_USER"),
			os.Getenv("DATABASE_PASSWORD"),
			os.Getenv("DATABASE_DBNAME"),
			os.Getenv("DATABASE_SSLMODE"),
		)
		db, err := database.NewActivityDbHandler(ctx, driver, dsn)
		if err != nil {
			sugarLogger.Fatalf("Could not create the postgres sink: %s", err.Error())
		}
		defer db.Close()
		sinks = append(sinks, db)
	case database.DriverSqlite:
		sugarLogger.Infof("Initiating sqlite activity sink")
		databasePath := os.Getenv("DATABASE_PATH")
		if databasePath == "" {
			sugarLogger.Fatal("must specify the DATABASE_PATH env variable for the sqlite driver")
		}
		db, err := database.NewActivityDbHandler(ctx, driver, databasePath)
		if err != nil {
			sugarLogger.Fatalf("Could not create the sqlite sink: %s", err.Error())
		}
		defer db.Close()
		sinks = append(sinks, db)
	default:
		sugarLogger.Fatalf("unsupported DATABASE_DRIVER %q (i.e. postgres, sqlite)", driver)
	}

	activityCollector := collector.NewCollector(githubClient, cfg, sugarLogger, sinks...)
	if cfg.VerifyRemotes {
		activityCollector.WithRemoteCheck(common.IsValidGitRepo)
	}

	report, err := activityCollector.Run(ctx)
	if err != nil {
		sugarLogger.Fatalf("Activity collection failed: %s", err.Error())
	}

	if !report.Dataset.Complete {
		sugarLogger.Warnf("Dataset %s is missing items from %d truncated endpoints", report.Dataset.RunID, len(report.Truncated))
	}
}
