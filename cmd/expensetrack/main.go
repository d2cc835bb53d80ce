package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"

	"github.com/rumor-ml/expensetrack/internal/export"
	"github.com/rumor-ml/expensetrack/internal/ingest"
	"github.com/rumor-ml/expensetrack/internal/registry"
	"github.com/rumor-ml/expensetrack/internal/rules"
	"github.com/rumor-ml/expensetrack/internal/scanner"
	"github.com/rumor-ml/expensetrack/internal/server"
	"github.com/rumor-ml/expensetrack/internal/store"
	"github.com/rumor-ml/expensetrack/internal/ui"
)

const version = "0.1.0"

var (
	versionFlag = flag.Bool("version", false, "Show version")

	dbPath    = flag.String("db", "", "SQLite database path (default $EXPENSETRACK_DB or expensetrack.db)")
	rulesFile = flag.String("rules", "", "Category rules YAML file (default: embedded rules)")

	// Offline modes. Without either flag the API server starts.
	importDir  = flag.String("import", "", "Import statement files from a directory and exit")
	exportFile = flag.String("export", "", "Export all data to a JSON file and exit")
	localUser  = flag.String("user", "local", "User id for -import and -export")
)

func main() {
	_ = godotenv.Load()

	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `expensetrack - personal finance tracker

Usage:
  expensetrack [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # Start the API server
  expensetrack

  # Import statements from a directory without running the server
  expensetrack -import ~/statements

  # Dump everything to a JSON file
  expensetrack -export backup.json

`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("expensetrack version %s\n", version)
		os.Exit(0)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	path := *dbPath
	if path == "" {
		path = os.Getenv("EXPENSETRACK_DB")
	}
	if path == "" {
		path = "expensetrack.db"
	}
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", path, err)
	}
	defer st.Close()

	var engine *rules.Engine
	if *rulesFile != "" {
		engine, err = rules.LoadFromFile(*rulesFile)
		if err != nil {
			return fmt.Errorf("loading rules file: %w", err)
		}
	} else {
		engine, err = rules.LoadEmbedded()
		if err != nil {
			return fmt.Errorf("loading embedded rules: %w", err)
		}
	}

	reg := registry.New()

	switch {
	case *importDir != "":
		return runImport(ctx, st, reg, engine)
	case *exportFile != "":
		return runExport(ctx, st)
	default:
		return serve(ctx, st, reg, engine)
	}
}

// runImport walks the directory, parses every recognized statement file
// and runs the full ingestion pipeline for the local user.
func runImport(ctx context.Context, st *store.Store, reg *registry.Registry, engine *rules.Engine) error {
	ui.Header("Importing Statements")

	ui.Step(1, 2, "Scanning directory")
	results, err := scanner.New(*importDir, reg).Scan()
	if err != nil {
		return fmt.Errorf("scanning %s: %w", *importDir, err)
	}
	if len(results) == 0 {
		return fmt.Errorf("no statement files found in %s", *importDir)
	}
	ui.Success(fmt.Sprintf("Found %d statement files", len(results)))

	var files []ingest.File
	for _, r := range results {
		f, err := os.Open(r.Path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", r.Path, err)
		}
		defer f.Close()
		files = append(files, ingest.File{Name: r.Path, Content: f})
	}

	ui.Step(2, 2, "Parsing and importing")
	coordinator := ingest.NewCoordinator(st, reg, engine, nil)
	result, err := coordinator.Ingest(ctx, *localUser, files)
	if err != nil {
		return err
	}

	ui.Success(fmt.Sprintf("Imported %d transactions (%d duplicates skipped)", result.Inserted, result.Duplicates))
	for _, skipped := range result.SkippedFiles {
		ui.Warning(fmt.Sprintf("Skipped %s", skipped))
	}
	return nil
}

// runExport writes the user's full dataset to a JSON file.
func runExport(ctx context.Context, st *store.Store) error {
	bundle, err := export.Build(ctx, st, *localUser)
	if err != nil {
		return err
	}
	f, err := os.Create(*exportFile)
	if err != nil {
		return fmt.Errorf("creating %s: %w", *exportFile, err)
	}
	defer f.Close()
	if err := export.Write(f, bundle); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	ui.Success(fmt.Sprintf("Exported %d transactions to %s", len(bundle.Transactions), *exportFile))
	return nil
}

func serve(ctx context.Context, st *store.Store, reg *registry.Registry, engine *rules.Engine) error {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	projectID := os.Getenv("FIREBASE_PROJECT_ID")
	if projectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required to start the API server")
	}

	var opts []option.ClientOption
	if creds := os.Getenv("FIREBASE_CREDENTIALS"); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return fmt.Errorf("initializing Firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return fmt.Errorf("creating auth client: %w", err)
	}

	srv := server.New(st, reg, engine, authClient, os.Getenv("CORS_ORIGIN"))

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		fmt.Fprintf(os.Stderr, "Starting expensetrack server on port %s\n", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Fprintln(os.Stderr, "Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
