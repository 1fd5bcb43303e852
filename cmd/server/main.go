package main

import (
	"context"
	"flag"
	"fmt"
	"log" // Standard log for messages before/after zap is active
	"os"
	"os/signal"
	"syscall"

	"waste_ops_backend/internal/config"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "sync-users":
			runSyncUsers()
			return
		case "reindex-users":
			runReindexUsers(os.Args[2:])
			return
		case "serve":
		default:
			log.Fatalf("FATAL: unknown command %q (expected serve, sync-users or reindex-users)", os.Args[1])
		}
	}
	startServer()
}

func startServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("ERROR: Server failed: %v", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
	} else {
		log.Println("INFO: Server shutdown complete.")
	}
}

// runSyncUsers performs one manual reconciliation and exits non-zero if the
// identity list could not be fetched.
func runSyncUsers() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for sync: %v", err)
	}
	trigger, cleanup, err := initializeSyncTrigger(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize user sync: %v", err)
	}

	outcome, err := trigger.RunManual(context.Background())
	cleanup()
	if err != nil {
		log.Fatalf("FATAL: User sync failed: %v", err)
	}
	fmt.Println(outcome.Message())
}

// runReindexUsers rebuilds the users search index from the database.
func runReindexUsers(args []string) {
	fs := flag.NewFlagSet("reindex-users", flag.ExitOnError)
	batchSize := fs.Int("batch-size", 100, "Batch size for reindexing users")
	esRefresh := fs.String("es-refresh", "false", "Elasticsearch refresh policy (true, false, wait_for)")
	_ = fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration for reindex: %v", err)
	}
	users, cleanup, err := initializeUserService(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize user service: %v", err)
	}

	result, err := users.ReindexAll(context.Background(), *batchSize, *esRefresh)
	cleanup()
	if err != nil {
		log.Fatalf("FATAL: User reindex failed: %v", err)
	}
	fmt.Printf("User reindex completed: indexed=%d, failed=%d.\n", result.Indexed, result.Failed)
	if result.Failed > 0 {
		os.Exit(1)
	}
}
