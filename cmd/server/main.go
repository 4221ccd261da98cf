package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/infrastructure/config"
	"github.com/LLM-Dev-Ops/memory-graph-sub000/internal/infrastructure/server"
)

func main() {
	port := flag.String("port", "", "Server port (overrides PORT)")
	grpcPort := flag.String("grpc-port", "", "gRPC health port (overrides GRPC_PORT)")
	dev := flag.Bool("dev", false, "Development mode: console logs at debug level")
	mappingFile := flag.String("mapping", "", "Mapping rules file, .yaml/.toml/.json (overrides MAPPING_FILE)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *grpcPort != "" {
		cfg.Server.GRPCPort = *grpcPort
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}
	if *mappingFile != "" {
		cfg.Mapping.File = *mappingFile
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		log.Printf("Server error: %v", err)
		srv.Close()
		os.Exit(1)
	}
}
