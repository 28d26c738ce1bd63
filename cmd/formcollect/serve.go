package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tbxark/formcollect/internal/config"
	"github.com/tbxark/formcollect/tools"
)

var version = "dev"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the form tools over MCP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("transport", "", "stdio or http")
	serveCmd.Flags().String("addr", "", "listen address of the http transport")
	_ = viper.BindPFlag("server.transport", serveCmd.Flags().Lookup("transport"))
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	handlers := tools.New(a.engine, a.forms, a.submissions,
		tools.WithDescriptions(a.cfg.Tools),
		tools.WithFetcher(a.fetcher),
	)
	server, err := tools.NewServer(ctx, handlers, a.cfg.Server.Name, version)
	if err != nil {
		return err
	}

	if a.cfg.Server.Transport == config.TransportStdio {
		slog.Info("serving mcp", "transport", "stdio")
		return server.Run(ctx, &mcp.StdioTransport{})
	}
	return serveHTTP(ctx, server, a.cfg.Server)
}

func serveHTTP(ctx context.Context, server *mcp.Server, cfg config.ServerConfig) error {
	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, handler)
	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("serving mcp", "transport", "http", "addr", cfg.Addr, "path", cfg.Path)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}
