package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/generalpiston/qpg/internal/daemonlifecycle"
	"github.com/generalpiston/qpg/internal/mcp"
	"github.com/generalpiston/qpg/internal/settings"
	"github.com/generalpiston/qpg/internal/store"
)

var (
	serveHTTPAddr string
	serveDaemon   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON-RPC tool server over stdio or HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveDaemon {
			return startDaemon(cmd)
		}
		if serveHTTPAddr != "" {
			return runHTTPServer(cmd, serveHTTPAddr)
		}
		return runStdioServer(cmd)
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a daemonized HTTP tool server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := daemonlifecycle.Stop(settings.StateDir()); err != nil {
			return fail(1, err)
		}
		return nil
	},
}

func runStdioServer(cmd *cobra.Command) error {
	st, err := openStore(false)
	if err != nil {
		return fail(4, err)
	}
	defer st.Close()

	embedder, err := resolveEmbedder(cmd.Context(), false)
	if err != nil {
		logger.Debugf("vector search disabled in tool server: %v", err)
		embedder = nil
	}

	d := mcp.NewDispatcher(buildHandlers(st, embedder))
	if err := mcp.ServeStdio(d, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
		return fail(4, err)
	}
	return nil
}

func runHTTPServer(cmd *cobra.Command, addr string) error {
	lock, err := daemonlifecycle.AcquireLock(settings.StateDir())
	if err != nil {
		return fail(4, err)
	}
	defer lock.Close()

	st, err := openStore(true)
	if err != nil {
		return fail(4, err)
	}
	defer st.Close()

	embedder, err := resolveEmbedder(cmd.Context(), false)
	if err != nil {
		logger.Debugf("vector search disabled in tool server: %v", err)
		embedder = nil
	}

	d := mcp.NewDispatcher(buildHandlers(st, embedder))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mcp.Handler(d),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Infof("tool server listening on %s", addr)
	if err := g.Wait(); err != nil {
		return fail(4, err)
	}
	return nil
}

func startDaemon(cmd *cobra.Command) error {
	stateDir := settings.StateDir()
	addr := serveHTTPAddr
	if addr == "" {
		addr = ":8533"
	}

	childArgs := []string{"serve", "--http", addr}
	if verbose {
		childArgs = append(childArgs, "--verbose")
	}

	if err := daemonlifecycle.Start(stateDir, childArgs); err != nil {
		return fail(4, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "daemon started, serving on %s\n", addr)
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "serve over HTTP at this address instead of stdio")
	serveCmd.Flags().BoolVar(&serveDaemon, "daemon", false, "spawn the HTTP server as a detached daemon")
	serveCmd.AddCommand(serveStopCmd)
	rootCmd.AddCommand(serveCmd)
}
