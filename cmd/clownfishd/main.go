// Command clownfishd is the Clownfish management daemon: it loads a
// cluster topology, starts the Status & Repair Engine, and serves the
// console session protocol over which operators drive the cluster.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LiXi-storage/clownfish/pkg/config"
	"github.com/LiXi-storage/clownfish/pkg/dispatch"
	"github.com/LiXi-storage/clownfish/pkg/engine"
	"github.com/LiXi-storage/clownfish/pkg/ha"
	"github.com/LiXi-storage/clownfish/pkg/log"
	"github.com/LiXi-storage/clownfish/pkg/metrics"
	"github.com/LiXi-storage/clownfish/pkg/probe"
	"github.com/LiXi-storage/clownfish/pkg/session"
	"github.com/LiXi-storage/clownfish/pkg/topology"
	"github.com/LiXi-storage/clownfish/pkg/types"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
)

// Version, Commit and BuildTime are set via ldflags at build time.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "clownfishd",
	Short: "Clownfish cluster management daemon",
	Long: `clownfishd continuously monitors every configured service, drives
each toward its desired mounted state under a priority policy, and serves
a stateful console protocol for operators.`,
	Version: Version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"clownfishd version %s\nCommit: %s\nBuilt: %s\n", Version, Commit, BuildTime))
	bindDaemonFlags(rootCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg := loadDaemonConfig()

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogJSON,
	})
	logger := log.WithComponent("clownfishd")

	raw, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	topo, err := topology.Build(raw, cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("building topology: %w", err)
	}
	logger.Info().
		Int("hosts", len(topo.Hosts)).
		Int("services", len(topo.Services)).
		Int("filesystems", len(topo.Filesystems)).
		Msg("topology loaded")

	inst := types.NewInstance(topo)

	sshExec := probe.NewSSHRemoteExec(topo, cfg.SSHUser)
	prober := probe.New(sshExec)

	eng := engine.New(topo, prober, engine.Config{
		MonitorTick: cfg.MonitorTick,
		HAEnabled:   topo.HighAvailability.Native,
	})
	eng.Start()
	defer eng.Stop()

	collector := metrics.NewCollector(topo, eng)
	collector.Start()
	defer collector.Stop()

	haBootstrapper := ha.New(topo, sshExec, sshExec, ha.Config{})

	disp := dispatch.New(topo, inst, eng, prober, haBootstrapper, Version)

	sessSrv := session.NewServer(disp, session.Config{
		BaseDir:        cfg.DataDir,
		WorkerCount:    cfg.WorkerCount,
		SessionTimeout: cfg.SessionTimeout,
		ReapInterval:   cfg.ReapInterval,
	})

	consoleLn, err := net.Listen("tcp", cfg.ConsoleAddr)
	if err != nil {
		return fmt.Errorf("binding console listener on %s: %w", cfg.ConsoleAddr, err)
	}
	pingLn, err := net.Listen("tcp", cfg.PingAddr)
	if err != nil {
		return fmt.Errorf("binding ping listener on %s: %w", cfg.PingAddr, err)
	}

	sessSrv.Serve(consoleLn, pingLn)
	logger.Info().Str("console", cfg.ConsoleAddr).Str("ping", cfg.PingAddr).Msg("session server listening")

	metricsSrv := startMetricsServer(cfg.MetricsAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutting down")
	sessSrv.Stop()
	eng.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Info().Msg("shutdown complete")
	return nil
}

func startMetricsServer(addr string) *http.Server {
	r := mux.NewRouter()
	r.Handle("/metrics", metrics.Handler())
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithComponent("clownfishd").Error().Err(err).Msg("metrics server error")
		}
	}()
	log.WithComponent("clownfishd").Info().Str("addr", addr).Msg("metrics endpoint listening")
	return srv
}

func healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
