package main

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// daemonConfig holds clownfishd's own operational settings: where to bind
// its sockets, how big its worker pools are, where it keeps per-invocation
// workspaces. This is distinct from the cluster topology file that
// pkg/config/pkg/topology validate — this is the daemon's own tunables,
// layered from flags, environment variables, and an optional config file
// via cobra and viper.
type daemonConfig struct {
	ConfigPath string

	ConsoleAddr string
	PingAddr    string
	MetricsAddr string

	DataDir string
	LogDir  string

	WorkerCount    int
	MonitorTick    time.Duration
	SessionTimeout time.Duration
	ReapInterval   time.Duration

	SSHUser string

	LogLevel string
	LogJSON  bool
}

func bindDaemonFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("config", "/etc/clownfish/clownfish.yaml", "path to the cluster topology configuration file")
	flags.String("console-addr", "0.0.0.0:988", "bind address for the console session protocol")
	flags.String("ping-addr", "0.0.0.0:989", "bind address for session ping keepalives")
	flags.String("metrics-addr", "127.0.0.1:9090", "bind address for the /metrics and /healthz HTTP mux")
	flags.String("data-dir", "/var/lib/clownfish", "root directory for per-invocation workspaces")
	flags.String("log-dir", "/var/log/clownfish", "root directory for daemon logs")
	flags.Int("worker-count", 10, "number of session worker goroutines")
	flags.Duration("monitor-tick", time.Second, "interval between status probes for a single service")
	flags.Duration("session-timeout", 30*time.Second, "idle timeout after which a session is reaped")
	flags.Duration("reap-interval", 5*time.Second, "interval between idle-session reaper sweeps")
	flags.String("ssh-user", "root", "ssh user used to reach configured hosts")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "emit logs as JSON")

	viper.BindPFlag("config", flags.Lookup("config"))
	viper.BindPFlag("console_addr", flags.Lookup("console-addr"))
	viper.BindPFlag("ping_addr", flags.Lookup("ping-addr"))
	viper.BindPFlag("metrics_addr", flags.Lookup("metrics-addr"))
	viper.BindPFlag("data_dir", flags.Lookup("data-dir"))
	viper.BindPFlag("log_dir", flags.Lookup("log-dir"))
	viper.BindPFlag("worker_count", flags.Lookup("worker-count"))
	viper.BindPFlag("monitor_tick", flags.Lookup("monitor-tick"))
	viper.BindPFlag("session_timeout", flags.Lookup("session-timeout"))
	viper.BindPFlag("reap_interval", flags.Lookup("reap-interval"))
	viper.BindPFlag("ssh_user", flags.Lookup("ssh-user"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))
	viper.BindPFlag("log_json", flags.Lookup("log-json"))

	viper.SetEnvPrefix("clownfishd")
	viper.AutomaticEnv()
}

func loadDaemonConfig() daemonConfig {
	return daemonConfig{
		ConfigPath:     viper.GetString("config"),
		ConsoleAddr:    viper.GetString("console_addr"),
		PingAddr:       viper.GetString("ping_addr"),
		MetricsAddr:    viper.GetString("metrics_addr"),
		DataDir:        viper.GetString("data_dir"),
		LogDir:         viper.GetString("log_dir"),
		WorkerCount:    viper.GetInt("worker_count"),
		MonitorTick:    viper.GetDuration("monitor_tick"),
		SessionTimeout: viper.GetDuration("session_timeout"),
		ReapInterval:   viper.GetDuration("reap_interval"),
		SSHUser:        viper.GetString("ssh_user"),
		LogLevel:       viper.GetString("log_level"),
		LogJSON:        viper.GetBool("log_json"),
	}
}
