package ha

import (
	"context"
	"fmt"

	"github.com/LiXi-storage/clownfish/pkg/log"
	"github.com/LiXi-storage/clownfish/pkg/metrics"
	"github.com/LiXi-storage/clownfish/pkg/probe"
	"github.com/LiXi-storage/clownfish/pkg/types"
	"golang.org/x/sync/errgroup"
)

// DefaultFanOut bounds how many hosts a distribution step touches
// concurrently.
const DefaultFanOut = 8

// Config controls file locations and concurrency for a Bootstrapper.
type Config struct {
	CorosyncConfigPath     string // default "/etc/corosync/corosync.conf"
	AuthKeyPath            string // default "/etc/corosync/authkey"
	ClownfishConfigPath    string // where the cluster config file is copied on each host
	ClownfishConfigPayload []byte // the cluster config file's bytes, copied in lockstep with the membership file
	FanOut                 int
}

func (c Config) withDefaults() Config {
	if c.CorosyncConfigPath == "" {
		c.CorosyncConfigPath = "/etc/corosync/corosync.conf"
	}
	if c.AuthKeyPath == "" {
		c.AuthKeyPath = "/etc/corosync/authkey"
	}
	if c.ClownfishConfigPath == "" {
		c.ClownfishConfigPath = "/etc/clownfish/clownfish.conf"
	}
	if c.FanOut <= 0 {
		c.FanOut = DefaultFanOut
	}
	return c
}

// Bootstrapper drives the HA cluster bootstrap and teardown operations
// (spec.md §4.4) over a frozen Topology, a RemoteExec capability for
// commands and a FileCopier capability for artifact distribution.
// Bootstrapper satisfies pkg/dispatch's HABootstrapper interface.
type Bootstrapper struct {
	Topo  *types.Topology
	Exec  probe.RemoteExec
	Files FileCopier
	Cfg   Config
}

// New builds a Bootstrapper with Cfg's zero-valued fields defaulted.
func New(topo *types.Topology, exec probe.RemoteExec, files FileCopier, cfg Config) *Bootstrapper {
	return &Bootstrapper{Topo: topo, Exec: exec, Files: files, Cfg: cfg.withDefaults()}
}

// Bootstrap generates the membership config, distributes the
// authentication key and configuration files, starts corosync/pacemaker
// everywhere, and installs the resource graph — in that order, matching
// original_source/pyclownfish/corosync.py's ccl_config/ccl_start sequence.
func (b *Bootstrapper) Bootstrap(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.HABootstrapDuration)

	hosts := sortedHostIDs(b.Topo)
	if len(hosts) == 0 {
		return fmt.Errorf("ha: no hosts referenced by topology, nothing to bootstrap")
	}

	membership, err := BuildMembershipConfig(b.Topo, b.Topo.HighAvailability.BindNetAddr)
	if err != nil {
		metrics.HABootstrapFailuresTotal.WithLabelValues("membership").Inc()
		return fmt.Errorf("building membership config: %w", err)
	}

	first := hosts[0]
	if _, stderr, exitCode, err := b.Exec.Run(ctx, first, []string{"corosync-keygen", "--less-secure"}); err != nil || exitCode != 0 {
		metrics.HABootstrapFailuresTotal.WithLabelValues("keygen").Inc()
		return fmt.Errorf("generating authkey on %s (exit %d): %w %s", first, exitCode, err, stderr)
	}

	if err := b.distribute(ctx, hosts, first, membership); err != nil {
		metrics.HABootstrapFailuresTotal.WithLabelValues("distribute").Inc()
		return err
	}

	if err := b.startCluster(ctx, hosts, first); err != nil {
		metrics.HABootstrapFailuresTotal.WithLabelValues("start").Inc()
		return err
	}

	cmds, err := resourceGraphCommands(b.Topo)
	if err != nil {
		metrics.HABootstrapFailuresTotal.WithLabelValues("resource-graph").Inc()
		return err
	}
	for _, argv := range cmds {
		if _, stderr, exitCode, err := b.Exec.Run(ctx, first, argv); err != nil || exitCode != 0 {
			metrics.HABootstrapFailuresTotal.WithLabelValues("resource-graph").Inc()
			return fmt.Errorf("ha: command %v failed on %s (exit %d): %w %s", argv, first, exitCode, err, stderr)
		}
	}

	log.WithComponent("ha").Info().Int("hosts", len(hosts)).Msg("HA cluster bootstrapped")
	return nil
}

func (b *Bootstrapper) distribute(ctx context.Context, hosts []string, first, membership string) error {
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, b.Cfg.FanOut)

	for _, host := range hosts {
		host := host
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := b.Files.WriteFile(gctx, host, b.Cfg.CorosyncConfigPath, []byte(membership)); err != nil {
				return fmt.Errorf("writing corosync config to %s: %w", host, err)
			}
			if len(b.Cfg.ClownfishConfigPayload) > 0 {
				if err := b.Files.WriteFile(gctx, host, b.Cfg.ClownfishConfigPath, b.Cfg.ClownfishConfigPayload); err != nil {
					return fmt.Errorf("writing clownfish config to %s: %w", host, err)
				}
			}
			if host != first {
				if err := b.Files.CopyBetweenHosts(gctx, first, b.Cfg.AuthKeyPath, host, b.Cfg.AuthKeyPath); err != nil {
					return fmt.Errorf("copying authkey from %s to %s: %w", first, host, err)
				}
			}
			if _, stderr, exitCode, err := b.Exec.Run(gctx, host, []string{"systemctl", "enable", "corosync", "pacemaker"}); err != nil || exitCode != 0 {
				return fmt.Errorf("enabling autostart on %s (exit %d): %w %s", host, exitCode, err, stderr)
			}
			return nil
		})
	}
	return g.Wait()
}

func (b *Bootstrapper) startCluster(ctx context.Context, hosts []string, first string) error {
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, b.Cfg.FanOut)

	for _, host := range hosts {
		host := host
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			stopCorosyncBestEffort(gctx, b.Exec, host)
			if _, stderr, exitCode, err := b.Exec.Run(gctx, host, []string{"systemctl", "start", "corosync", "pacemaker"}); err != nil || exitCode != 0 {
				return fmt.Errorf("starting corosync/pacemaker on %s (exit %d): %w %s", host, exitCode, err, stderr)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if _, stderr, exitCode, err := b.Exec.Run(ctx, first, []string{"pcs", "resource", "clear"}); err != nil || exitCode != 0 {
		return fmt.Errorf("clearing pcs resources on %s (exit %d): %w %s", first, exitCode, err, stderr)
	}
	return nil
}

func stopCorosyncBestEffort(ctx context.Context, exec probe.RemoteExec, host string) {
	if _, _, exitCode, err := exec.Run(ctx, host, []string{"systemctl", "stop", "corosync"}); err == nil && exitCode == 0 {
		return
	}
	exec.Run(ctx, host, []string{"killall", "-9", "corosync"})
	exec.Run(ctx, host, []string{"systemctl", "stop", "corosync"})
}
