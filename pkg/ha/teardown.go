package ha

import (
	"context"
	"fmt"

	"github.com/LiXi-storage/clownfish/pkg/log"
	"github.com/LiXi-storage/clownfish/pkg/metrics"
	"github.com/LiXi-storage/clownfish/pkg/probe"
	"golang.org/x/sync/errgroup"
)

// Teardown destroys the cluster on every referenced host concurrently,
// best-effort: a host whose "pcs cluster destroy" fails is retried once
// after a "killall -9 corosync", matching
// original_source/pyclownfish/corosync.py's lcc_cleanup. A host that still
// fails after the retry fails the whole teardown.
func (b *Bootstrapper) Teardown(ctx context.Context) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.HATeardownDuration)

	hosts := sortedHostIDs(b.Topo)
	if len(hosts) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, b.Cfg.FanOut)

	for _, host := range hosts {
		host := host
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()
			return destroyClusterBestEffort(gctx, b.Exec, host)
		})
	}

	if err := g.Wait(); err != nil {
		metrics.HABootstrapFailuresTotal.WithLabelValues("teardown").Inc()
		return err
	}

	log.WithComponent("ha").Info().Int("hosts", len(hosts)).Msg("HA cluster torn down")
	return nil
}

func destroyClusterBestEffort(ctx context.Context, exec probe.RemoteExec, host string) error {
	if _, _, exitCode, err := exec.Run(ctx, host, []string{"pcs", "cluster", "destroy"}); err == nil && exitCode == 0 {
		return nil
	}

	exec.Run(ctx, host, []string{"killall", "-9", "corosync"})

	_, stderr, exitCode, err := exec.Run(ctx, host, []string{"pcs", "cluster", "destroy"})
	if err != nil || exitCode != 0 {
		return fmt.Errorf("ha: failed to destroy cluster on %s after retry (exit %d): %w %s", host, exitCode, err, stderr)
	}
	return nil
}
