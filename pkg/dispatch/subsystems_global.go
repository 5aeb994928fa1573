package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/LiXi-storage/clownfish/pkg/clownfisherr"
	"github.com/LiXi-storage/clownfish/pkg/types"
)

func registerGlobal(sub *Subsystem) {
	sub.Register(&Command{
		Name:    "help",
		Aliases: []string{"h"},
		Speed:   AlwaysFast,
		Handler: helpHandler,
	})
	sub.Register(&Command{
		Name:    "quit",
		Aliases: []string{"q"},
		Speed:   AlwaysFast,
		Handler: quitHandler,
	})
	sub.Register(&Command{
		Name:    "retval",
		Speed:   AlwaysFast,
		Handler: retvalHandler,
	})
	sub.Register(&Command{
		Name:    "version",
		Speed:   AlwaysFast,
		Handler: versionHandler,
	})
	sub.Register(&Command{
		Name:    "prepare",
		Speed:   AlwaysSlow,
		Handler: prepareHandler,
	})
	sub.Register(&Command{
		Name:    "format_all",
		Speed:   AlwaysSlow,
		Handler: formatAllHandler,
	})
	sub.Register(&Command{
		Name:    "mount_all",
		Speed:   AlwaysSlow,
		Handler: mountAllHandler,
	})
	sub.Register(&Command{
		Name:    "umount_all",
		Speed:   AlwaysSlow,
		Handler: umountAllHandler,
	})
}

func helpHandler(_ context.Context, d *Dispatcher, _ Session, args []string) *Result {
	if len(args) == 0 {
		var b strings.Builder
		b.WriteString("subsystems: ")
		b.WriteString(strings.Join(d.Registry.SubsystemNames(), ", "))
		return &Result{Stdout: b.String(), ExitCode: 0}
	}

	sub, ok := d.Registry.Lookup(args[0])
	if !ok {
		return &Result{Stderr: fmt.Sprintf("help: no such subsystem %q", args[0]), ExitCode: -1}
	}
	return &Result{Stdout: fmt.Sprintf("%s commands: %s", sub.Name, strings.Join(sub.CommandNames(), ", ")), ExitCode: 0}
}

func quitHandler(_ context.Context, _ *Dispatcher, sess Session, _ []string) *Result {
	sess.RequestQuit()
	return &Result{Stdout: "bye", ExitCode: 0}
}

func retvalHandler(_ context.Context, _ *Dispatcher, sess Session, _ []string) *Result {
	return &Result{Stdout: fmt.Sprintf("%d", sess.LastRetval()), ExitCode: 0}
}

func versionHandler(_ context.Context, d *Dispatcher, _ Session, _ []string) *Result {
	return &Result{Stdout: d.Version, ExitCode: 0}
}

func prepareHandler(ctx context.Context, d *Dispatcher, _ Session, _ []string) *Result {
	if d.HA == nil || d.Topology.HighAvailability.Native || !d.Topology.HighAvailability.Enabled {
		return &Result{Stdout: "nothing to prepare (HA disabled or native)", ExitCode: 0}
	}
	if err := d.HA.Bootstrap(ctx); err != nil {
		return &Result{Stderr: err.Error(), ExitCode: -1}
	}
	return &Result{Stdout: "HA cluster prepared", ExitCode: 0}
}

func formatAllHandler(ctx context.Context, d *Dispatcher, sess Session, args []string) *Result {
	forced := false
	for _, a := range args {
		if a == "-f" || a == "--force" {
			forced = true
		}
	}
	if !forced {
		answer, err := sess.Confirm(ctx, "format every configured service? [y/N] ")
		if err != nil {
			return &Result{Stderr: err.Error(), ExitCode: -1}
		}
		if !answer {
			return &Result{Stdout: "aborted", ExitCode: -1}
		}
	}

	svcs := allServices(d.Topology)
	locked, err := acquireWriteLocks(ctx, svcs)
	if err != nil {
		return &Result{Stderr: err.Error(), ExitCode: -1}
	}
	defer releaseWriteLocks(locked)

	var failed []string
	for _, svc := range locked {
		if sess.Aborted() {
			return &Result{Stderr: clownfisherr.NewAbortedByOperator("format_all").Error(), ExitCode: -1}
		}
		if err := d.Prober.Format(ctx, svc); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", svc.Name, err))
		}
	}
	if len(failed) > 0 {
		return &Result{Stderr: strings.Join(failed, "\n"), ExitCode: -1}
	}
	return &Result{Stdout: fmt.Sprintf("formatted %d services", len(locked)), ExitCode: 0}
}

func mountAllHandler(ctx context.Context, d *Dispatcher, sess Session, _ []string) *Result {
	return bulkMountOp(ctx, d, sess, d.Prober.Mount, "mounted")
}

func umountAllHandler(ctx context.Context, d *Dispatcher, sess Session, _ []string) *Result {
	return bulkMountOp(ctx, d, sess, d.Prober.Umount, "unmounted")
}

func bulkMountOp(ctx context.Context, d *Dispatcher, sess Session, op func(context.Context, *types.Service) error, verb string) *Result {
	svcs := allServices(d.Topology)
	locked, err := acquireWriteLocks(ctx, svcs)
	if err != nil {
		return &Result{Stderr: err.Error(), ExitCode: -1}
	}
	defer releaseWriteLocks(locked)

	var failed []string
	for _, svc := range locked {
		if sess.Aborted() {
			return &Result{Stderr: clownfisherr.NewAbortedByOperator(verb).Error(), ExitCode: -1}
		}
		if err := op(ctx, svc); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", svc.Name, err))
		}
	}
	if len(failed) > 0 {
		return &Result{Stderr: strings.Join(failed, "\n"), ExitCode: -1}
	}
	return &Result{Stdout: fmt.Sprintf("%s %d services", verb, len(locked)), ExitCode: 0}
}
