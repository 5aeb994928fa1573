package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/LiXi-storage/clownfish/pkg/types"
)

func registerFS(sub *Subsystem) {
	sub.Register(&Command{
		Name:      "list",
		Speed:     AlwaysFast,
		Handler:   fsListHandler,
		Providers: []ArgumentProvider{fsOrServiceNameProvider},
	})
	sub.Register(&Command{
		Name:      "mount",
		Speed:     AlwaysSlow,
		Handler:   fsMountHandler,
		Providers: []ArgumentProvider{fsNameProvider},
	})
	sub.Register(&Command{
		Name:      "umount",
		Speed:     AlwaysSlow,
		Handler:   fsUmountHandler,
		Providers: []ArgumentProvider{fsNameProvider},
	})
	sub.Register(&Command{
		Name:      "dump",
		Speed:     AlwaysFast,
		Handler:   fsDumpHandler,
		Providers: []ArgumentProvider{fsNameProvider},
	})
	sub.Register(&Command{
		Name:    "help",
		Speed:   AlwaysFast,
		Handler: func(context.Context, *Dispatcher, Session, []string) *Result {
			return &Result{Stdout: "fs commands: list, mount, umount, dump, help", ExitCode: 0}
		},
	})
}

func fsNameProvider(d *Dispatcher, _ []string) []string {
	names := make([]string, 0, len(d.Topology.Filesystems))
	for name := range d.Topology.Filesystems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func fsOrServiceNameProvider(d *Dispatcher, tokens []string) []string {
	out := fsNameProvider(d, tokens)
	for name := range d.Topology.Services {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func fsListHandler(_ context.Context, d *Dispatcher, _ Session, args []string) *Result {
	if len(args) == 0 {
		var lines []string
		for name, fs := range d.Topology.Filesystems {
			lines = append(lines, fmt.Sprintf("%-16s mdts=%d osts=%d clients=%d", name, len(fs.MDTs), len(fs.OSTs), len(fs.Clients)))
		}
		sort.Strings(lines)
		return &Result{Stdout: strings.Join(lines, "\n"), ExitCode: 0}
	}

	var out []string
	for _, arg := range args {
		if fs, ok := d.Topology.Filesystems[arg]; ok {
			out = append(out, fmt.Sprintf("%s: mgs=%s mdts=%s osts=%s", arg, fs.MgsID, strings.Join(fs.MDTs, ","), strings.Join(fs.OSTs, ",")))
			continue
		}
		if svc, ok := d.Topology.Services[arg]; ok {
			out = append(out, fmt.Sprintf("%s: kind=%s back_store=%s", svc.Name, svc.Kind, svc.BackStore))
			continue
		}
		return &Result{Stderr: fmt.Sprintf("fs list: no such filesystem or service %q", arg), ExitCode: -1}
	}
	return &Result{Stdout: strings.Join(out, "\n"), ExitCode: 0}
}

func fsMountHandler(ctx context.Context, d *Dispatcher, _ Session, args []string) *Result {
	return fsBulkOp(ctx, d, args, d.Prober.Mount, "mounted")
}

func fsUmountHandler(ctx context.Context, d *Dispatcher, _ Session, args []string) *Result {
	return fsBulkOp(ctx, d, args, d.Prober.Umount, "unmounted")
}

func fsDumpHandler(_ context.Context, d *Dispatcher, _ Session, args []string) *Result {
	if len(args) != 1 {
		return &Result{Stderr: "usage: fs dump fsname", ExitCode: -1}
	}
	fs, ok := d.Topology.Filesystems[args[0]]
	if !ok {
		return &Result{Stderr: fmt.Sprintf("fs dump: no such filesystem %q", args[0]), ExitCode: -1}
	}
	if fs.QoS == nil {
		return &Result{Stdout: fmt.Sprintf("%s: no QoS policy configured", args[0]), ExitCode: 0}
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%s: enabled=%v global_iops=%.1f global_mbps=%.1f mds_rpc=%.1f oss_rpc=%.1f",
		args[0], fs.QoS.Enabled, fs.QoS.GlobalIOPSLimit, fs.QoS.GlobalMBpsLimit, fs.QoS.MDSRPCRateLimit, fs.QoS.OSSRPCRateLimit))
	uids := make([]int, 0, len(fs.QoS.Users))
	for uid := range fs.QoS.Users {
		uids = append(uids, uid)
	}
	sort.Ints(uids)
	for _, uid := range uids {
		u := fs.QoS.Users[uid]
		lines = append(lines, fmt.Sprintf("  uid=%d iops=%.1f mbps=%.1f", uid, u.IOPSLimit, u.MBpsLimit))
	}
	return &Result{Stdout: strings.Join(lines, "\n"), ExitCode: 0}
}

func fsBulkOp(ctx context.Context, d *Dispatcher, fsnames []string, op func(context.Context, *types.Service) error, verb string) *Result {
	if len(fsnames) == 0 {
		return &Result{Stderr: "usage: fs mount|umount fsname...", ExitCode: -1}
	}

	var svcs []*types.Service
	for _, fsname := range fsnames {
		fs, ok := d.Topology.Filesystems[fsname]
		if !ok {
			return &Result{Stderr: fmt.Sprintf("fs: no such filesystem %q", fsname), ExitCode: -1}
		}
		if fs.MgsID != "" {
			if mgs, ok := d.Topology.Services[fs.MgsID]; ok {
				svcs = append(svcs, mgs)
			}
		}
		for _, name := range fs.MDTs {
			if svc, ok := d.Topology.Services[name]; ok {
				svcs = append(svcs, svc)
			}
		}
		for _, name := range fs.OSTs {
			if svc, ok := d.Topology.Services[name]; ok {
				svcs = append(svcs, svc)
			}
		}
	}

	locked, err := acquireWriteLocks(ctx, svcs)
	if err != nil {
		return &Result{Stderr: err.Error(), ExitCode: -1}
	}
	defer releaseWriteLocks(locked)

	var failed []string
	for _, svc := range locked {
		if err := op(ctx, svc); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", svc.Name, err))
		}
	}
	if len(failed) > 0 {
		return &Result{Stderr: strings.Join(failed, "\n"), ExitCode: -1}
	}
	return &Result{Stdout: fmt.Sprintf("%s %d services", verb, len(locked)), ExitCode: 0}
}
