package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/LiXi-storage/clownfish/pkg/types"
)

// serviceTierLabel mirrors pkg/engine's priority tier for display purposes
// only; the engine is the sole authority on election order.
func serviceTierLabel(svc *types.Service) string {
	switch {
	case svc.Kind == types.ServiceKindMGT:
		return "tier1"
	case svc.Kind == types.ServiceKindMDT && svc.IsMGS:
		return "tier1"
	case svc.Kind == types.ServiceKindMDT:
		return "tier2"
	default:
		return "tier3"
	}
}

func registerService(sub *Subsystem) {
	sub.Register(&Command{
		Name:      "move",
		Speed:     AlwaysSlow,
		Handler:   serviceMoveHandler,
		Providers: []ArgumentProvider{serviceNameProvider, hostNameProvider},
	})
	sub.Register(&Command{
		Name:      "umount",
		Speed:     AlwaysSlow,
		Handler:   serviceUmountHandler,
		Providers: []ArgumentProvider{serviceNameProvider},
	})
	sub.Register(&Command{
		Name:    "list-problems",
		Speed:   AlwaysFast,
		Handler: serviceListProblemsHandler,
	})
	sub.Register(&Command{
		Name:      "check",
		Speed:     AlwaysFast,
		Handler:   serviceCheckHandler,
		Providers: []ArgumentProvider{serviceNameProvider},
	})
}

func serviceNameProvider(d *Dispatcher, _ []string) []string {
	names := make([]string, 0, len(d.Topology.Services))
	for name := range d.Topology.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func hostNameProvider(d *Dispatcher, _ []string) []string {
	names := make([]string, 0, len(d.Topology.Hosts))
	for id := range d.Topology.Hosts {
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

func serviceMoveHandler(ctx context.Context, d *Dispatcher, _ Session, args []string) *Result {
	if len(args) != 2 {
		return &Result{Stderr: "usage: service move service-name hostname", ExitCode: -1}
	}
	svcName, hostID := args[0], args[1]

	svc, ok := d.Topology.Services[svcName]
	if !ok {
		return &Result{Stderr: fmt.Sprintf("service move: no such service %q", svcName), ExitCode: -1}
	}
	if _, known := d.Topology.Hosts[hostID]; !known {
		for id, h := range d.Topology.Hosts {
			if h.Hostname == hostID {
				hostID = id
				break
			}
		}
	}

	svc.Lock()
	defer svc.Unlock()

	var failed []string
	for _, inst := range svc.Instances {
		if inst.HostID == hostID {
			continue
		}
		if err := d.Prober.UmountOn(ctx, svc, inst.HostID); err != nil {
			failed = append(failed, fmt.Sprintf("umount %s: %v", inst.HostID, err))
		}
	}
	if err := d.Prober.MountOn(ctx, svc, hostID); err != nil {
		failed = append(failed, fmt.Sprintf("mount %s: %v", hostID, err))
	}

	if len(failed) > 0 {
		return &Result{Stderr: strings.Join(failed, "\n"), ExitCode: -1}
	}
	return &Result{Stdout: fmt.Sprintf("%s moved to %s", svcName, hostID), ExitCode: 0}
}

func serviceUmountHandler(ctx context.Context, d *Dispatcher, _ Session, args []string) *Result {
	if len(args) == 0 {
		return &Result{Stderr: "usage: service umount service-name...", ExitCode: -1}
	}

	var failed []string
	var ok []string
	for _, name := range args {
		svc, exists := d.Topology.Services[name]
		if !exists {
			failed = append(failed, fmt.Sprintf("%s: no such service", name))
			continue
		}
		svc.Lock()
		err := d.Prober.Umount(ctx, svc)
		svc.Unlock()
		if err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		ok = append(ok, name)
	}
	if len(failed) > 0 {
		return &Result{Stdout: strings.Join(ok, "\n"), Stderr: strings.Join(failed, "\n"), ExitCode: -1}
	}
	return &Result{Stdout: fmt.Sprintf("unmounted %d services", len(ok)), ExitCode: 0}
}

func serviceListProblemsHandler(_ context.Context, d *Dispatcher, _ Session, _ []string) *Result {
	if d.Engine == nil {
		return &Result{Stdout: "engine not running", ExitCode: 0}
	}
	names := d.Engine.ProblemNames()
	if len(names) == 0 {
		return &Result{Stdout: "no problems", ExitCode: 0}
	}

	var lines []string
	for _, name := range names {
		tierLabel := "tier3"
		if svc, ok := d.Topology.Services[name]; ok {
			tierLabel = serviceTierLabel(svc)
		}
		elapsed := "never repaired"
		if t, ok := d.Engine.LastRepairTime(name); ok {
			elapsed = time.Since(t).Round(time.Second).String() + " ago"
		}
		lines = append(lines, fmt.Sprintf("%-20s %s %s", name, tierLabel, elapsed))
	}
	return &Result{Stdout: strings.Join(lines, "\n"), ExitCode: 0}
}

func serviceCheckHandler(ctx context.Context, d *Dispatcher, _ Session, args []string) *Result {
	if len(args) != 1 {
		return &Result{Stderr: "usage: service check service-name", ExitCode: -1}
	}
	svc, ok := d.Topology.Services[args[0]]
	if !ok {
		return &Result{Stderr: fmt.Sprintf("service check: no such service %q", args[0]), ExitCode: -1}
	}
	status := d.Prober.Check(ctx, svc)
	return &Result{Stdout: fmt.Sprintf("%s: %s has_problem=%v", svc.Name, status.Kind, status.HasProblem), ExitCode: 0}
}
