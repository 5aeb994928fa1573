package dispatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/LiXi-storage/clownfish/pkg/clownfisherr"
	"github.com/LiXi-storage/clownfish/pkg/engine"
	"github.com/LiXi-storage/clownfish/pkg/log"
	"github.com/LiXi-storage/clownfish/pkg/metrics"
	"github.com/LiXi-storage/clownfish/pkg/probe"
	"github.com/LiXi-storage/clownfish/pkg/types"
)

// HABootstrapper is the narrow view of pkg/ha that the global "prepare"
// command needs. Defined here rather than importing pkg/ha to keep the
// dependency direction one-way (pkg/ha never needs to call back into
// dispatch).
type HABootstrapper interface {
	Bootstrap(ctx context.Context) error
}

// Dispatcher parses command lines and routes phrases into the registered
// subsystems, closing over the live topology, engine and prober handles
// every handler needs to act.
type Dispatcher struct {
	Registry *Registry
	Topology *types.Topology
	Instance *types.Instance
	Engine   *engine.Engine
	Prober   *probe.Prober
	HA       HABootstrapper
	Version  string
}

// New builds a Dispatcher with the default global/option/fs/service
// subsystems registered.
func New(topo *types.Topology, inst *types.Instance, eng *engine.Engine, prober *probe.Prober, ha HABootstrapper, version string) *Dispatcher {
	d := &Dispatcher{
		Registry: NewRegistry(),
		Topology: topo,
		Instance: inst,
		Engine:   eng,
		Prober:   prober,
		HA:       ha,
		Version:  version,
	}
	registerGlobal(d.Registry.Subsystem("global"))
	registerOption(d.Registry.Subsystem("option"))
	registerFS(d.Registry.Subsystem("fs"))
	registerService(d.Registry.Subsystem("service"))
	return d
}

// Run parses and evaluates one command line, short-circuiting on
// AND/OR and always continuing on CONT, per spec.md §4.2.
func (d *Dispatcher) Run(ctx context.Context, sess Session, line string) *Result {
	phrases, delimiters, err := parseLine(line)
	if err != nil {
		return &Result{Stderr: err.Error(), ExitCode: -1}
	}

	accum := &Result{}
	accum.appendPhrase(d.execPhrase(ctx, sess, phrases[0]))

	for i, delim := range delimiters {
		var run bool
		switch delim {
		case "AND":
			run = accum.ExitCode == 0
		case "OR":
			run = accum.ExitCode != 0
		case "CONT":
			run = true
		}
		if !run {
			continue
		}
		accum.appendPhrase(d.execPhrase(ctx, sess, phrases[i+1]))
	}
	return accum
}

func (d *Dispatcher) execPhrase(ctx context.Context, sess Session, phrase []string) *Result {
	subsystemName := "global"
	cmdName := phrase[0]
	args := phrase[1:]

	if sub, ok := d.Registry.Lookup(phrase[0]); ok {
		if len(phrase) < 2 {
			return &Result{Stderr: fmt.Sprintf("%s: missing command", phrase[0]), ExitCode: -1}
		}
		subsystemName = phrase[0]
		cmdName = phrase[1]
		args = phrase[2:]
		cmd, ok := sub.Command(cmdName)
		if !ok {
			return notFound(subsystemName, cmdName)
		}
		return d.invoke(ctx, sess, subsystemName, cmd, args)
	}

	sub, ok := d.Registry.Lookup("global")
	if !ok {
		return &Result{Stderr: "no global subsystem registered", ExitCode: -1}
	}
	cmd, ok := sub.Command(cmdName)
	if !ok {
		return notFound(subsystemName, cmdName)
	}
	return d.invoke(ctx, sess, subsystemName, cmd, args)
}

// invoke runs cmd's handler with command-dispatch metrics and logging
// wrapped around it, the same duration-timer-plus-structured-log pattern
// applied elsewhere to each reconciliation tick, here applied to one
// command instead.
func (d *Dispatcher) invoke(ctx context.Context, sess Session, subsystem string, cmd *Command, args []string) *Result {
	timer := metrics.NewTimer()
	result := cmd.Handler(ctx, d, sess, args)
	timer.ObserveDurationVec(metrics.CommandDuration, subsystem)

	status := "ok"
	if result.ExitCode != 0 {
		status = "error"
	}
	metrics.CommandsTotal.WithLabelValues(subsystem, status).Inc()

	logEvent := log.WithComponent("dispatch").Debug().Str("subsystem", subsystem).Str("command", cmd.Name).Int("exit_code", result.ExitCode)
	logEvent.Msg("command executed")

	return result
}

func notFound(subsystem, cmd string) *Result {
	return &Result{Stderr: fmt.Sprintf("%s: no such command %q", subsystem, cmd), ExitCode: -1}
}

// Complete returns candidate completions for the tokens typed so far, per
// spec.md §4.2's completion rules.
func (d *Dispatcher) Complete(tokens []string) []string {
	if len(tokens) == 0 {
		names := d.Registry.SubsystemNames()
		if g, ok := d.Registry.Lookup("global"); ok {
			names = append(names, g.CommandNames()...)
		}
		sort.Strings(names)
		return names
	}

	if len(tokens) == 1 {
		if sub, ok := d.Registry.Lookup(tokens[0]); ok {
			names := sub.CommandNames()
			sort.Strings(names)
			return names
		}
		if g, ok := d.Registry.Lookup("global"); ok {
			return prefixFilter(g.CommandNames(), tokens[0])
		}
		return nil
	}

	sub, cmdName, rest := "global", tokens[0], tokens[1:]
	if s, ok := d.Registry.Lookup(tokens[0]); ok {
		sub = tokens[0]
		if len(tokens) < 2 {
			return nil
		}
		cmdName = tokens[1]
		rest = tokens[2:]
		_ = s
	}

	s, ok := d.Registry.Lookup(sub)
	if !ok {
		return nil
	}
	cmd, ok := s.Command(cmdName)
	if !ok {
		return nil
	}
	var out []string
	for _, p := range cmd.Providers {
		out = append(out, p(d, rest)...)
	}
	return out
}

func prefixFilter(candidates []string, prefix string) []string {
	var out []string
	for _, c := range candidates {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// acquireWriteLocks takes the writer lock on every service, in name
// order, for the duration of a bulk operation. On failure to acquire any
// lock it releases everything already held, in reverse order, and
// returns a LockTimeout — this gives bulk ops a total order against
// single-service repair (spec.md §5).
func acquireWriteLocks(ctx context.Context, svcs []*types.Service) ([]*types.Service, error) {
	ordered := append([]*types.Service(nil), svcs...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	var acquired []*types.Service
	for _, svc := range ordered {
		if !tryLockWithContext(ctx, svc) {
			releaseWriteLocks(acquired)
			return nil, clownfisherr.NewLockTimeout(svc.Name)
		}
		acquired = append(acquired, svc)
	}
	return acquired, nil
}

func tryLockWithContext(ctx context.Context, svc *types.Service) bool {
	for {
		if svc.TryLock() {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func releaseWriteLocks(svcs []*types.Service) {
	for i := len(svcs) - 1; i >= 0; i-- {
		svcs[i].Unlock()
	}
}

func allServices(topo *types.Topology) []*types.Service {
	out := make([]*types.Service, 0, len(topo.Services))
	for _, svc := range topo.Services {
		out = append(out, svc)
	}
	return out
}
