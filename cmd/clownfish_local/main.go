// Command clownfish_local is the offline lookup and local-service control
// CLI described in spec.md §6:
//
//	clownfish_local [-c config] [-d logdir] locate <service> [hostname] | start <service…> | stop <service…>
//
// "locate" is purely offline: it loads and validates the cluster topology
// and resolves the lookup itself, with no connection to a running daemon.
// "start" and "stop" connect to the daemon's console socket and issue
// "service move"/"service umount" commands for each named service,
// grounded on original_source/pyclownfish/clownfish_local.py's
// _clownfish_local_main_start.
package main

import (
	"fmt"
	"os"

	"github.com/LiXi-storage/clownfish/pkg/config"
	"github.com/LiXi-storage/clownfish/pkg/lookup"
	"github.com/LiXi-storage/clownfish/pkg/session"
	"github.com/LiXi-storage/clownfish/pkg/topology"
)

const defaultConfigPath = "/etc/clownfish/clownfish.yaml"

func main() {
	os.Exit(run(os.Args[1:]))
}

type options struct {
	configPath  string
	consoleAddr string
	command     string
	args        []string
}

func run(argv []string) int {
	opts, err := parseOptions(argv)
	if err != nil {
		usage()
		fmt.Fprintln(os.Stderr, "clownfish_local:", err)
		return 1
	}

	switch opts.command {
	case "locate":
		return runLocate(opts)
	case "start":
		return runMove(opts, opts.args, true)
	case "stop":
		return runMove(opts, opts.args, false)
	default:
		usage()
		return 1
	}
}

func parseOptions(argv []string) (*options, error) {
	opts := &options{configPath: defaultConfigPath, consoleAddr: "127.0.0.1:988"}

	i := 0
	for i < len(argv) {
		switch argv[i] {
		case "-c", "--config":
			if i+1 >= len(argv) {
				return nil, fmt.Errorf("%s requires a value", argv[i])
			}
			opts.configPath = argv[i+1]
			i += 2
		case "-d", "--logdir":
			if i+1 >= len(argv) {
				return nil, fmt.Errorf("%s requires a value", argv[i])
			}
			// logdir is accepted for CLI-surface compatibility; this
			// implementation logs to stderr only.
			i += 2
		case "-h", "--help":
			return nil, fmt.Errorf("help requested")
		default:
			goto positional
		}
	}
positional:
	if i >= len(argv) {
		return nil, fmt.Errorf("no command specified")
	}
	opts.command = argv[i]
	opts.args = argv[i+1:]
	return opts, nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: clownfish_local [--config|-c <config>] [--logdir|-d <logdir>] <command> [arg...]
  command: one of the following commands:
    locate <service> [hostname]
    start <service>...
    stop <service>...
`)
}

func runLocate(opts *options) int {
	if len(opts.args) == 0 || len(opts.args) > 2 {
		usage()
		return 1
	}
	serviceName := opts.args[0]
	hostname := ""
	if len(opts.args) == 2 {
		hostname = opts.args[1]
	}

	raw, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "clownfish_local:", err)
		return 1
	}
	topo, err := topology.Build(raw, opts.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "clownfish_local:", err)
		return 1
	}

	device, mount, err := lookup.Locate(topo, serviceName, hostname)
	if err != nil {
		fmt.Fprintln(os.Stderr, "clownfish_local:", err)
		return 1
	}
	fmt.Printf("%s %s\n", device, mount)
	return 0
}

func runMove(opts *options, services []string, start bool) int {
	if len(services) == 0 {
		usage()
		return 1
	}

	client, err := session.Dial(opts.consoleAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "clownfish_local: connecting to server:", err)
		return 1
	}
	defer client.Close()

	hostname, err := os.Hostname()
	if err != nil {
		fmt.Fprintln(os.Stderr, "clownfish_local: resolving local hostname:", err)
		return 1
	}

	for _, svc := range services {
		var command string
		if start {
			command = fmt.Sprintf("service move %s %s", svc, hostname)
		} else {
			command = fmt.Sprintf("service umount %s", svc)
		}

		result, err := client.RunCommand(command, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, "clownfish_local:", err)
			return 1
		}
		for _, rec := range result.Logs {
			fmt.Println(rec.Message)
		}
		if result.ExitCode != 0 {
			fmt.Fprintf(os.Stderr, "clownfish_local: failed to run command [%s]\n", command)
			return result.ExitCode
		}
	}
	return 0
}
