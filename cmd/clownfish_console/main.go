// Command clownfish_console is the console front-end to clownfishd: it
// connects to a running daemon's session socket and executes one command
// line, printing its streamed output and exiting with its status code.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/LiXi-storage/clownfish/pkg/session"
)

// DefaultConsoleAddr is used when no host[:port] argument is given.
const DefaultConsoleAddr = "127.0.0.1:988"
const defaultConsolePort = "988"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	addr, command := parseArgs(args)

	client, err := session.Dial(addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clownfish_console: connecting to %s: %v\n", addr, err)
		return 1
	}
	defer client.Close()

	if command == "" {
		return runInteractive(client)
	}
	return runOnce(client, command)
}

// parseArgs splits the CLI surface `clownfish_console [host[:port]]
// [command...]` (spec.md §6). A first argument that contains no spaces and
// either contains a "." or ":" or is "localhost" is treated as
// host[:port]; otherwise every argument is part of the command.
func parseArgs(args []string) (addr, command string) {
	addr = DefaultConsoleAddr
	if len(args) == 0 {
		return addr, ""
	}

	first := args[0]
	rest := args[1:]
	if looksLikeHost(first) {
		if !strings.Contains(first, ":") {
			first = first + ":" + defaultConsolePort
		}
		return first, strings.Join(rest, " ")
	}
	return addr, strings.Join(args, " ")
}

func looksLikeHost(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == ' ' {
			return false
		}
	}
	return strings.Contains(s, ".") || strings.Contains(s, ":") || s == "localhost"
}

func runOnce(client *session.Client, command string) int {
	result, err := client.RunCommand(command, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clownfish_console: %v\n", err)
		return 1
	}
	printLogs(result)
	return result.ExitCode
}

func runInteractive(client *session.Client) int {
	fmt.Println("clownfish console - type a command, or 'global quit' to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("clownfish> ")
		if !scanner.Scan() {
			return 0
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		result, err := client.RunCommand(line, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "clownfish_console: %v\n", err)
			return 1
		}
		printLogs(result)
		if result.Quit {
			return result.ExitCode
		}
	}
}

func printLogs(result *session.CommandResult) {
	for _, rec := range result.Logs {
		out := os.Stdout
		if rec.IsStderr {
			out = os.Stderr
		}
		fmt.Fprintln(out, rec.Message)
	}
}
