package dispatch

import (
	"context"
	"fmt"
)

func registerOption(sub *Subsystem) {
	sub.Register(&Command{
		Name:  "enable",
		Speed: AlwaysFast,
		Handler: func(ctx context.Context, d *Dispatcher, _ Session, args []string) *Result {
			return toggleOption(ctx, d, args, true)
		},
		Providers: []ArgumentProvider{optionNameProvider},
	})
	sub.Register(&Command{
		Name:  "disable",
		Speed: AlwaysSlow,
		Handler: func(ctx context.Context, d *Dispatcher, _ Session, args []string) *Result {
			return toggleOption(ctx, d, args, false)
		},
		Providers: []ArgumentProvider{optionNameProvider},
	})
}

func optionNameProvider(_ *Dispatcher, _ []string) []string {
	return []string{"lazy_prepare", "high_availability"}
}

func toggleOption(ctx context.Context, d *Dispatcher, args []string, enabled bool) *Result {
	if len(args) != 1 {
		return &Result{Stderr: "usage: option enable|disable {lazy_prepare|high_availability}", ExitCode: -1}
	}

	switch args[0] {
	case "lazy_prepare":
		d.Instance.SetLazyPrepare(enabled)
		return &Result{Stdout: fmt.Sprintf("lazy_prepare=%v", enabled), ExitCode: 0}

	case "high_availability":
		if d.Engine == nil {
			return &Result{Stderr: "engine not running", ExitCode: -1}
		}
		if enabled {
			d.Engine.EnableHA()
			d.Instance.SetHANative(true)
			return &Result{Stdout: "high_availability=true", ExitCode: 0}
		}
		if err := d.Engine.DisableHA(ctx); err != nil {
			return &Result{Stderr: err.Error(), ExitCode: -1}
		}
		return &Result{Stdout: "high_availability=false", ExitCode: 0}

	default:
		return &Result{Stderr: fmt.Sprintf("option: unknown option %q", args[0]), ExitCode: -1}
	}
}
