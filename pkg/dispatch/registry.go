package dispatch

import "context"

// SpeedTag is the assertion a command's test carries about how quickly
// it must reply; the dispatcher does not enforce it, the test suite does.
type SpeedTag string

const (
	AlwaysFast SpeedTag = "always_fast"
	AlwaysSlow SpeedTag = "always_slow"
	SlowOrFast SpeedTag = "slow_or_fast"
)

// ArgumentProvider returns candidate completions for one argument
// position, given the tokens already typed in the current phrase.
type ArgumentProvider func(d *Dispatcher, tokens []string) []string

// Handler executes one phrase's command and returns its result.
type Handler func(ctx context.Context, d *Dispatcher, sess Session, args []string) *Result

// Command is one verb within a Subsystem.
type Command struct {
	Name      string
	Aliases   []string
	Speed     SpeedTag
	Handler   Handler
	Providers []ArgumentProvider
}

// Subsystem is a named group of commands, e.g. "global" or "fs".
type Subsystem struct {
	Name     string
	commands map[string]*Command // keyed by every name/alias
	order    []string             // canonical command names, registration order
}

func newSubsystem(name string) *Subsystem {
	return &Subsystem{Name: name, commands: make(map[string]*Command)}
}

// Register adds cmd to the subsystem under its name and every alias.
func (s *Subsystem) Register(cmd *Command) {
	s.commands[cmd.Name] = cmd
	s.order = append(s.order, cmd.Name)
	for _, alias := range cmd.Aliases {
		s.commands[alias] = cmd
	}
}

// Command looks up a command by name or alias.
func (s *Subsystem) Command(name string) (*Command, bool) {
	cmd, ok := s.commands[name]
	return cmd, ok
}

// CommandNames returns canonical command names in registration order.
func (s *Subsystem) CommandNames() []string {
	return append([]string(nil), s.order...)
}

// Registry is the full set of subsystems a Dispatcher can route into.
type Registry struct {
	subsystems map[string]*Subsystem
	order      []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{subsystems: make(map[string]*Subsystem)}
}

// Subsystem returns (and lazily creates) the named subsystem.
func (r *Registry) Subsystem(name string) *Subsystem {
	if s, ok := r.subsystems[name]; ok {
		return s
	}
	s := newSubsystem(name)
	r.subsystems[name] = s
	r.order = append(r.order, name)
	return s
}

// Lookup returns the subsystem registered under name, if any.
func (r *Registry) Lookup(name string) (*Subsystem, bool) {
	s, ok := r.subsystems[name]
	return s, ok
}

// SubsystemNames returns registered subsystem names in registration order.
func (r *Registry) SubsystemNames() []string {
	return append([]string(nil), r.order...)
}
