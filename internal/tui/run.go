package tui

import (
	"os"

	tea "charm.land/bubbletea/v2"
	"golang.org/x/term"
)

func termSizeOpts() []tea.ProgramOption {
	var opts []tea.ProgramOption
	for _, fd := range []int{int(os.Stdout.Fd()), int(os.Stdin.Fd()), int(os.Stderr.Fd())} {
		if term.IsTerminal(fd) {
			w, h, err := term.GetSize(fd)
			if err == nil && w > 0 && h > 0 {
				opts = append(opts, tea.WithWindowSize(w, h))
				break
			}
		}
	}
	return opts
}

// Options configures Run.
type Options struct {
	Profiles ProfileLister
	Conns    Connections
	Querier  Querier

	// ProfileChanges, when set, reloads the profile list on every receive.
	ProfileChanges <-chan struct{}
}

// Run starts the interactive shell on the profile list and blocks until
// the user quits. Every connection a page acquired is released on exit.
func Run(opts Options) error {
	root := NewProfilesPage(opts.Profiles, opts.Conns, opts.Querier)
	shell := NewShell(opts.Conns, NavItem{Title: "Profiles", Model: root})

	p := tea.NewProgram(shell, termSizeOpts()...)

	if opts.ProfileChanges != nil {
		go func() {
			for range opts.ProfileChanges {
				p.Send(ProfilesChangedMsg{})
			}
		}()
	}

	_, err := p.Run()
	// A panic or kill may skip the quit path; release whatever is left.
	shell.stack.Clear()
	return err
}
