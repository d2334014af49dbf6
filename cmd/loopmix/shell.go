// SPDX-License-Identifier: EPL-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/ik5/loopmix"
	"github.com/ik5/loopmix/manager"
	"github.com/ik5/loopmix/mix"
	"github.com/ik5/loopmix/playback"
)

var errNoMix = errors.New("no mix selected")

const shellHelp = `Commands:
  status                      show the selected mix
  toggle                      play or stop the mix
  play | stop                 start or stop the mix
  mix <mix-id>                switch to another stored mix
  file <file-id>              play or pause one file
  vol <file-id> <0..1>        change the volume of a file
  add <file-id> <locator> [v] add a file to the mix
  rm <file-id>                remove a file from the mix
  remote <playing|paused|stopped>
                              report a status change from the session
  quit
`

type shell struct {
	sys *loopmix.System
	out io.Writer
}

func newShell(sys *loopmix.System, out io.Writer) *shell {
	return &shell{sys: sys, out: out}
}

func (s *shell) run(ctx context.Context) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "loopmix> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("status"),
			readline.PcItem("toggle"),
			readline.PcItem("play"),
			readline.PcItem("stop"),
			readline.PcItem("mix"),
			readline.PcItem("file"),
			readline.PcItem("vol"),
			readline.PcItem("add"),
			readline.PcItem("rm"),
			readline.PcItem("remote",
				readline.PcItem(string(manager.StatusPlaying)),
				readline.PcItem(string(manager.StatusPaused)),
				readline.PcItem(string(manager.StatusStopped)),
			),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return fmt.Errorf("readline: %w", err)
	}
	defer rl.Close()

	s.out = rl.Stdout()
	s.status()

	for ctx.Err() == nil {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := s.exec(ctx, line)
		if err != nil {
			fmt.Fprintln(s.out, "error:", err)
		}
		if quit {
			return nil
		}
	}

	return nil
}

// exec runs one shell line and reports whether the shell should exit.
func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}

	cmd, args := fields[0], fields[1:]
	ctl := s.sys.Controller

	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprint(s.out, shellHelp)
	case "status":
		s.status()
	case "toggle":
		m, err := s.current()
		if err != nil {
			return false, err
		}
		return false, ctl.TogglePlayingMix(ctx, m)
	case "play":
		m, err := s.current()
		if err != nil {
			return false, err
		}
		return false, ctl.PlayMix(ctx, m, playback.PlayOptions{ForcePlay: true})
	case "stop":
		ctl.StopPlayingMix(ctx)
	case "mix":
		if len(args) != 1 {
			return false, errors.New("usage: mix <mix-id>")
		}
		m, err := s.sys.Store.GetMix(ctx, args[0])
		if err != nil {
			return false, err
		}
		return false, ctl.PlayMix(ctx, m, playback.PlayOptions{})
	case "file":
		if len(args) != 1 {
			return false, errors.New("usage: file <file-id>")
		}
		return false, ctl.ToggleAudioFile(ctx, args[0])
	case "vol":
		if len(args) != 2 {
			return false, errors.New("usage: vol <file-id> <0..1>")
		}
		v, err := parseVolume(args[1])
		if err != nil {
			return false, err
		}
		return false, s.edit(ctx, func(mixID string) error {
			return s.sys.Store.SetFileVolume(ctx, mixID, args[0], v)
		})
	case "add":
		if len(args) < 2 || len(args) > 3 {
			return false, errors.New("usage: add <file-id> <locator> [volume]")
		}
		f := mix.AudioFile{ID: args[0], Name: args[0], Locator: args[1]}
		if len(args) == 3 {
			v, err := parseVolume(args[2])
			if err != nil {
				return false, err
			}
			f = f.WithVolume(v)
		}
		return false, s.edit(ctx, func(mixID string) error {
			return s.sys.Store.AddFileToMix(ctx, mixID, f)
		})
	case "rm":
		if len(args) != 1 {
			return false, errors.New("usage: rm <file-id>")
		}
		return false, s.edit(ctx, func(mixID string) error {
			return s.sys.Store.RemoveFileFromMix(ctx, mixID, args[0])
		})
	case "remote":
		if len(args) != 1 {
			return false, errors.New("usage: remote <playing|paused|stopped>")
		}
		st, ok := manager.ParseStatus(args[0])
		if !ok {
			return false, fmt.Errorf("unknown status %q", args[0])
		}
		s.sys.Manager.ReportSessionStatus(ctx, st)
	default:
		return false, fmt.Errorf("unknown command %q, try help", cmd)
	}

	return false, nil
}

func (s *shell) current() (mix.Mix, error) {
	m, ok := s.sys.State.NowPlaying()
	if !ok {
		return mix.Mix{}, errNoMix
	}

	return m, nil
}

// edit changes the stored copy of the selected mix and applies the result
// to what is loaded.
func (s *shell) edit(ctx context.Context, fn func(mixID string) error) error {
	cur, err := s.current()
	if err != nil {
		return err
	}

	if err := fn(cur.ID); err != nil {
		return err
	}

	m, err := s.sys.Store.GetMix(ctx, cur.ID)
	if err != nil {
		return err
	}

	return s.sys.Controller.SyncMix(ctx, m)
}

func (s *shell) status() {
	snap := s.sys.State.Snapshot()
	if snap.NowPlaying == nil {
		fmt.Fprintln(s.out, "nothing selected")
		return
	}

	state := "stopped"
	if snap.Playing {
		state = "playing"
	}
	fmt.Fprintf(s.out, "%s (%s) %s\n", snap.NowPlaying.Name, snap.NowPlaying.ID, state)

	for _, f := range s.sys.Manager.Files() {
		playing := false
		if l := s.sys.Manager.Looper(f.ID); l != nil {
			playing = l.IsPlaying()
		}
		fmt.Fprintf(s.out, "  %-16s vol %.2f playing %v\n", f.ID, f.VolumeOr(mix.DefaultVolume), playing)
	}
	for _, id := range snap.Downloading {
		fmt.Fprintf(s.out, "  %-16s downloading\n", id)
	}
}

func printMixes(w io.Writer, mixes []mix.Mix) {
	if len(mixes) == 0 {
		fmt.Fprintln(w, "no mixes stored")
		return
	}

	for _, m := range mixes {
		fmt.Fprintf(w, "%-36s %-24s %d files\n", m.ID, m.Name, len(m.AudioFiles))
	}
}

func parseVolume(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, fmt.Errorf("volume %q is not in 0..1", s)
	}

	return v, nil
}
