// SPDX-License-Identifier: EPL-2.0

// Command loopmix plays, renders and manages ambient sound mixes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	logging "github.com/ipfs/go-log/v2"

	"github.com/ik5/loopmix"
	"github.com/ik5/loopmix/config"
	"github.com/ik5/loopmix/output"
	"github.com/ik5/loopmix/playback"
	"github.com/ik5/loopmix/store"
)

var log = logging.Logger("loopmix/cmd")

var (
	configPath = flag.String("config", "", "YAML config file")
	showHelp   = flag.Bool("h", false, "Show help")
)

func main() {
	flag.Usage = showUsage
	flag.Parse()

	args := flag.Args()
	if *showHelp || len(args) == 0 {
		showUsage()
		return
	}

	logging.SetupLogging(logging.Config{
		Format: logging.ColorizedOutput,
		Stderr: true,
		Level:  logging.LevelWarn,
	})

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if err := cfg.SetupLogging(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch cmd := args[0]; cmd {
	case "play":
		need(args, 2, "play <mix-id>")
		err = runPlay(ctx, cfg, args[1])
	case "render":
		need(args, 4, "render <mix-id> <out.wav> <seconds>")
		err = runRender(ctx, cfg, args[1], args[2], args[3])
	case "mixes":
		err = runMixes(ctx, cfg)
	case "import":
		need(args, 2, "import <library.yaml>")
		err = runImport(ctx, cfg, args[1])
	case "cleanup":
		err = runCleanup(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n", cmd)
		showUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func need(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "Usage: loopmix", usage)
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Fprintf(os.Stderr, `Usage: loopmix [-config file] <command> [args]

Commands:
  play <mix-id>                       play a mix with an interactive shell
  render <mix-id> <out.wav> <seconds> render a mix to a mono WAV file
  mixes                               list stored mixes
  import <library.yaml>               store every mix of a library file
  cleanup                             remove stale cached downloads

Environment variables prefixed with %s override the config file.
`, config.EnvPrefix)
}

func openSystem(ctx context.Context, cfg config.Config, opts ...loopmix.Option) (*loopmix.System, error) {
	sys, err := loopmix.Open(cfg, opts...)
	if err != nil {
		return nil, err
	}

	if cfg.Library.Path != "" {
		lib, err := store.LoadLibrary(cfg.Library.Path)
		if err != nil {
			sys.Close(ctx)
			return nil, err
		}
		if _, err := sys.Store.Import(ctx, lib); err != nil {
			sys.Close(ctx)
			return nil, err
		}
	}

	return sys, nil
}

func runPlay(ctx context.Context, cfg config.Config, mixID string) error {
	sys, err := openSystem(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := sys.Close(context.Background()); err != nil {
			log.Warnw("close", "err", err)
		}
	}()

	spk, err := output.Open(cfg.Engine.SampleRate, cfg.Engine.Buffer)
	if err != nil {
		return err
	}
	defer spk.Close()

	if err := spk.Play(sys.Mixer.Streamer(), sys.Mixer.Format()); err != nil {
		return err
	}

	m, err := sys.Store.GetMix(ctx, mixID)
	if err != nil {
		return err
	}
	if err := sys.Controller.PlayMix(ctx, m, playback.PlayOptions{}); err != nil {
		return err
	}

	if cfg.Library.Watch {
		go watchLibrary(ctx, sys, cfg.Library.Path)
	}

	return newShell(sys, os.Stdout).run(ctx)
}

// watchLibrary stores every reloaded library and applies edits of the
// selected mix to what is playing.
func watchLibrary(ctx context.Context, sys *loopmix.System, path string) {
	err := store.Watch(ctx, path, func(lib store.Library) {
		if _, err := sys.Store.Import(ctx, lib); err != nil {
			log.Warnw("import reloaded library", "err", err)
			return
		}

		cur, ok := sys.State.NowPlaying()
		if !ok {
			return
		}
		if m, ok := lib.Mix(cur.ID); ok {
			if err := sys.Controller.SyncMix(ctx, m); err != nil {
				log.Warnw("sync mix", "mix", m.ID, "err", err)
			}
		}
	})
	if err != nil {
		log.Errorw("library watch stopped", "path", path, "err", err)
	}
}

func runRender(ctx context.Context, cfg config.Config, mixID, outPath, seconds string) error {
	secs, err := strconv.ParseFloat(seconds, 64)
	if err != nil || secs <= 0 {
		return fmt.Errorf("invalid duration %q", seconds)
	}

	mock := clock.NewMock()
	sys, err := openSystem(ctx, cfg, loopmix.WithClock(mock))
	if err != nil {
		return err
	}
	defer sys.Close(context.Background())

	m, err := sys.Store.GetMix(ctx, mixID)
	if err != nil {
		return err
	}
	if err := sys.Controller.PlayMix(ctx, m, playback.PlayOptions{}); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}

	d := time.Duration(secs * float64(time.Second))
	if err := loopmix.RenderWAV(f, sys.Mixer, mock, d); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Printf("Wrote %s (%v of %q)\n", outPath, d, m.Name)

	return nil
}

func runMixes(ctx context.Context, cfg config.Config) error {
	sys, err := openSystem(ctx, cfg)
	if err != nil {
		return err
	}
	defer sys.Close(context.Background())

	mixes, err := sys.Store.ListMixes(ctx)
	if err != nil {
		return err
	}

	printMixes(os.Stdout, mixes)

	return nil
}

func runImport(ctx context.Context, cfg config.Config, path string) error {
	lib, err := store.LoadLibrary(path)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}

	n, err := st.Import(ctx, lib)
	if err := errors.Join(err, st.Close()); err != nil {
		return err
	}

	fmt.Printf("Imported %d mixes\n", n)

	return nil
}

func runCleanup(ctx context.Context, cfg config.Config) error {
	sys, err := loopmix.Open(cfg)
	if err != nil {
		return err
	}
	defer sys.Close(ctx)

	n, err := sys.CleanupCache()
	if err != nil {
		return err
	}

	fmt.Printf("Removed %d cached files\n", n)

	return nil
}
