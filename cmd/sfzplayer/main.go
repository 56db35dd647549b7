package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"sfzplayer/internal/audio"
	"sfzplayer/internal/config"
	"sfzplayer/internal/fs"
	"sfzplayer/internal/instrument"
	"sfzplayer/internal/logging"
	"sfzplayer/internal/player"
	"sfzplayer/internal/state"
	"sfzplayer/internal/vfs"

	"github.com/spf13/afero"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var (
	logger = logging.GetLogger()
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logger.Error("%v", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// loadConfig layers the YAML file named by -config, the environment and
// the remaining flags.
func loadConfig(args []string) (*config.Config, error) {
	pre := flag.NewFlagSet("sfzplayer", flag.ContinueOnError)
	pre.SetOutput(io.Discard)
	configPath := pre.String("config", os.Getenv("SFZ_CONFIG"), "")
	config.Default().RegisterFlags(pre)
	_ = pre.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)

	flags := flag.NewFlagSet("sfzplayer", flag.ExitOnError)
	flags.String("config", *configPath, "YAML config file")
	cfg.RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.Level())
	if cfg.LogFormat != "" && cfg.LogFormat != os.Getenv("LOG_FORMAT") {
		logger.Warn("log format %q only takes effect through LOG_FORMAT", cfg.LogFormat)
	}

	logger.Info("Starting sfzplayer...")

	stateManager, err := state.NewManager(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("failed to initialize state manager: %w", err)
	}
	session, err := stateManager.LoadState()
	if err != nil {
		return fmt.Errorf("failed to load state: %w", err)
	}
	if cfg.Root == "" && cfg.Repository == "" && session.LastRoot != "" {
		logger.Info("Reopening last library %s", session.LastRoot)
		if _, err := vfs.ParseRepository(session.LastRoot); err == nil && !strings.HasPrefix(session.LastRoot, "/") {
			cfg.Repository = session.LastRoot
		} else {
			cfg.Root = session.LastRoot
		}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	store, label, err := openLibrary(ctx, cfg, client)
	if err != nil {
		return err
	}
	resolver := vfs.NewResolver(store, vfs.WithHTTPClient(client), vfs.WithDecoder(audio.WAVDecoder{}))
	loader := player.NewLoader(resolver)

	instruments := loader.Instruments()
	logger.Info("Library %s has %d instruments", label, len(instruments))
	for _, key := range instruments {
		fmt.Println(key)
	}

	key := cfg.Instrument
	if key == "" {
		key, _ = session.InstrumentFor(label)
	}

	var inst *player.Instrument
	if key != "" {
		inst, err = loader.Load(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to load instrument %s: %w", key, err)
		}
		printInstrument(inst)

		if cfg.Preload {
			if err := loader.Preload(ctx, inst, cfg.PreloadWorkers); err != nil {
				return fmt.Errorf("failed to preload %s: %w", key, err)
			}
		}
	}

	session.Remember(label, key)
	if err := stateManager.SaveState(session); err != nil {
		logger.Warn("Failed to save session: %v", err)
	}

	if cfg.MountPoint == "" && cfg.MIDIPort == "" {
		return nil
	}

	if cfg.MountPoint != "" {
		mountPoint := filepath.Clean(cfg.MountPoint)
		view := fs.NewMountFS(resolver)
		if err := view.Mount(mountPoint); err != nil {
			return err
		}
		defer func() {
			if err := view.Unmount(mountPoint); err != nil {
				logger.Error("Unmount error: %v", err)
			}
		}()
		logger.Info("Library mounted read-only at %s", mountPoint)
	}

	if cfg.MIDIPort != "" {
		if inst == nil {
			return errors.New("listening on MIDI requires an instrument")
		}
		stopMIDI, err := listenMIDI(ctx, cfg.MIDIPort, loader, inst)
		if err != nil {
			return err
		}
		defer stopMIDI()
	}

	<-ctx.Done()
	logger.Info("Shutting down")
	return nil
}

// openLibrary fills a store from a repository index, a remote root or a
// local directory scan. The label is what the session remembers.
func openLibrary(ctx context.Context, cfg *config.Config, client *http.Client) (*vfs.Store, string, error) {
	switch {
	case cfg.Repository != "":
		repo, err := vfs.ParseRepository(cfg.Repository)
		if err != nil {
			return nil, "", err
		}
		repo.APIBase = cfg.APIBase
		store := vfs.NewStore("")
		ref, err := vfs.IndexRepository(ctx, store, client, repo)
		if err != nil {
			return nil, "", fmt.Errorf("failed to index %s: %w", cfg.Repository, err)
		}
		logger.Info("Indexed %s@%s: %d files", cfg.Repository, ref, store.Len())
		return store, cfg.Repository, nil

	case vfs.IsRemote(cfg.Root):
		root := cfg.Root
		if !strings.HasSuffix(root, "/") {
			root += "/"
		}
		logger.Info("Using remote root %s", root)
		return vfs.NewStore(root), root, nil

	default:
		root, err := filepath.Abs(cfg.Root)
		if err != nil {
			return nil, "", err
		}
		store := vfs.NewStore(root)
		n, err := store.ScanLocal(afero.NewOsFs(), root)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan %s: %w", root, err)
		}
		logger.Info("Registered %d local files under %s", n, root)
		return store, root, nil
	}
}

func printInstrument(inst *player.Instrument) {
	fmt.Printf("\n%s: %d mapped notes\n", inst.Key, inst.Samples.Len())
	for _, note := range inst.Samples.Notes() {
		sample, _ := inst.Samples.Lookup(note)
		fmt.Printf("  %3d  %s\n", note, sample)
	}

	if inst.GUIKey == "" {
		return
	}
	fmt.Printf("\n%s: %d controls\n", inst.GUIKey, len(inst.Controls))
	for _, c := range inst.Controls {
		b := c.Bounds()
		fmt.Printf("  %-6s %4d,%-4d %4dx%-4d %s\n", c.Kind(), b.X, b.Y, b.W, b.H, describe(c))
	}
}

func describe(c instrument.Control) string {
	switch c := c.(type) {
	case *instrument.Knob:
		return fmt.Sprintf("%s param=%s", c.Image, c.Param)
	case *instrument.Switch:
		return fmt.Sprintf("%s param=%s", c.Image, c.Param)
	case *instrument.Slider:
		return fmt.Sprintf("%s/%s param=%s", c.Background, c.Handle, c.Param)
	case *instrument.Image:
		return c.Image
	case *instrument.Text:
		return fmt.Sprintf("%q", c.Text)
	default:
		return ""
	}
}

// listenMIDI opens the input port whose name contains name and plays
// incoming notes on inst.
func listenMIDI(ctx context.Context, name string, loader *player.Loader, inst *player.Instrument) (func(), error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open MIDI driver: %w", err)
	}

	ins, err := drv.Ins()
	if err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to list MIDI inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name || strings.Contains(in.String(), name) {
			found = in
			break
		}
	}
	if found == nil {
		drv.Close()
		return nil, fmt.Errorf("MIDI input %q not found", name)
	}

	kb := player.NewKeyboard(loader, func(note, velocity uint8, buf *audio.Buffer) {
		logger.Info("Note %d velocity %d: %d frames at %d Hz", note, velocity, buf.Frames(), buf.SampleRate)
	})
	kb.SetInstrument(inst)

	stopListen, err := kb.Listen(ctx, found)
	if err != nil {
		drv.Close()
		return nil, err
	}
	return func() {
		stopListen()
		_ = found.Close()
		drv.Close()
	}, nil
}
