package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"handy/action"
	"handy/audio"
	"handy/beep"
	"handy/clipboard"
	"handy/history"
	"handy/hotkey"
	"handy/log"
	"handy/secret"
	"handy/settings"
	"handy/shutdown"
)

var version = "dev"

const binding = "transcribe"

type options struct {
	configPath string
	envFile    string
	logPath    string
	dataDir    string
	profile    string
	device     string
	setup      bool
	hybrid     bool
	test       bool
	tui        bool
	longPress  time.Duration

	backend  secret.Backend
	keysOnce sync.Once
	cache    *secret.Cache
}

// keys returns the process-wide key cache.
func (o *options) keys() *secret.Cache {
	o.keysOnce.Do(func() {
		o.cache = secret.New(o.backend)
	})
	return o.cache
}

func (o *options) settingsPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	p, err := settings.DefaultPath()
	if err != nil {
		return ""
	}
	return p
}

func (o *options) loadSettings() (settings.Settings, error) {
	return settings.Load(o.settingsPath(), o.envFile)
}

func (o *options) openHistory() (*history.Store, error) {
	dir := o.dataDir
	if dir == "" {
		d, err := history.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("resolve data directory: %w", err)
		}
		dir = d
	}
	return history.Open(filepath.Join(dir, "history.db"), filepath.Join(dir, "recordings"))
}

func newRootCmd(o *options) *cobra.Command {
	if o.backend == nil {
		o.backend = secret.Keyring{}
	}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Push-to-talk dictation",
		Long:          "Hold " + hotkey.Shortcut + " to record, release to transcribe and paste into the focused application.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, o)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&o.configPath, "config", "", "settings file (default: <config dir>/handy/settings.yaml)")
	pf.StringVar(&o.envFile, "env-file", ".env", "dotenv file loaded before the settings")
	pf.StringVar(&o.dataDir, "data-dir", "", "history database and recordings directory (default: <config dir>/handy)")

	f := cmd.Flags()
	f.StringVar(&o.logPath, "logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	f.StringVar(&o.profile, "profile", "", "Enable pprof profiling server (e.g., :6060 or localhost:6060)")
	f.StringVar(&o.device, "device", "", "Use named microphone device")
	f.BoolVar(&o.setup, "setup", false, "Select microphone device (otherwise uses system default)")
	f.BoolVar(&o.hybrid, "hybrid", false, "Enable hybrid tap+hold recording mode")
	f.DurationVar(&o.longPress, "longpress", 350*time.Millisecond, "Long-press threshold for PTT vs tap (e.g., 350ms)")
	f.BoolVar(&o.test, "test", false, "Test mode (headless, stdin-driven)")
	f.BoolVar(&o.tui, "tui", true, "Run with terminal UI")

	cmd.AddCommand(newKeyCmd(o), newHistoryCmd(o), newDoctorCmd(o), newVersionCmd())
	return cmd
}

func execute() {
	if err := newRootCmd(&options{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func initLogging(logPath string) {
	dir, err := log.ResolveDir(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to resolve log directory: %v\n", err)
		return
	}
	log.SetDir(dir)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
		return
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}
}

func runRoot(cmd *cobra.Command, o *options) error {
	initLogging(o.logPath)
	defer log.Close()

	if o.profile != "" {
		go func() {
			fmt.Fprintf(os.Stderr, "pprof server listening on http://%s/debug/pprof/\n", o.profile)
			if err := http.ListenAndServe(o.profile, nil); err != nil {
				fmt.Fprintf(os.Stderr, "pprof server error: %v\n", err)
			}
		}()
	}

	s, err := o.loadSettings()
	if err != nil {
		return err
	}
	store := settings.NewStore(s)

	if o.test {
		return runTestMode(cmd.InOrStdin(), cmd.OutOrStdout(), store, o.keys())
	}
	return runLive(o, store)
}

func pickDevice(ctx audio.Context, o *options) (*audio.DeviceInfo, error) {
	if o.setup {
		return audio.SelectDevice(ctx)
	}
	if o.device == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	for i := range devices {
		if strings.EqualFold(devices[i].Name, o.device) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("device %q not found", o.device)
}

func deviceLineText(dev *audio.DeviceInfo) string {
	if dev == nil {
		return "mic: system default"
	}
	line := "mic: " + dev.Name
	if audio.IsBluetooth(dev.Name) {
		line += " (bluetooth, lower audio quality)"
	}
	return line
}

func modeLineText(s settings.Settings, hybrid bool) string {
	mode := "push-to-talk"
	if hybrid {
		mode = "tap or hold"
	}
	return fmt.Sprintf("%s · %s · mic %s", s.Provider, mode, s.MicMode)
}

func runLive(o *options, store *settings.Store) error {
	s := store.Snapshot()

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		return fmt.Errorf("initialize audio: %w", err)
	}
	defer actx.Close()

	dev, err := pickDevice(actx, o)
	if err != nil {
		return err
	}

	rec := audio.NewRecorder(actx, dev, audio.NewMuter(actx))
	defer rec.Close()
	if err := rec.SetAlwaysOn(s.MicMode == settings.MicAlwaysOn); err != nil {
		return err
	}

	if err := clipboard.Init(); err != nil {
		fmt.Printf("Warning: paste init failed: %v\n", err)
		fmt.Println("Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
	}

	var hist action.History
	if s.HistoryEnabled {
		hs, err := o.openHistory()
		if err != nil {
			log.Warnf("history disabled: %v", err)
		} else {
			defer hs.Close()
			hist = hs
		}
	}

	var (
		prog      *tea.Program
		presenter action.Presenter = &logPresenter{}
		count     atomic.Int64
	)
	if o.tui {
		prog = NewTUIProgram(modeLineText(s, o.hybrid), deviceLineText(dev))
		presenter = tuiPresenter{p: prog}
	}
	delivery := notifyingDeliverer{
		inner: clipboard.New(s.RestoreClipboard),
		onPaste: func(text string, err error) {
			count.Add(1)
			if prog != nil {
				prog.Send(transcriptionMsg{Text: text, Err: err})
			}
		},
	}

	ui := newUIExecutor()
	defer ui.Close()

	a := newApp(appDeps{
		Settings:  store,
		Keys:      o.keys(),
		Capture:   rec,
		Feedback:  beep.New(),
		Presenter: presenter,
		Delivery:  delivery,
		History:   hist,
		UI:        ui,
	})
	log.SessionStart(string(s.Provider), string(s.MicMode))

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register hotkey %s: %w", hotkey.Shortcut, err)
	}
	defer hk.Unregister()

	ctx, cancel := context.WithCancel(context.Background())
	driveDone := make(chan struct{})
	go func() {
		defer close(driveDone)
		if o.hybrid {
			hotkey.DriveHybrid(ctx, hotkey.NewHybrid(hk, o.longPress), binding, a.dispatcher)
			return
		}
		hotkey.Drive(ctx, hk, binding, a.dispatcher)
	}()

	sig := make(chan os.Signal, 1)
	shutdown.Notify(sig)
	defer shutdown.Stop(sig)

	if prog != nil {
		go func() {
			select {
			case <-sig:
				prog.Quit()
			case <-ctx.Done():
			}
		}()
		if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			log.Errorf("tui error: %v", err)
		}
	} else {
		fmt.Printf("%s %s ready. Hold %s to dictate, Ctrl+C to quit.\n", appName, version, hotkey.Shortcut)
		<-sig
	}

	cancel()
	<-driveDone
	a.transcribe.Wait()
	log.SessionEnd(int(count.Load()))
	return nil
}
