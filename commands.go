package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"handy/audio"
	"handy/clipboard"
	"handy/doctor"
	"handy/hotkey"
	"handy/secret"
	"handy/settings"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", appName, version)
		},
	}
}

func newKeyCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage provider API keys in the OS keychain",
	}

	set := &cobra.Command{
		Use:   "set <provider>",
		Short: "Store the API key for a provider (read from stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			provider := args[0]
			value, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), provider)
			if err != nil {
				return err
			}
			if value == "" {
				return errors.New("empty key, nothing stored")
			}
			if err := o.keys().Store(provider, value); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored key for %s\n", provider)
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <provider>",
		Short: "Remove the API key for a provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := o.keys().Delete(args[0])
			if errors.Is(err, secret.ErrNotFound) {
				fmt.Fprintf(cmd.OutOrStdout(), "No key stored for %s\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted key for %s\n", args[0])
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status <provider>...",
		Short: "Report whether a key is stored",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range args {
				state := "not set"
				if _, ok := o.keys().Fetch(p); ok {
					state = "set"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p, state)
			}
		},
	}

	cmd.AddCommand(set, del, status)
	return cmd
}

// readSecret prompts without echo on a terminal and reads one line
// otherwise.
func readSecret(in io.Reader, prompt io.Writer, provider string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprintf(prompt, "API key for %s: ", provider)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("read key: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func newHistoryCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved transcriptions",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List transcriptions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, err := o.openHistory()
			if err != nil {
				return err
			}
			defer hs.Close()

			entries, err := hs.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transcriptions yet")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.ID, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Text())
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum entries to show (0 = all)")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transcription and its recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hs, err := o.openHistory()
			if err != nil {
				return err
			}
			defer hs.Close()
			if err := hs.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(list, del)
	return cmd
}

func newDoctorCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run system diagnostics and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if code := doctor.Run(cmd.OutOrStdout(), doctorChecks(o)); code != 0 {
				return errors.New("diagnostics failed")
			}
			return nil
		},
	}
}

func doctorChecks(o *options) []doctor.Check {
	var loaded settings.Settings
	return []doctor.Check{
		{
			Name: "Settings",
			Run: func() (string, error) {
				s, err := o.loadSettings()
				if err != nil {
					return "", err
				}
				loaded = s
				return fmt.Sprintf("provider %s, mic %s", s.Provider, s.MicMode), nil
			},
			Fix: "check " + o.settingsPath(),
		},
		{
			Name: "Hotkey",
			Run:  hotkey.Diagnose,
			Fix:  "on linux, add your user to the input group and log in again",
		},
		{
			Name: "Audio devices",
			Run: func() (string, error) {
				ctx, err := audio.NewContext()
				if err != nil {
					return "", err
				}
				defer ctx.Close()
				devices, err := ctx.Devices()
				if err != nil {
					return "", err
				}
				if len(devices) == 0 {
					return "", errors.New("no capture devices found")
				}
				return fmt.Sprintf("%d capture device(s)", len(devices)), nil
			},
		},
		{
			Name: "Keychain",
			Run: func() (string, error) {
				_, err := o.backend.Get(secret.ServiceName, string(loaded.Provider))
				switch {
				case errors.Is(err, secret.ErrNotFound):
					return "reachable, no key for " + string(loaded.Provider), nil
				case err != nil:
					return "", err
				}
				return "key present for " + string(loaded.Provider), nil
			},
			Fix: "unlock the keychain or start a Secret Service provider",
		},
		{
			Name: "Local recognizer",
			Run: func() (string, error) {
				if loaded.Provider != settings.ProviderLocal {
					return "not used (provider " + string(loaded.Provider) + ")", nil
				}
				path, err := exec.LookPath(loaded.Whisper.Binary)
				if err != nil {
					return "", err
				}
				if loaded.Whisper.Model == "" {
					return "", errors.New("whisper.model is not set")
				}
				return path, nil
			},
			Fix: "install whisper.cpp and set whisper.binary and whisper.model",
		},
		{
			Name: "Clipboard",
			Run: func() (string, error) {
				if _, err := clipboard.Read(); err != nil {
					return "", err
				}
				return "readable", nil
			},
			Fix: "on linux, install xclip, xsel or wl-clipboard",
		},
	}
}
