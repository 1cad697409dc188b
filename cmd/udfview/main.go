// Command udfview is a cobra-based CLI for inspecting and extracting
// UDF filesystem images. Grounded on the teacher's cmd/bdinfo flag
// layout and self-update flow, rewritten against spf13/cobra (a
// dependency the teacher's own go.mod already required but never
// imported anywhere in its source).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/blang/semver"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/fatih/color"
	"github.com/go-logr/logr"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/theckman/yacspin"
	"golang.org/x/term"

	"github.com/s0up4200/go-udf/internal/util"
	"github.com/s0up4200/go-udf/pkg/udf"
)

var version = "dev"

var (
	verbose bool
	quiet   bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "udfview",
		Short:         "Inspect and extract UDF filesystem images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	root.AddCommand(newTreeCmd(), newLabelCmd(), newUUIDCmd(), newExtractCmd(), newStatCmd(), newVersionCmd())
	return root
}

func openVolume(image string) (*udf.Volume, error) {
	log := logr.Discard()
	if verbose {
		log = udf.NewSimpleLogger(os.Stderr, udf.LevelTrace, term.IsTerminal(int(os.Stderr.Fd())))
	}
	return udf.Open(image, udf.WithLogger(log))
}

func newTreeCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "tree <image>",
		Short: "List every entry under a directory (default: root)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, err := openVolume(args[0])
			if err != nil {
				return err
			}
			defer vol.Close()

			spinner := newSpinner("scanning volume tree")
			spinner.Start()
			entries, err := vol.ListTree(start)
			spinner.Stop()
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Println(e)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "/", "directory to start listing from")
	return cmd
}

func newLabelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "label <image>",
		Short: "Print the volume label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, err := openVolume(args[0])
			if err != nil {
				return err
			}
			defer vol.Close()
			fmt.Println(vol.Label())
			return nil
		},
	}
}

func newUUIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "uuid <image>",
		Short: "Print the derived volume UUID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, err := openVolume(args[0])
			if err != nil {
				return err
			}
			defer vol.Close()
			fmt.Println(vol.UUIDString())
			return nil
		},
	}
}

func newExtractCmd() *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "extract <image> <destdir>",
		Short: "Extract every file under a directory to the host filesystem",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, err := openVolume(args[0])
			if err != nil {
				return err
			}
			defer vol.Close()

			spinner := newSpinner(fmt.Sprintf("extracting %s", start))
			spinner.Start()
			err = vol.ExtractAll(start, args[1], afero.NewOsFs())
			spinner.Stop()
			if err != nil {
				return err
			}
			fmt.Println(color.GreenString("extraction complete"))
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "/", "directory to start extracting from")
	return cmd
}

func newStatCmd() *cobra.Command {
	var human bool
	cmd := &cobra.Command{
		Use:   "stat <image> [dir]",
		Short: "List one directory's entries with formatted sizes",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, err := openVolume(args[0])
			if err != nil {
				return err
			}
			defer vol.Close()

			dir := "/"
			if len(args) == 2 {
				dir = args[1]
			}

			var count int64
			err = vol.Dir(dir, func(name string, e *udf.Entry) (bool, error) {
				fmt.Printf("%-8s %10s  %s\n", e.Kind(), util.FormatFileSize(float64(e.Size()), human), name)
				count++
				return false, nil
			})
			if err != nil {
				return err
			}
			fmt.Printf("%s entries\n", util.FormatNumber(count))
			return nil
		},
	}
	cmd.Flags().BoolVar(&human, "human", true, "format sizes in human-readable units")
	return cmd
}

func newVersionCmd() *cobra.Command {
	var checkUpdate bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the udfview version, optionally checking for an update",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			if !checkUpdate {
				return nil
			}
			return checkSelfUpdate(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&checkUpdate, "check-update", false, "check GitHub for a newer release")
	return cmd
}

// checkSelfUpdate is adapted from the teacher's cmd/bdinfo/main.go
// runSelfUpdate: same blang/semver + go-selfupdate flow, stripped down
// to a check-only report rather than an in-place binary replacement,
// since a filesystem-reader CLI has lower stakes for auto-replacing
// itself than a disc-analysis tool run unattended in scripts.
func checkSelfUpdate(ctx context.Context) error {
	if version == "" || version == "dev" {
		return errors.New("update check is only available in release builds")
	}
	if _, err := semver.ParseTolerant(version); err != nil {
		return fmt.Errorf("could not parse version: %w", err)
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug("s0up4200/go-udf"))
	if err != nil {
		return fmt.Errorf("error occurred while detecting version: %w", err)
	}
	if !found {
		return fmt.Errorf("no releases found for s0up4200/go-udf")
	}
	if latest.LessOrEqual(version) {
		fmt.Printf("current version %s is up to date\n", version)
		return nil
	}
	fmt.Printf("newer version available: %s (run your package manager or download from the release page)\n", latest.Version())
	return nil
}

func newSpinner(message string) *yacspin.Spinner {
	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[9],
		Suffix:          " " + message,
		SuffixAutoColon: true,
		StopCharacter:   "✓",
		StopColors:      []string{"fgGreen"},
	}
	if quiet {
		cfg.Writer = io.Discard
	}
	s, err := yacspin.New(cfg)
	if err != nil {
		// Falls back to a spinner writing to io.Discard; Start/Stop on it
		// are then harmless no-ops.
		cfg.Writer = io.Discard
		s, _ = yacspin.New(cfg)
	}
	return s
}
