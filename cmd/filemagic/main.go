// Command filemagic reports the content type of files.
//
//	filemagic [flags] [file...]
//
// With no arguments, or with "-", standard input is read as a
// forward-only stream.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	filemagic "github.com/HowlerChat/FileMagic"
)

type options struct {
	jsonOutput bool
	mimeOnly   bool
	bufferSize int
	noReread   bool
	logLevel   string
}

// result is one line of --json output
type result struct {
	Path      string `json:"path"`
	Name      string `json:"name,omitempty"`
	MIME      string `json:"mime,omitempty"`
	Extension string `json:"extension,omitempty"`
	Matched   bool   `json:"matched"`
	Error     string `json:"error,omitempty"`
}

func main() {
	if err := newRootCommand(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(stdin io.Reader, stdout io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "filemagic [flags] [file...]",
		Short: "Identify file types by their content",
		Long: `filemagic inspects the leading bytes of each file and reports its type.
Zip based formats (Office Open XML, OpenDocument) are told apart by looking
inside the archive, which requires a regular file; standard input is only
classified as generic zip.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(opts.logLevel)

			detector := filemagic.NewDetector(
				filemagic.WithBufferSize(opts.bufferSize),
				filemagic.WithContainerReread(!opts.noReread),
				filemagic.WithLogger(log.Logger),
			)

			if len(args) == 0 {
				args = []string{"-"}
			}
			return run(detector, args, stdin, stdout, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print one JSON object per file")
	cmd.Flags().BoolVar(&opts.mimeOnly, "mime", false, "Print only the MIME type")
	cmd.Flags().IntVar(&opts.bufferSize, "buffer-size", filemagic.DefaultBufferSize, "Number of leading bytes to scan")
	cmd.Flags().BoolVar(&opts.noReread, "no-reread", false, "Reuse the first buffer when inspecting zip archives")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "Logging level (debug, info, warn, error)")

	return cmd
}

func setupLogging(level string) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	log.Logger = log.Logger.Level(lvl)
}

func run(detector *filemagic.Detector, paths []string, stdin io.Reader, stdout io.Writer, opts *options) error {
	enc := json.NewEncoder(stdout)
	failed := 0

	for _, path := range paths {
		ft, err := detectPath(detector, path, stdin)
		if err != nil {
			failed++
			log.Error().Err(err).Str("path", path).Msg("detection failed")
		}

		if opts.jsonOutput {
			r := result{Path: path, Matched: ft != nil}
			if ft != nil {
				r.Name, r.MIME, r.Extension = ft.Name, ft.MIME(), ft.Extension
			}
			if err != nil {
				r.Error = err.Error()
			}
			if encErr := enc.Encode(r); encErr != nil {
				return encErr
			}
			continue
		}

		if err != nil {
			continue
		}
		fmt.Fprintln(stdout, formatLine(path, ft, opts.mimeOnly, len(paths) > 1))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(paths))
	}
	return nil
}

func detectPath(detector *filemagic.Detector, path string, stdin io.Reader) (*filemagic.FileType, error) {
	if path == "-" {
		return detector.Detect(filemagic.NewStreamSource(stdin, -1))
	}
	return detector.DetectFile(path)
}

func formatLine(path string, ft *filemagic.FileType, mimeOnly, withPath bool) string {
	desc := "unknown"
	if ft != nil {
		desc = ft.String()
		if mimeOnly {
			desc = ft.MIME()
		}
	}
	if withPath {
		return path + ": " + desc
	}
	return desc
}
