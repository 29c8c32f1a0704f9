package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	logLevel  string
	logFormat string
	logger    *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "snakefit",
	Short: "Fit deformable contours by conjugate-gradient energy minimization",
	Long: `snakefit moves the nodes of a 2D contour ("snake") to minimize its
energy, using Polak-Ribiere conjugate gradients with a Brent line search.
Fits run once from the command line or as jobs on an HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(os.Stderr, logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogger builds the process logger. Text output goes through tint for
// readable console logs; json matches what log collectors expect.
func newLogger(output io.Writer, level, format string) (*slog.Logger, error) {
	lvl := parseLevel(level)

	switch format {
	case "json":
		return slog.New(slog.NewJSONHandler(output, &slog.HandlerOptions{Level: lvl})), nil
	case "text", "":
		handler := tint.NewHandler(output, &tint.Options{
			Level:      lvl,
			TimeFormat: "15:04:05.000",
			NoColor:    output != os.Stderr,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Value.Kind() == slog.KindAny {
					if _, ok := a.Value.Any().(error); ok {
						return tint.Attr(9, a)
					}
				}
				return a
			},
		})
		return slog.New(handler), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}
