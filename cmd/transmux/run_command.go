package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"transmux/internal/language"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "run <source-file>",
		Short: "Run a media file through the full pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := validateLanguages(cfg.Languages.Source, cfg.Languages.Targets); err != nil {
				return err
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			if subject == "" {
				subject = titleFromPath(args[0])
			}
			glossaryEngine, learned, err := buildGlossary(cfg, logger, subject)
			if err != nil {
				return err
			}
			if learned != nil {
				defer learned.Close()
			}

			orchestrator, err := buildOrchestrator(cfg, logger, glossaryEngine)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			jobDir, err := orchestrator.Start(runCtx, args[0])
			if jobDir != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Job directory: %s\n", jobDir)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Production title used for glossary enrichment (defaults to the file name)")
	return cmd
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <job-dir>",
		Short: "Resume an interrupted job from its directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}

			glossaryEngine, learned, err := buildGlossary(cfg, logger, "")
			if err != nil {
				return err
			}
			if learned != nil {
				defer learned.Close()
			}

			orchestrator, err := buildOrchestrator(cfg, logger, glossaryEngine)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return orchestrator.Resume(runCtx, args[0])
		},
	}
}

func validateLanguages(source string, targets []string) error {
	for _, target := range targets {
		if err := language.ValidatePair(source, target); err != nil {
			return err
		}
	}
	return nil
}

// titleFromPath guesses a production title from a media file name:
// "The.Gateway.2019.1080p.mkv" becomes "The Gateway".
func titleFromPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	base = strings.NewReplacer(".", " ", "_", " ").Replace(base)
	words := strings.Fields(base)
	kept := words[:0]
	for _, word := range words {
		// Stop at the first release-style token: a year or resolution tag.
		if len(word) == 4 && isDigits(word) {
			break
		}
		lower := strings.ToLower(word)
		if lower == "1080p" || lower == "720p" || lower == "2160p" || lower == "4k" {
			break
		}
		kept = append(kept, word)
	}
	return strings.Join(kept, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
