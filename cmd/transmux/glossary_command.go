package main

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"transmux/internal/glossary"
	"transmux/internal/workflow"
)

func newGlossaryCommand(ctx *commandContext) *cobra.Command {
	glossaryCmd := &cobra.Command{
		Use:   "glossary",
		Short: "Inspect glossary tiers and learned terms",
	}
	glossaryCmd.AddCommand(newGlossaryLookupCommand(ctx))
	glossaryCmd.AddCommand(newGlossarySnapshotCommand(ctx))
	glossaryCmd.AddCommand(newGlossaryLearnedCommand(ctx))
	return glossaryCmd
}

func newGlossarySnapshotCommand(ctx *commandContext) *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "snapshot [job-dir]",
		Short: "Show the merged term mapping (from a job directory, or resolved live)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var snapshot *glossary.Snapshot
			if len(args) == 1 {
				loaded, err := glossary.ReadSnapshot(filepath.Join(args[0], workflow.SnapshotFileName))
				if err != nil {
					return err
				}
				snapshot = loaded
			} else {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				logger, err := newLogger(cfg)
				if err != nil {
					return err
				}
				engine, learned, err := buildGlossary(cfg, logger, subject)
				if err != nil {
					return err
				}
				if learned != nil {
					defer learned.Close()
				}
				engine.LoadAll(cmd.Context())
				snapshot = engine.Snapshot("")
			}

			out := cmd.OutOrStdout()
			if snapshot.Len() == 0 {
				fmt.Fprintln(out, "Snapshot contains no terms")
				return nil
			}
			sources := make([]string, 0, snapshot.Len())
			for source := range snapshot.Terms {
				sources = append(sources, source)
			}
			sort.Strings(sources)
			terms := make([]glossary.Term, 0, len(sources))
			for _, source := range sources {
				resolved := snapshot.Terms[source]
				terms = append(terms, glossary.Term{Source: source, Translation: resolved.Translation, Tier: resolved.Tier})
			}
			fmt.Fprintln(out, termTable(terms))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "Subject title for the enrichment tier (live resolution only)")
	return cmd
}

func newGlossaryLookupCommand(ctx *commandContext) *cobra.Command {
	var frequency bool

	cmd := &cobra.Command{
		Use:   "lookup <term>",
		Short: "Resolve a term through the tier cascade",
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
			engine, learned, err := buildGlossary(cfg, logger, "")
			if err != nil {
				return err
			}
			if learned != nil {
				defer learned.Close()
			}
			engine.LoadAll(cmd.Context())

			strategy := glossary.StrategyPriority
			if frequency {
				strategy = glossary.StrategyFrequency
			}
			term, ok := engine.GetTermWithStrategy(args[0], strategy)
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintf(out, "No mapping for %q\n", args[0])
				return nil
			}
			fmt.Fprintln(out, termTable([]glossary.Term{term}))
			return nil
		},
	}

	cmd.Flags().BoolVar(&frequency, "frequency", false, "Use frequency strategy (well-sampled learned terms outrank curated tiers)")
	return cmd
}

func newGlossaryLearnedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "learned",
		Short: "List usage-learned term counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Glossary.LearnedDBPath == "" {
				return fmt.Errorf("no learned store configured (set glossary.learned_db_path)")
			}
			store, err := glossary.OpenLearnedStore(cfg.Glossary.LearnedDBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.All(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No learned terms recorded yet")
				return nil
			}
			fmt.Fprintln(out, learnedTable(entries))
			return nil
		},
	}
}
