package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/biocad/anbase/internal/application/curation"
	"github.com/biocad/anbase/internal/config"
	"github.com/biocad/anbase/internal/infrastructure/monitoring/logging"
)

// pipelineFlags are the run parameters every stage command accepts. A flag
// overrides the config file only when it is set explicitly.
type pipelineFlags struct {
	runID       string
	cont        bool
	workers     int
	dupWorkers  int
	rangeStart  int
	rangeEnd    int
	pairing     string
	summaryPath string
	dataDir     string
	outDir      string
	purgeCache  bool
}

func (f *pipelineFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.runID, "run-id", "", "run identifier naming the output directory")
	fs.BoolVar(&f.cont, "continue", false, "resume a previous run, skipping complexes already done")
	fs.IntVarP(&f.workers, "workers", "w", 0, "number of complexes processed in parallel")
	fs.IntVar(&f.dupWorkers, "duplicate-workers", 0, "number of parallel workers of the duplicates stage")
	fs.IntVar(&f.rangeStart, "range-start", 0, "first row of the summary table to curate")
	fs.IntVar(&f.rangeEnd, "range-end", 0, "row after the last one to curate (0: to the end)")
	fs.StringVar(&f.pairing, "pairing", "", "pairings to score: uu or all")
	fs.StringVar(&f.summaryPath, "sabdab-summary", "", "path of the SAbDab summary TSV")
	fs.StringVar(&f.dataDir, "data-dir", "", "structure download directory")
	fs.StringVar(&f.outDir, "out-dir", "", "output root directory")
	fs.BoolVar(&f.purgeCache, "purge-cache", false, "drop memoized remote calls before the run")
}

// apply copies the explicitly set flags onto cfg and re-validates it.
func (f *pipelineFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	p := &cfg.Pipeline
	if fs.Changed("run-id") {
		p.RunID = f.runID
	}
	if fs.Changed("continue") {
		p.Continue = f.cont
	}
	if fs.Changed("workers") {
		p.Workers = f.workers
	}
	if fs.Changed("duplicate-workers") {
		p.DupWorkers = f.dupWorkers
	}
	if fs.Changed("range-start") {
		p.RangeStart = f.rangeStart
	}
	if fs.Changed("range-end") {
		p.RangeEnd = f.rangeEnd
	}
	if fs.Changed("pairing") {
		p.Pairing = f.pairing
	}
	if fs.Changed("sabdab-summary") {
		p.SummaryPath = f.summaryPath
	}
	if fs.Changed("data-dir") {
		p.DataDir = f.dataDir
	}
	if fs.Changed("out-dir") {
		p.OutDir = f.outDir
	}
	if fs.Changed("purge-cache") {
		cfg.Cache.Purge = f.purgeCache
	}
	return cfg.Validate()
}

// stageFunc runs one stage against a ready pipeline.
type stageFunc func(ctx context.Context, cmd *cobra.Command, p *curation.Pipeline) error

// newStageCmd builds a command that wires the application, runs fn until it
// returns or the process is interrupted, and releases everything.
func newStageCmd(use, short, long string, fn stageFunc, extra func(*cobra.Command)) *cobra.Command {
	flags := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cliCtx.Config); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cliCtx.Config, cliCtx.Logger)
			if err != nil {
				return err
			}
			runErr := fn(ctx, cmd, a.pipeline)
			if err := a.Close(); err != nil {
				cliCtx.Logger.Warn("Shutdown incomplete", logging.Err(err))
			}
			return runErr
		},
	}
	flags.register(cmd)
	if extra != nil {
		extra(cmd)
	}
	return cmd
}

func printProgress(cmd *cobra.Command, p *curation.Pipeline) {
	c := p.Progress()
	fmt.Fprintf(cmd.OutOrStdout(), "complexes: %d processed, %d failed, %d obsolete\n",
		c.Processed, c.Failed, c.Obsolete)
}

func newCollectCmd() *cobra.Command {
	return newStageCmd("collect",
		"Find unbound candidates for every complex of the summary table",
		"Reads the SAbDab summary, downloads each bound complex and searches the\n"+
			"structure database for unbound conformations of its antibody and antigen.",
		func(ctx context.Context, cmd *cobra.Command, p *curation.Pipeline) error {
			if err := p.Collect(ctx); err != nil {
				return err
			}
			printProgress(cmd, p)
			return nil
		}, nil)
}

func newProcessCmd() *cobra.Command {
	return newStageCmd("process",
		"Superpose and score the candidate pairings of every collected complex",
		"",
		func(ctx context.Context, cmd *cobra.Command, p *curation.Pipeline) error {
			if err := p.Process(ctx); err != nil {
				return err
			}
			PrintSuccess(cmd, "pairings scored under "+p.Layout().OutDir)
			return nil
		}, nil)
}

func newDuplicatesCmd() *cobra.Command {
	return newStageCmd("duplicates",
		"Group scored complexes with identical sequences",
		"",
		func(ctx context.Context, cmd *cobra.Command, p *curation.Pipeline) error {
			if err := p.Duplicates(ctx); err != nil {
				return err
			}
			PrintSuccess(cmd, "duplicates written to "+p.Layout().Duplicates())
			return nil
		}, nil)
}

func newSummaryCmd() *cobra.Command {
	var show bool
	return newStageCmd("summary",
		"Pick the best pairing of every complex and write the summary tables",
		"",
		func(ctx context.Context, cmd *cobra.Command, p *curation.Pipeline) error {
			results, err := p.Summary(ctx)
			if err != nil {
				return err
			}
			if show {
				renderResults(cmd.OutOrStdout(), results)
			}
			printSummaryTotals(cmd, results)
			return nil
		}, func(cmd *cobra.Command) {
			cmd.Flags().BoolVar(&show, "show", false, "print the chosen pairing of every complex")
		})
}

func newConstraintsCmd() *cobra.Command {
	return newStageCmd("constraints",
		"Write docking constraints for the perfect complexes",
		"",
		func(ctx context.Context, cmd *cobra.Command, p *curation.Pipeline) error {
			n, err := p.Constraints(ctx)
			if err != nil {
				return err
			}
			PrintSuccess(cmd, fmt.Sprintf("%d constraint files written", n))
			return nil
		}, nil)
}

func newRunCmd() *cobra.Command {
	return newStageCmd("run",
		"Run every stage in order",
		"Runs collect, process, duplicates, summary and constraints as one job. With\n"+
			"--continue an interrupted run resumes where it stopped.",
		func(ctx context.Context, cmd *cobra.Command, p *curation.Pipeline) error {
			if err := p.Run(ctx); err != nil {
				return err
			}
			printProgress(cmd, p)
			PrintSuccess(cmd, "run finished under "+p.Layout().OutDir)
			return nil
		}, nil)
}

//Personal.AI order the ending
