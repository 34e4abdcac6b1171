package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tagclass/cmd/tagclass/ui"
	"tagclass/internal/config"
	"tagclass/internal/dataset"
	"tagclass/internal/parse"
	"tagclass/internal/store"
	"tagclass/internal/tokenize"
	"tagclass/internal/update"
	"tagclass/internal/vocab"
)

var (
	thresholdCFS  int
	maxRounds     int
	lfsMode       string
	processed     bool
	limit         int
	dump          bool
	updatePending bool
	resumeRun     string
	sweepMax      int
)

// resumeLatest is the --resume value used when no run id is given.
const resumeLatest = "latest"

// updateCmd grows the locator vocabulary from a report file
var updateCmd = &cobra.Command{
	Use:   "update [reports]",
	Short: "Incremental parsing for locator update",
	Long: `Runs the LFS/CFS loop over every label of a report file until no new
locator appears, for up to --max-rounds rounds. New locators stay pending
until reviewed; --dump writes them back to the locator file.

When the store is enabled every round is checkpointed and every CFS
candidate is staged for review with "tagclass candidates". --resume continues
a checkpointed run (the latest one unless a run id is given) from its last
round instead of the vocabulary files.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpdate,
}

// evaluateCmd scores the update loop against a hand-parsed truth table
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [reports] [truth.csv]",
	Short: "Evaluate locator update against hand-parsed truth",
	Long: `Runs the update rounds with every new locator verified against the
truth table between rounds, and reports precision and recall per round.

--sweep N repeats the evaluation for every CFS threshold from 2 to N and
reports the first and final round metrics of each.`,
	Args: cobra.ExactArgs(2),
	RunE: runEvaluate,
}

func init() {
	for _, c := range []*cobra.Command{updateCmd, evaluateCmd} {
		c.Flags().IntVar(&thresholdCFS, "threshold", 0, "CFS co-occurrence threshold (default from config)")
		c.Flags().IntVar(&maxRounds, "max-rounds", 0, "Maximum update rounds (default from config)")
		c.Flags().StringVar(&lfsMode, "lfs-mode", "", "LFS mode: parsing or updating (default from config)")
		c.Flags().BoolVar(&processed, "processed", false, "Reports are pre-processed {engine: label} lines")
		c.Flags().IntVar(&limit, "limit", 0, "Read at most this many processed lines")
	}
	updateCmd.Flags().BoolVar(&dump, "dump", false, "Write the locators back to the locator file")
	updateCmd.Flags().BoolVar(&updatePending, "ignore-pending", false, "Skip pending records of the vocabulary files")
	updateCmd.Flags().StringVar(&resumeRun, "resume", "", "Resume a checkpointed run: --resume for the latest, --resume=ID for one run")
	updateCmd.Flags().Lookup("resume").NoOptDefVal = resumeLatest
	evaluateCmd.Flags().IntVar(&sweepMax, "sweep", 0, "Evaluate every CFS threshold from 2 to N")
}

// updateSettings merges flags over the config.
func updateSettings() (int, int, parse.Mode, error) {
	threshold, rounds := cfg.Update.ThresholdCFS, cfg.Update.MaxRounds
	if thresholdCFS > 0 {
		threshold = thresholdCFS
	}
	if maxRounds > 0 {
		rounds = maxRounds
	}
	mode := cfg.Mode()
	if lfsMode != "" {
		m, err := parse.ParseMode(lfsMode)
		if err != nil {
			return 0, 0, "", err
		}
		mode = m
	}
	return threshold, rounds, mode, nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	threshold, rounds, mode, err := updateSettings()
	if err != nil {
		return err
	}
	set, err := dataset.OpenReports(args[0], processed, limit)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	runner := &update.Rounds{
		Updater:   update.New(tokenize.New(), threshold, mode),
		MaxRounds: rounds,
	}
	var st *store.Store
	if cfg.Store.Enabled || resumeRun != "" {
		st, err = store.Open(cfg.Store.DatabasePath)
		if err != nil {
			return err
		}
		defer st.Close()
		runner.Checkpointer = st
	}

	var voc *vocab.Vocabulary
	if resumeRun != "" {
		voc, err = resumeCheckpoint(ctx, st, runner)
	} else {
		voc, err = loadVocabulary(updatePending)
	}
	if err != nil {
		return err
	}
	logger.Info("Starting update",
		zap.Int("labels", set.Len()),
		zap.Int("threshold", threshold),
		zap.String("mode", string(mode)),
		zap.Stringer("vocabulary", voc),
	)

	results, err := runner.Run(ctx, set.Items(), voc)
	if err != nil {
		return err
	}
	if st != nil {
		if err := stageCandidates(ctx, st, results); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprint(out, roundsTable("Locator update", results).View(styles))
	last := results[len(results)-1]
	if len(last.Updated) > 0 {
		fmt.Fprintf(out, "%s max round %d reached\n", styles.Warning.Render("!"), rounds)
	} else {
		fmt.Fprintf(out, "finished at round %d\n", last.Round)
	}
	fmt.Fprintf(out, "threshold_cfs = %d | lfs_mode = %s | %s\n", threshold, mode, voc)

	if dump {
		path := cfg.Vocabulary.File(config.GroupLocator)
		if err := voc.Save(path, config.GroupRoots[config.GroupLocator], false); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s\n", styles.Success.Render("saved"), path)
	}
	return nil
}

// resumeCheckpoint restores the vocabulary of a checkpointed run and makes
// the runner continue its round numbering under the same run id.
func resumeCheckpoint(ctx context.Context, st *store.Store, runner *update.Rounds) (*vocab.Vocabulary, error) {
	runID := resumeRun
	if runID == resumeLatest {
		runID = ""
	}
	cp, err := st.ResolveCheckpoint(ctx, runID, 0)
	if err != nil {
		return nil, err
	}
	voc, err := st.LoadCheckpoint(ctx, cp.RunID, cp.Round)
	if err != nil {
		return nil, err
	}
	st.SetRunID(cp.RunID)
	runner.FirstRound = cp.Round + 1
	logger.Info("Resuming run",
		zap.String("run", cp.RunID),
		zap.Int("round", cp.Round),
		zap.Int("records", cp.Records),
	)
	return voc, nil
}

// stageCandidates records each CFS candidate of the run once, with the
// largest count any pass found.
func stageCandidates(ctx context.Context, st *store.Store, rounds []update.Round) error {
	cands := update.Evidence(rounds)
	for _, c := range cands {
		if _, err := st.RecordCandidate(ctx, c.Tag, c.Remark, c.Count); err != nil {
			return err
		}
	}
	logger.Debug("Staged candidates", zap.Int("count", len(cands)), zap.String("run", st.RunID()))
	return nil
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	threshold, rounds, mode, err := updateSettings()
	if err != nil {
		return err
	}
	set, err := dataset.OpenReports(args[0], processed, limit)
	if err != nil {
		return err
	}
	truth, err := dataset.OpenTruth(args[1])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	out := cmd.OutOrStdout()
	if sweepMax > 0 {
		return runSweep(ctx, cmd, set, truth, rounds, mode)
	}

	results, err := evaluateThreshold(ctx, set, truth, threshold, rounds, mode)
	if err != nil {
		return err
	}
	fmt.Fprint(out, roundsTable("Evaluation", results).View(styles))
	fmt.Fprintf(out, "labels = %d | locators = %d | threshold_cfs = %d | lfs_mode = %s\n",
		set.Len(), possibleLocators(truth, threshold), threshold, mode)
	return nil
}

// evaluateThreshold runs verified rounds from a fresh vocabulary.
func evaluateThreshold(ctx context.Context, set *dataset.LabelSet, truth dataset.Truth, threshold, rounds int, mode parse.Mode) ([]update.Round, error) {
	voc, err := loadVocabulary(true)
	if err != nil {
		return nil, err
	}
	runner := &update.Rounds{
		Updater:   update.New(tokenize.New(), threshold, mode),
		MaxRounds: rounds,
		Verifier:  &update.TruthVerifier{Truth: truth},
		Truth:     truth.Locators(),
	}
	return runner.Run(ctx, set.Items(), voc)
}

func runSweep(ctx context.Context, cmd *cobra.Command, set *dataset.LabelSet, truth dataset.Truth, rounds int, mode parse.Mode) error {
	if sweepMax < 2 {
		return fmt.Errorf("--sweep must be at least 2, got %d", sweepMax)
	}
	table := ui.NewTable("Threshold sweep", "threshold", "locators", "rounds",
		"precision@1", "recall@1", "precision", "recall")
	for t := 2; t <= sweepMax; t++ {
		results, err := evaluateThreshold(ctx, set, truth, t, rounds, mode)
		if err != nil {
			return fmt.Errorf("threshold %d: %w", t, err)
		}
		first, final := sweepMetrics(results)
		table.AddRow(
			strconv.Itoa(t),
			strconv.Itoa(possibleLocators(truth, t)),
			strconv.Itoa(len(results)),
			formatMetric(first, func(m *update.Metrics) float64 { return m.Precision }),
			formatMetric(first, func(m *update.Metrics) float64 { return m.Recall }),
			formatMetric(final, func(m *update.Metrics) float64 { return m.Precision }),
			formatMetric(final, func(m *update.Metrics) float64 { return m.Recall }),
		)
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, table.View(styles))
	fmt.Fprintf(out, "labels = %d | lfs_mode = %s\n", set.Len(), mode)
	return nil
}

// sweepMetrics returns the metrics of the first round and of the last
// round that had any.
func sweepMetrics(rounds []update.Round) (first, final *update.Metrics) {
	if len(rounds) > 0 {
		first = rounds[0].Metrics
	}
	for _, r := range rounds {
		if r.Metrics != nil {
			final = r.Metrics
		}
	}
	return first, final
}

func possibleLocators(truth dataset.Truth, threshold int) int {
	n := 0
	for _, count := range truth.Locators() {
		if count >= threshold {
			n++
		}
	}
	return n
}

func formatMetric(m *update.Metrics, field func(*update.Metrics) float64) string {
	if m == nil {
		return "-"
	}
	return strconv.FormatFloat(field(m), 'f', 3, 64)
}

func roundsTable(title string, rounds []update.Round) *ui.Table {
	table := ui.NewTable(title, "round", "steps", "updated", "verified", "vocabulary", "precision", "recall")
	for _, r := range rounds {
		precision := formatMetric(r.Metrics, func(m *update.Metrics) float64 { return m.Precision })
		recall := formatMetric(r.Metrics, func(m *update.Metrics) float64 { return m.Recall })
		table.AddRow(
			strconv.Itoa(r.Round),
			strconv.Itoa(len(r.Report.Steps)),
			strconv.Itoa(len(r.Updated)),
			strconv.Itoa(r.Verified),
			strconv.Itoa(r.Size),
			precision,
			recall,
		)
	}
	if verbose {
		for _, r := range rounds {
			if len(r.Updated) > 0 {
				logger.Debug("Updated locators", zap.Int("round", r.Round), zap.String("tags", strings.Join(r.Updated, ",")))
			}
		}
	}
	return table
}
