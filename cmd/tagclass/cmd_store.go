package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tagclass/cmd/tagclass/ui"
	"tagclass/internal/config"
	"tagclass/internal/store"
	"tagclass/internal/vocab"
)

var (
	candidateStatus string
	candidateLimit  int
)

// candidatesCmd reviews the CFS candidates staged by update
var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Review staged CFS locator candidates",
	Long: `Lists, confirms and rejects the locator candidates that "tagclass update"
stages in the store. Confirmed candidates are written to the locator file as
confirmed behavior tags; rejected ones lose their pending record there.`,
}

var candidatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List staged candidates, most frequent first",
	Args:  cobra.NoArgs,
	RunE:  runCandidatesList,
}

var candidatesConfirmCmd = &cobra.Command{
	Use:   "confirm [id...]",
	Short: "Confirm candidates into the locator file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return reviewCandidates(cmd, args, true) },
}

var candidatesRejectCmd = &cobra.Command{
	Use:   "reject [id...]",
	Short: "Reject candidates",
	Args:  cobra.MinimumNArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return reviewCandidates(cmd, args, false) },
}

// checkpointsCmd lists the rounds saved by update
var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "List update checkpoints, newest first",
	Args:  cobra.NoArgs,
	RunE:  runCheckpoints,
}

func init() {
	candidatesListCmd.Flags().StringVar(&candidateStatus, "status", store.StatusPending, "Filter by status (empty for all)")
	candidatesListCmd.Flags().IntVar(&candidateLimit, "limit", 50, "Maximum candidates listed (0 = all)")

	candidatesCmd.AddCommand(candidatesListCmd)
	candidatesCmd.AddCommand(candidatesConfirmCmd)
	candidatesCmd.AddCommand(candidatesRejectCmd)
}

func openStore() (*store.Store, error) {
	return store.Open(cfg.Store.DatabasePath)
}

func runCandidatesList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := commandContext()
	defer cancel()

	cands, err := st.ListCandidates(ctx, candidateStatus, candidateLimit)
	if err != nil {
		return err
	}
	table := ui.NewTable("Candidates", "id", "tag", "count", "runs", "status", "remark")
	for _, c := range cands {
		table.AddRow(strconv.FormatInt(c.ID, 10), c.Tag, strconv.Itoa(c.Count), strconv.Itoa(c.Seen), c.Status, c.Remark)
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, table.View(styles))
	fmt.Fprintf(out, "%d candidates\n", len(cands))
	return nil
}

// reviewCandidates confirms or rejects candidates by id and mirrors the
// decision into the locator file.
func reviewCandidates(cmd *cobra.Command, args []string, confirm bool) error {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid candidate id %q", a)
		}
		ids = append(ids, id)
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	path := cfg.Vocabulary.File(config.GroupLocator)
	loc, err := readLocators(path)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	out := cmd.OutOrStdout()
	for _, id := range ids {
		c, err := st.GetCandidate(ctx, id)
		if err != nil {
			return fmt.Errorf("candidate %d: %w", id, err)
		}
		if confirm {
			if err := st.ConfirmCandidate(ctx, id); err != nil {
				return err
			}
			confirmLocator(loc, c)
			fmt.Fprintf(out, "%s %s\n", styles.Success.Render("confirmed"), c.Tag)
			continue
		}
		if err := st.RejectCandidate(ctx, id); err != nil {
			return err
		}
		if rec, ok := loc.Lookup(c.Tag); ok && rec.Pending() {
			loc.Delete(c.Tag)
		}
		fmt.Fprintf(out, "%s %s\n", styles.Warning.Render("rejected"), c.Tag)
	}

	if err := loc.Save(path, config.GroupRoots[config.GroupLocator], false); err != nil {
		return err
	}
	logger.Info("Reviewed candidates", zap.Int("count", len(ids)), zap.Bool("confirm", confirm), zap.String("path", path))
	return nil
}

// readLocators loads the locator file with its pending records. A missing
// file is an empty vocabulary.
func readLocators(path string) (*vocab.Vocabulary, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return vocab.New(), nil
	}
	src, err := vocab.ReadSource(path)
	if err != nil {
		return nil, err
	}
	return vocab.Restore(src)
}

// confirmLocator confirms the pending record of a candidate, or adds it as a
// confirmed behavior.
func confirmLocator(loc *vocab.Vocabulary, c store.Candidate) {
	if rec, ok := loc.Lookup(c.Tag); ok {
		rec.Confirm()
		return
	}
	loc.Add(c.Tag, vocab.Fields{Root: vocab.RootBehavior, State: vocab.StateConfirmed, Remark: c.Remark})
}

func runCheckpoints(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := commandContext()
	defer cancel()

	cps, err := st.ListCheckpoints(ctx)
	if err != nil {
		return err
	}
	table := ui.NewTable("Checkpoints", "run", "round", "records", "saved")
	for _, cp := range cps {
		table.AddRow(cp.RunID, strconv.Itoa(cp.Round), strconv.Itoa(cp.Records), cp.CreatedAt)
	}
	fmt.Fprint(cmd.OutOrStdout(), table.View(styles))
	return nil
}
