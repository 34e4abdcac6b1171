package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tagclass/cmd/tagclass/ui"
	"tagclass/internal/config"
	"tagclass/internal/vocab"
)

var (
	listIgnorePending bool
	listRecords       bool
)

// listCmd prints the vocabulary summary
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the vocabulary",
	Long: `Loads every vocabulary file and prints the record count per root.
Pending records are fatal unless --ignore-pending is set; run "tagclass clean"
to drop them from the files.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

// cleanCmd drops pending records from the vocabulary files
var cleanCmd = &cobra.Command{
	Use:       "clean [locator|family|modifier|all]",
	Short:     "Drop pending records from the vocabulary files",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{config.GroupLocator, config.GroupFamily, config.GroupModifier, "all"},
	RunE:      runClean,
}

func init() {
	listCmd.Flags().BoolVar(&listIgnorePending, "ignore-pending", false, "Skip pending records instead of failing")
	listCmd.Flags().BoolVar(&listRecords, "records", false, "Print every record")
}

func runList(cmd *cobra.Command, args []string) error {
	voc, err := loadVocabulary(listIgnorePending)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, voc)

	summary := voc.Summary()
	table := ui.NewTable("Vocabulary", "root", "records")
	for _, root := range vocab.Roots {
		table.AddRow(string(root), strconv.Itoa(summary[root]))
	}
	fmt.Fprint(out, table.View(styles))

	if listRecords {
		for _, rec := range voc.Select(vocab.Roots, true) {
			fmt.Fprintln(out, rec)
		}
	}
	return nil
}

func runClean(cmd *cobra.Command, args []string) error {
	group := "all"
	if len(args) == 1 {
		group = args[0]
	}
	groups := config.Groups
	if group != "all" {
		groups = []string{group}
	}

	for _, g := range groups {
		n, err := cleanGroup(g)
		if err != nil {
			return fmt.Errorf("clean %s: %w", g, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s vocabulary (%d records)\n", styles.Success.Render("cleaned"), g, n)
	}
	return nil
}

// cleanGroup rewrites one vocabulary file without pending records. Family
// and modifier files also lose the tags the locator file already defines,
// and modifiers lose their sub-path.
func cleanGroup(group string) (int, error) {
	path := cfg.Vocabulary.File(group)
	voc, err := vocab.LoadFiles([]string{path}, true)
	if err != nil {
		return 0, err
	}

	if group != config.GroupLocator {
		loc, err := vocab.LoadFiles([]string{cfg.Vocabulary.File(config.GroupLocator)}, true)
		if err != nil {
			return 0, err
		}
		dropped := voc.Retain(func(rec *vocab.Record) bool { return !loc.Has(rec.Name()) })
		logger.Debug("Dropped tags defined as locators", zap.String("group", group), zap.Int("dropped", dropped))
	}
	if group == config.GroupModifier {
		flat := vocab.New()
		for _, rec := range voc.Select(vocab.Roots, false) {
			f := rec.Fields()
			f.Path = ""
			flat.Add(rec.Name(), f)
		}
		voc = flat
	}

	roots := config.GroupRoots[group]
	if err := voc.Save(path, roots, true); err != nil {
		return 0, err
	}
	return len(voc.Select(roots, false)), nil
}
