package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"tagclass/cmd/tagclass/ui"
	"tagclass/internal/alias"
	"tagclass/internal/dataset"
	"tagclass/internal/tokenize"
)

var (
	aliasThreshold int
	aliasMaxLen    int
	aliasTop       int
	aliasMinLen    int
)

// aliasCmd mines tag sets that keep appearing together
var aliasCmd = &cobra.Command{
	Use:   "alias [reports]",
	Short: "Mine frequent tag sets as alias candidates",
	Long: `Builds one tag set per report (the tags of every detected label) and
mines the sets that reach the support threshold, level by level.`,
	Args: cobra.ExactArgs(1),
	RunE: runAlias,
}

func init() {
	aliasCmd.Flags().IntVar(&aliasThreshold, "threshold", 0, "Minimum support (default from config)")
	aliasCmd.Flags().IntVar(&aliasMaxLen, "max-len", 0, "Largest tag set (default from config)")
	aliasCmd.Flags().IntVar(&aliasTop, "top", 50, "Print at most this many rules (0 = all)")
	aliasCmd.Flags().IntVar(&aliasMinLen, "min-len", 2, "Smallest tag set printed")
}

type support struct {
	rule  string
	size  int
	count int
}

func runAlias(cmd *cobra.Command, args []string) error {
	threshold, maxLen := cfg.Alias.Threshold, cfg.Alias.MaxLen
	if aliasThreshold > 0 {
		threshold = aliasThreshold
	}
	if aliasMaxLen > 0 {
		maxLen = aliasMaxLen
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open reports: %w", err)
	}
	defer f.Close()
	txs, err := dataset.LoadSamples(f, tokenize.New())
	if err != nil {
		return err
	}

	rules := alias.Mine(txs, maxLen, threshold)
	var rows []support
	for rule, n := range rules {
		if size := len(alias.Split(rule)); size >= aliasMinLen {
			rows = append(rows, support{rule: rule, size: size, count: n})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].rule < rows[j].rule
	})
	if aliasTop > 0 && len(rows) > aliasTop {
		rows = rows[:aliasTop]
	}

	out := cmd.OutOrStdout()
	table := ui.NewTable("Alias rules", "rule", "size", "support")
	for _, r := range rows {
		table.AddRow(r.rule, strconv.Itoa(r.size), strconv.Itoa(r.count))
	}
	fmt.Fprint(out, table.View(styles))
	fmt.Fprintf(out, "samples = %d | rules = %d | threshold = %d | max_len = %d\n", len(txs), len(rules), threshold, maxLen)
	return nil
}
