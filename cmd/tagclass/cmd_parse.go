package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tagclass/cmd/tagclass/ui"
	"tagclass/internal/dataset"
	"tagclass/internal/parse"
	"tagclass/internal/tokenize"
)

var (
	engine        string
	uniform       bool
	ignoreGeneric bool
	fromReports   bool
	parseOut      string
)

// tokenizeCmd prints the tags of one label
var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [label]",
	Short: "Tokenize a malware label",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

// parseCmd parses one label or a report file
var parseCmd = &cobra.Command{
	Use:   "parse [label|reports]",
	Short: "Parse a label with Location First Search",
	Long: `Parses one label against the vocabulary and prints its tags.

With --reports the argument is a VirusTotal v2 report file (one JSON report
per line); every detected label is parsed and the results are written as
JSON to --out (default <name>-tagclass.json in the working directory).`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	for _, c := range []*cobra.Command{tokenizeCmd, parseCmd} {
		c.Flags().StringVarP(&engine, "engine", "e", "default", "Engine that reported the label")
	}
	parseCmd.Flags().BoolVar(&uniform, "uniform", false, "Report canonical names for aliased tags")
	parseCmd.Flags().BoolVar(&ignoreGeneric, "ignore-generic", false, "Drop generic and packed tags from the result")
	parseCmd.Flags().BoolVar(&fromReports, "reports", false, "Treat the argument as a report file")
	parseCmd.Flags().StringVarP(&parseOut, "out", "o", "", "Output file for --reports")
}

func runTokenize(cmd *cobra.Command, args []string) error {
	tags := tokenize.New().Run(engine, args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "[%s]\n", strings.Join(tags, ", "))
	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	voc, err := loadVocabulary(true)
	if err != nil {
		return err
	}
	parser := parse.New(tokenize.New(), parse.ModeParse)
	opts := parse.Options{
		Uniform:       uniform || cfg.Parse.Uniform,
		IgnoreGeneric: ignoreGeneric || cfg.Parse.IgnoreGeneric,
	}
	out := cmd.OutOrStdout()

	if !fromReports {
		res, err := parser.Parse(args[0], engine, voc, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, res)
		return nil
	}

	set, err := dataset.OpenReports(args[0], false, 0)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext()
	defer cancel()

	results, err := parser.Batch(ctx, set.Items(), voc, opts, cfg.Parse.Workers)
	if err != nil {
		return err
	}

	byLabel := make(map[string]parse.Tags, len(results))
	withFamily := 0
	for _, res := range results {
		byLabel[res.Label] = res.Tags()
		if res.Family != "" {
			withFamily++
		}
	}

	path := parseOut
	if path == "" {
		name := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		path = name + "-tagclass.json"
	}
	data, err := json.Marshal(byLabel)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}
	logger.Info("Parsed reports", zap.Int("labels", len(results)), zap.String("out", path))

	table := ui.NewTable("Parse", "labels", "with family", "saved to")
	table.AddRow(strconv.Itoa(len(results)), strconv.Itoa(withFamily), path)
	fmt.Fprint(out, table.View(styles))
	return nil
}
