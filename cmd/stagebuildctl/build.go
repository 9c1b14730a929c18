package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/viix-io/docplan/internal/obs"
	"github.com/viix-io/docplan/internal/physfactory"
	"github.com/viix-io/docplan/internal/shardfilter"
	"github.com/viix-io/docplan/internal/stagebuilder"
)

func newBuildCmd() *cobra.Command {
	var explain bool
	var jsonLogs bool

	cmd := &cobra.Command{
		Use:   "build <fixture.json>",
		Short: "Run one Build call against a logical-tree fixture and print the debug output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(args[0], explain, jsonLogs || viper.GetBool("json"))
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "also print a PhysNode tree dump")
	cmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "emit structured logs as JSON instead of console")
	return cmd
}

func runBuild(path string, explain bool, jsonLogs bool) error {
	f, err := loadFixture(path)
	if err != nil {
		return err
	}

	tree, err := convertNode(f.Tree)
	if err != nil {
		return fmt.Errorf("converting logical tree: %w", err)
	}
	reqs, err := convertRequirements(f.Requirements)
	if err != nil {
		return fmt.Errorf("converting requirements: %w", err)
	}

	var collator *stagebuilder.Collator
	if f.Query.CollatorName != "" {
		collator = &stagebuilder.Collator{Locale: f.Query.CollatorName}
	}
	query := &stagebuilder.CanonicalQuery{
		Collator:     collator,
		IsTailable:   f.Query.Tailable,
		NeedsOplogTs: f.Query.NeedsOplogTs,
	}

	cat := buildCatalog(f.Collection, f.Catalog)
	sfFactory := &shardfilter.Static{}
	factory := physfactory.New()

	logger := obs.NewLogger(jsonLogs)
	metrics := obs.NewMetrics(nil)
	hooks := obs.NewObsHooks(logger, metrics)

	b := stagebuilder.New(context.Background(), factory, cat, sfFactory, query, hooks)
	root, data, err := b.Build(tree, reqs)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	fmt.Println(data.DebugString())
	if explain {
		fmt.Println(stagebuilder.Explain(root))
	}
	return nil
}
