package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tylwright/craft-docs-proxmox/config"
	"github.com/tylwright/craft-docs-proxmox/publisher"
	"github.com/tylwright/craft-docs-proxmox/reconciler"
)

var (
	syncDryRun      bool
	syncIncremental bool
	syncNode        string
	syncTag         string
	syncGroupBy     string
	syncStorage     bool
	syncBackups     bool
	syncStopped     bool

	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass against the target document",
		Long: `Fetch the cluster inventory, reconcile it against the document,
and publish the changes.

Incremental mode (the default) scans the document for existing entries
and only touches what changed, preserving your notes. With --incremental=false
the document is cleared and rebuilt from scratch.`,
		RunE: runSync,
	}
)

func init() {
	syncCmd.Flags().BoolVar(&syncDryRun, "dry-run", false, "Plan without touching the document")
	syncCmd.Flags().BoolVar(&syncIncremental, "incremental", true, "Update only changed entries")
	syncCmd.Flags().StringVar(&syncNode, "node", "", "Limit to a single node")
	syncCmd.Flags().StringVar(&syncTag, "tag", "", "Limit to guests carrying a tag")
	syncCmd.Flags().StringVar(&syncGroupBy, "group-by", "", "Group sections by node, tag, status, or none")
	syncCmd.Flags().BoolVar(&syncStorage, "include-storage", false, "Include storage pool sections")
	syncCmd.Flags().BoolVar(&syncBackups, "include-backups", false, "Include backup status")
	syncCmd.Flags().BoolVar(&syncStopped, "include-stopped", true, "Include stopped guests")

	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadSyncConfig(cmd)
	if err != nil {
		return err
	}

	app, err := newApp(cfg, syncDryRun)
	if err != nil {
		return err
	}
	defer app.Close()

	if syncDryRun {
		fmt.Println("🔍 Dry run: planning only, the document will not change")
	}

	result, err := app.syncOnce(context.Background(), syncIncremental, syncDryRun)
	if err != nil {
		return err
	}

	printSyncSummary(result)
	return nil
}

// loadSyncConfig loads the config file and layers the command flags on top
func loadSyncConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("node") {
		cfg.Sync.Node = syncNode
	}
	if cmd.Flags().Changed("tag") {
		cfg.Sync.Tag = syncTag
	}
	if cmd.Flags().Changed("group-by") {
		cfg.Sync.GroupBy = syncGroupBy
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if cmd.Flags().Changed("include-storage") {
		cfg.Sync.IncludeStorage = boolFlag(syncStorage)
	}
	if cmd.Flags().Changed("include-backups") {
		cfg.Sync.IncludeBackups = boolFlag(syncBackups)
	}
	if cmd.Flags().Changed("include-stopped") {
		cfg.Sync.IncludeStopped = boolFlag(syncStopped)
	}

	return cfg, nil
}

func printSyncSummary(result *publisher.Result) {
	if result.Mode == reconciler.ModeFullReplace {
		fmt.Println("\n📄 Full replace: document rebuilt from current inventory")
	} else {
		fmt.Println("\n📄 Incremental: only changed entries touched")
	}

	fmt.Printf("   Operations: %d total, %d succeeded", result.TotalOperations, result.SuccessfulCount)
	if result.FailedCount > 0 {
		fmt.Printf(", %d failed", result.FailedCount)
	}
	if result.SkippedCount > 0 {
		fmt.Printf(", %d skipped", result.SkippedCount)
	}
	fmt.Printf(" (%.1fs)\n", result.Duration.Seconds())

	if result.PartialFailure {
		fmt.Println("\n⚠️  Some operations failed:")
		for _, op := range result.Results {
			if op.Status == publisher.StatusFailed {
				fmt.Printf("   ❌ %s: %s\n", op.Label, op.Error)
			}
		}
	} else if result.SuccessfulCount > 0 {
		fmt.Println("✅ Document is in sync")
	}
}

func boolFlag(v bool) *bool { return &v }
