package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tylwright/craft-docs-proxmox/config"
	"github.com/tylwright/craft-docs-proxmox/storage"
	"github.com/tylwright/craft-docs-proxmox/types"
)

var (
	statusChanges bool

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show local sync state",
		Long: `Show the snapshot store's view of the last successful publish:
the current revision and every entry it recorded in the document.`,
		RunE: runStatus,
	}
)

func init() {
	statusCmd.Flags().BoolVar(&statusChanges, "changes", false, "Show what changed between the last two runs")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	store, err := storage.NewSnapshotStore(cfg.Sync.StateDir)
	if err != nil {
		return fmt.Errorf("opening snapshot store: %w", err)
	}
	defer store.Close()

	rev := store.CurrentRevision()
	if rev == 0 {
		fmt.Println("No sync has been recorded yet. Run 'proxsync sync' first.")
		return nil
	}

	entries := store.LoadPrior()
	fmt.Printf("📊 Sync state (%s)\n", cfg.Sync.StateDir)
	fmt.Printf("   Revision: %d\n", rev)
	fmt.Printf("   Entries:  %d\n\n", len(entries))

	keys := make([]types.ResourceKey, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Kind != keys[j].Kind {
			return keys[i].Kind == types.KindVM
		}
		return keys[i].VMID < keys[j].VMID
	})

	for _, key := range keys {
		entry := entries[key]
		fmt.Printf("   %-10s %-24s block %s\n", key.String(), entry.DisplayName, entry.BlockID)
	}

	if statusChanges {
		return printChanges(store)
	}
	return nil
}

func printChanges(store *storage.SnapshotStore) error {
	events, err := store.LatestChanges()
	if err != nil {
		return fmt.Errorf("loading changes: %w", err)
	}

	if len(events) == 0 {
		fmt.Println("\nNo changes since the previous run.")
		return nil
	}

	fmt.Printf("\n🔄 Changes since the previous run:\n")
	for _, event := range events {
		switch event.Type {
		case storage.ChangeAppeared:
			fmt.Printf("   + %s %s\n", event.Key.String(), event.Current.DisplayName)
		case storage.ChangeVanished:
			fmt.Printf("   - %s %s\n", event.Key.String(), event.Previous.DisplayName)
		case storage.ChangeModified:
			fmt.Printf("   ~ %s %s", event.Key.String(), event.Current.DisplayName)
			if event.Previous.DisplayName != event.Current.DisplayName {
				fmt.Printf(" (was %s)", event.Previous.DisplayName)
			}
			fmt.Println()
		}
	}
	return nil
}
