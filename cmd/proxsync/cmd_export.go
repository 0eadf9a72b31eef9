package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tylwright/craft-docs-proxmox/alerts"
	"github.com/tylwright/craft-docs-proxmox/config"
	"github.com/tylwright/craft-docs-proxmox/providers/proxmox"
	"github.com/tylwright/craft-docs-proxmox/render"
	"github.com/tylwright/craft-docs-proxmox/types"
)

var (
	exportFormat string
	exportOutput string

	exportCmd = &cobra.Command{
		Use:   "export",
		Short: "Fetch the inventory and write it to a file or stdout",
		Long: `Fetch the cluster inventory and emit it without touching Craft.
Useful for inspecting what a sync would publish, or for piping the
inventory into other tools.`,
		RunE: runExport,
	}
)

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "markdown", "Output format: markdown or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log.Level)
	client := proxmox.NewClient(proxmox.Config{
		Host:             cfg.Proxmox.Host,
		Port:             cfg.Proxmox.Port,
		TokenID:          cfg.Proxmox.TokenID,
		TokenSecret:      cfg.Proxmox.TokenSecret,
		VerifyTLS:        cfg.Proxmox.VerifyTLS,
		Timeout:          cfg.Proxmox.Timeout,
		IncludeStorage:   *cfg.Sync.IncludeStorage,
		IncludeBackups:   *cfg.Sync.IncludeBackups,
		IncludeSnapshots: *cfg.Sync.IncludeSnapshots,
	}, logger)

	filter := types.InventoryFilter{
		Node:             cfg.Sync.Node,
		Tag:              cfg.Sync.Tag,
		IncludeTemplates: cfg.Sync.IncludeTemplates,
		IncludeStopped:   *cfg.Sync.IncludeStopped,
	}

	cluster, err := client.FetchCluster(context.Background(), filter)
	if err != nil {
		return fmt.Errorf("fetching inventory: %w", err)
	}

	if *cfg.Sync.ShowAlerts {
		alerts.NewEvaluator(cfg.Alerts).AnnotateCluster(cluster)
	}

	var out string
	switch exportFormat {
	case "json":
		data, err := json.MarshalIndent(cluster, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding inventory: %w", err)
		}
		out = string(data) + "\n"
	case "markdown", "md":
		out = renderMarkdownExport(cfg, cluster)
	default:
		return fmt.Errorf("unknown format %q, want markdown or json", exportFormat)
	}

	if exportOutput == "" {
		fmt.Print(out)
		return nil
	}
	if err := os.WriteFile(exportOutput, []byte(out), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", exportOutput, err)
	}
	fmt.Fprintf(os.Stderr, "📄 Wrote %s (%d bytes)\n", exportOutput, len(out))
	return nil
}

// renderMarkdownExport concatenates the same sections a full replace would
// publish, in document order
func renderMarkdownExport(cfg *config.Config, cluster *types.Cluster) string {
	renderer := render.NewRenderer(cfg.Proxmox.Host, cfg.Proxmox.Port, cfg.Alerts)

	var sections []string
	sections = append(sections, renderer.ClusterOverview(cluster))
	for i := range cluster.Nodes {
		sections = append(sections, renderer.NodeSection(&cluster.Nodes[i]))
	}
	if quickRef := renderer.QuickReference(cluster); quickRef != "" {
		sections = append(sections, quickRef)
	}
	for i := range cluster.VMs {
		sections = append(sections, renderer.ResourceDetail(&cluster.VMs[i]))
	}
	for i := range cluster.Containers {
		sections = append(sections, renderer.ResourceDetail(&cluster.Containers[i]))
	}

	return strings.Join(sections, "\n\n---\n\n") + "\n"
}
