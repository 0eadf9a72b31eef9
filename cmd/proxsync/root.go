package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string

	rootCmd = &cobra.Command{
		Use:   "proxsync",
		Short: "Sync Proxmox inventory into Craft Docs",
		Long: `Proxsync - Proxmox to Craft Docs sync

Proxsync fetches your Proxmox VE cluster inventory and publishes it as
living documentation in Craft. Resource pages carry alert indicators,
backup status, and a Notes section that survives every sync, so your
runbooks live next to the facts.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "proxsync.yaml", "Config file path")
	rootCmd.SetVersionTemplate(`Proxsync {{.Version}} - Proxmox to Craft Docs sync
`)
}
