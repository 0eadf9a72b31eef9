package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	initForce bool

	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		RunE:  runInit,
	}
)

const starterConfig = `# Proxsync configuration
proxmox:
  host: pve.example.com
  port: 8006
  # API token with at least PVEAuditor on /
  token_id: docs@pve!proxsync
  # Or set PROXMOX_TOKEN_SECRET in the environment
  token_secret: ""
  verify_tls: true

craft:
  api_url: https://api.craft.do/v1
  # Or set CRAFT_API_KEY in the environment
  api_key: ""
  document_id: your-document-id

sync:
  # node, tag, status, or none
  group_by: node
  include_stopped: true
  include_storage: true
  include_backups: true
  include_snapshots: true
  show_alerts: true
  interval: 15m

alerts:
  # usage percentages; storage thresholds are free-space percent
  cpu_warning: 80
  cpu_critical: 95
  memory_warning: 80
  memory_critical: 95
  storage_warning: 20
  storage_critical: 10
  backup_warning_days: 7
  backup_critical_days: 30

log:
  level: info

telemetry:
  enabled: false
  otel_endpoint: localhost:4317
  insecure: true
`

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", configPath)
	}

	if err := os.WriteFile(configPath, []byte(starterConfig), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}

	fmt.Printf("✅ Wrote %s\n", configPath)
	fmt.Println("   Edit it with your Proxmox host and Craft document, then run 'proxsync sync'.")
	return nil
}
