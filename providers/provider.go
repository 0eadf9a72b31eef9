// Package providers contains the backends the sync pipeline talks to:
// Proxmox as the inventory source, Craft as the document store.
package providers

import (
	"context"

	"github.com/tylwright/craft-docs-proxmox/types"
)

// InventorySource produces a cluster snapshot for one sync pass
type InventorySource interface {
	FetchCluster(ctx context.Context, filter types.InventoryFilter) (*types.Cluster, error)
}
