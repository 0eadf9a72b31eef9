// Proxsync - Proxmox inventory to Craft Docs sync
// Fetch. Reconcile. Publish.
package main

func main() {
	Execute()
}
