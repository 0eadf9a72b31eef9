package proxmox

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/tylwright/craft-docs-proxmox/types"
)

var (
	netKeyRe  = regexp.MustCompile(`^net(\d+)$`)
	diskKeyRe = regexp.MustCompile(`^(scsi|virtio|sata|ide)(\d+)$`)
)

// netModels are the QEMU NIC models that appear as the model=MAC pair in
// a net device string
var netModels = map[string]bool{
	"virtio":  true,
	"e1000":   true,
	"e1000e":  true,
	"rtl8139": true,
	"vmxnet3": true,
}

// ParseTags splits the listing's tag field. Proxmox separates with
// semicolons, older setups sometimes with commas.
func ParseTags(raw string) []string {
	return splitList(raw, ";,")
}

func splitList(raw, seps string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return strings.ContainsRune(seps, r)
	})
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// parseInterfaces extracts netN devices from a guest config, in index order
func parseInterfaces(cfg map[string]any) []types.NetworkInterface {
	var keys []string
	for key := range cfg {
		if netKeyRe.MatchString(key) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return netIndex(keys[i]) < netIndex(keys[j])
	})

	var ifaces []types.NetworkInterface
	for _, key := range keys {
		raw, ok := cfg[key].(string)
		if !ok || raw == "" {
			continue
		}
		ifaces = append(ifaces, parseNetDevice(key, raw))
	}
	return ifaces
}

func netIndex(key string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(key, "net"))
	return n
}

// parseNetDevice decodes one device string, e.g.
// "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0,tag=100" for QEMU or
// "name=eth0,bridge=vmbr0,hwaddr=...,ip=10.0.0.5/24,gw=10.0.0.1" for LXC
func parseNetDevice(name, raw string) types.NetworkInterface {
	iface := types.NetworkInterface{Name: name}
	for _, part := range strings.Split(raw, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key, val := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])
		switch {
		case key == "bridge":
			iface.Bridge = val
		case key == "tag":
			iface.VLANTag, _ = strconv.Atoi(val)
		case key == "ip":
			if val != "dhcp" && val != "manual" {
				iface.IPAddress = strings.SplitN(val, "/", 2)[0]
			}
		case key == "gw":
			iface.Gateway = val
		case key == "hwaddr":
			iface.MACAddress = val
		case key == "name":
			iface.Name = val
		case netModels[key]:
			iface.Model = key
			iface.MACAddress = val
		}
	}
	return iface
}

// parseDiskInfo summarizes the configured disks, e.g.
// "scsi0: 32G on local-lvm, scsi1: 1T on tank"
func parseDiskInfo(cfg map[string]any, kind types.Kind) string {
	var keys []string
	if kind == types.KindContainer {
		if _, ok := cfg["rootfs"]; ok {
			keys = []string{"rootfs"}
		}
	} else {
		for key := range cfg {
			if diskKeyRe.MatchString(key) {
				keys = append(keys, key)
			}
		}
		sort.Strings(keys)
	}

	var parts []string
	for _, key := range keys {
		raw, ok := cfg[key].(string)
		if !ok || raw == "" || strings.Contains(raw, "media=cdrom") {
			continue
		}
		if entry := describeDisk(key, raw); entry != "" {
			parts = append(parts, entry)
		}
	}
	return strings.Join(parts, ", ")
}

// describeDisk decodes a volume string like "local-lvm:vm-100-disk-0,size=32G"
func describeDisk(key, raw string) string {
	fields := strings.Split(raw, ",")
	storage := strings.SplitN(fields[0], ":", 2)[0]

	size := ""
	for _, f := range fields[1:] {
		if v, ok := strings.CutPrefix(strings.TrimSpace(f), "size="); ok {
			size = v
			break
		}
	}

	switch {
	case size != "" && storage != "":
		return fmt.Sprintf("%s: %s on %s", key, size, storage)
	case storage != "":
		return fmt.Sprintf("%s: %s", key, storage)
	default:
		return ""
	}
}

// UsableIP reports whether an address is worth publishing. Loopback and
// link-local addresses from guest agents are noise.
func UsableIP(ip string) bool {
	if ip == "" || ip == "::1" {
		return false
	}
	if strings.HasPrefix(ip, "127.") || strings.HasPrefix(ip, "fe80") {
		return false
	}
	return true
}
