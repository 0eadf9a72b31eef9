package proxmox

import (
	"reflect"
	"testing"

	"github.com/tylwright/craft-docs-proxmox/types"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"single", "prod", []string{"prod"}},
		{"semicolons", "prod;web;monitoring", []string{"prod", "web", "monitoring"}},
		{"commas", "prod,web", []string{"prod", "web"}},
		{"whitespace and empties", " prod ; ; web ", []string{"prod", "web"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTags(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTags(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseNetDevice(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  string
		want types.NetworkInterface
	}{
		{
			name: "qemu virtio with vlan",
			key:  "net0",
			raw:  "virtio=AA:BB:CC:DD:EE:FF,bridge=vmbr0,tag=100",
			want: types.NetworkInterface{
				Name: "net0", Model: "virtio", MACAddress: "AA:BB:CC:DD:EE:FF",
				Bridge: "vmbr0", VLANTag: 100,
			},
		},
		{
			name: "lxc static ip",
			key:  "net0",
			raw:  "name=eth0,bridge=vmbr1,hwaddr=11:22:33:44:55:66,ip=10.0.0.5/24,gw=10.0.0.1",
			want: types.NetworkInterface{
				Name: "eth0", Bridge: "vmbr1", MACAddress: "11:22:33:44:55:66",
				IPAddress: "10.0.0.5", Gateway: "10.0.0.1",
			},
		},
		{
			name: "dhcp yields no static ip",
			key:  "net1",
			raw:  "name=eth1,bridge=vmbr0,ip=dhcp",
			want: types.NetworkInterface{Name: "eth1", Bridge: "vmbr0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseNetDevice(tt.key, tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseNetDevice() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseInterfacesOrdering(t *testing.T) {
	cfg := map[string]any{
		"net10":  "virtio=AA:AA:AA:AA:AA:10,bridge=vmbr0",
		"net2":   "virtio=AA:AA:AA:AA:AA:02,bridge=vmbr0",
		"net0":   "virtio=AA:AA:AA:AA:AA:00,bridge=vmbr0",
		"ostype": "l26",
	}

	ifaces := parseInterfaces(cfg)
	if len(ifaces) != 3 {
		t.Fatalf("expected 3 interfaces, got %d", len(ifaces))
	}
	// numeric index order, not lexical (net10 after net2)
	want := []string{"net0", "net2", "net10"}
	for i, name := range want {
		if ifaces[i].Name != name {
			t.Errorf("interface %d = %s, want %s", i, ifaces[i].Name, name)
		}
	}
}

func TestParseDiskInfo(t *testing.T) {
	tests := []struct {
		name string
		cfg  map[string]any
		kind types.Kind
		want string
	}{
		{
			name: "qemu multiple disks sorted",
			cfg: map[string]any{
				"scsi1": "tank:vm-100-disk-1,size=1T",
				"scsi0": "local-lvm:vm-100-disk-0,size=32G",
			},
			kind: types.KindVM,
			want: "scsi0: 32G on local-lvm, scsi1: 1T on tank",
		},
		{
			name: "cdrom skipped",
			cfg: map[string]any{
				"ide2":  "local:iso/debian.iso,media=cdrom",
				"scsi0": "local-lvm:vm-100-disk-0,size=32G",
			},
			kind: types.KindVM,
			want: "scsi0: 32G on local-lvm",
		},
		{
			name: "container rootfs",
			cfg:  map[string]any{"rootfs": "local-lvm:vm-200-disk-0,size=8G"},
			kind: types.KindContainer,
			want: "rootfs: 8G on local-lvm",
		},
		{
			name: "no disks",
			cfg:  map[string]any{"ostype": "l26"},
			kind: types.KindVM,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseDiskInfo(tt.cfg, tt.kind); got != tt.want {
				t.Errorf("parseDiskInfo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUsableIP(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"10.0.0.5", true},
		{"192.168.1.20", true},
		{"127.0.0.1", false},
		{"::1", false},
		{"fe80::1ff:fe23:4567:890a", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := UsableIP(tt.ip); got != tt.want {
			t.Errorf("UsableIP(%q) = %v, want %v", tt.ip, got, tt.want)
		}
	}
}
