package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"file2pcie/pkg/classify"
	"file2pcie/pkg/printer"

	"github.com/shirou/gopsutil/disk"
	"github.com/spf13/cobra"
)

var (
	mountsAll  bool
	mountsJSON bool
)

// mountEntry 是一行挂载信息，Kind 决定该挂载点上的文件会被如何分类
type mountEntry struct {
	Device     string `json:"device"`
	MountPoint string `json:"mount_point"`
	FSType     string `json:"fs_type"`
	Kind       string `json:"kind"`
	Total      uint64 `json:"total_bytes,omitempty"`
	Used       uint64 `json:"used_bytes,omitempty"`
}

var mountsCmd = &cobra.Command{
	Use:         "mounts",
	Short:       "List mounted filesystems and whether files on them can be resolved",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{noApp: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		parts, err := disk.PartitionsWithContext(cmd.Context(), mountsAll)
		if err != nil {
			return fmt.Errorf("failed to list partitions: %w", err)
		}

		entries := make([]mountEntry, 0, len(parts))
		for _, p := range parts {
			e := mountEntry{
				Device:     p.Device,
				MountPoint: p.Mountpoint,
				FSType:     p.Fstype,
				Kind:       classify.LookupKind(p.Fstype).String(),
			}
			// 网络挂载可能卡住，只对本地文件系统取容量
			if e.Kind == classify.KindLocal.String() {
				if u, err := disk.UsageWithContext(cmd.Context(), p.Mountpoint); err == nil {
					e.Total, e.Used = u.Total, u.Used
				}
			}
			entries = append(entries, e)
		}

		if mountsJSON {
			return printer.WriteJSON(os.Stdout, entries)
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintf(tw, "DEVICE\tMOUNT\tTYPE\tKIND\tUSED/TOTAL\n")
		for _, e := range entries {
			usage := "-"
			if e.Total > 0 {
				usage = fmt.Sprintf("%.1f/%.1fGB", float64(e.Used)/(1<<30), float64(e.Total)/(1<<30))
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Device, e.MountPoint, e.FSType, e.Kind, usage)
		}
		return tw.Flush()
	},
}

func init() {
	mountsCmd.Flags().BoolVarP(&mountsAll, "all", "a", false, "include pseudo filesystems")
	mountsCmd.Flags().BoolVar(&mountsJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(mountsCmd)
}
