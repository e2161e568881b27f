package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vkngwrapper/balloon/topology"
	"golang.org/x/exp/slog"
)

var (
	topologySysRoot  string
	topologyProcRoot string
)

func init() {
	cmd := newTopologyCmd()
	cmd.Flags().StringVar(&topologySysRoot, "sysfs-root", "/", "Root under which /sys is read")
	cmd.Flags().StringVar(&topologyProcRoot, "procfs-root", "/proc", "Mount point of procfs")
	rootCmd.AddCommand(cmd)
}

func newTopologyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "topology",
		Short: "Show online NUMA nodes and their free blocks per order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopology(cmd)
		},
	}
}

func runTopology(cmd *cobra.Command) error {
	nodes, err := topology.OnlineNodes(topologySysRoot)
	if err != nil {
		return err
	}

	zones, err := topology.ReadBuddyInfo(topologyProcRoot)
	if err != nil {
		logger.Warn("cannot read buddyinfo", slog.Any("error", err))
	}
	free := topology.FreePagesByNode(zones)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "max order: %d\n", topology.MaxOrder(zones))
	for _, node := range nodes {
		fmt.Fprintf(out, "node %d: total %s, usable %s, free %d pages\n",
			node.ID,
			formatBytes(node.TotalBytes),
			formatBytes(node.UsableBytes),
			free[node.ID])

		for _, zone := range zones {
			if zone.Node != node.ID {
				continue
			}

			counts := make([]string, len(zone.FreeBlocks))
			for order, count := range zone.FreeBlocks {
				counts[order] = fmt.Sprintf("%d", count)
			}
			fmt.Fprintf(out, "  zone %-8s %s\n", zone.Zone, strings.Join(counts, " "))
		}
	}
	return nil
}

func formatBytes(bytes int64) string {
	if bytes <= 0 {
		return "unknown"
	}
	return formatPages(int(bytes), 1)
}
