package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/balloon/balloon"
	"github.com/vkngwrapper/balloon/pages"
	"github.com/vkngwrapper/balloon/topology"
	"golang.org/x/exp/slog"
)

const (
	sourceMmap = "mmap"
	sourceSim  = "sim"
)

type inflateOptions struct {
	pages      int
	size       string
	maxOrder   int
	nodes      []int
	nodeLimits map[string]string

	sysRoot  string
	procRoot string

	source      string
	simNodeSize string
	populate    string
	thpOrder    int

	hold      time.Duration
	statsPath string
	detailed  bool
}

func init() {
	rootCmd.AddCommand(newInflateCmd())
}

func newInflateCmd() *cobra.Command {
	opts := &inflateOptions{}

	cmd := &cobra.Command{
		Use:   "inflate",
		Short: "Reserve pages across NUMA nodes and hold them until told to stop",
		Long: `The inflate command divides the requested page count evenly across the online
NUMA nodes, reserves each node's share in the largest blocks the node will give,
and holds them until SIGINT, SIGTERM or the --hold duration. Every block is then
released.

Example:
  balloon inflate --pages 262144
  balloon inflate --size 4G --nodes 0,1 --hold 10m
  balloon inflate --size 1G --source sim --sim-node-size 512M --log-level debug`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInflate(cmd.Context(), opts)
		},
	}

	cmd.Flags().IntVar(&opts.pages, "pages", 0, "Total number of pages to reserve")
	cmd.Flags().StringVar(&opts.size, "size", "", "Total size to reserve, e.g. 512M or 4G")
	cmd.Flags().IntVar(&opts.maxOrder, "max-order", 0, "Exclusive ceiling on block orders (default from /proc/buddyinfo)")
	cmd.Flags().IntSliceVar(&opts.nodes, "nodes", nil, "Restrict the balloon to these node ids")
	cmd.Flags().StringToStringVar(&opts.nodeLimits, "node-limit", nil, "Per-node cap in pages or bytes, e.g. 0=1G,1=1024")
	cmd.Flags().StringVar(&opts.sysRoot, "sysfs-root", "/", "Root under which /sys is read")
	cmd.Flags().StringVar(&opts.procRoot, "procfs-root", "/proc", "Mount point of procfs")
	cmd.Flags().StringVar(&opts.source, "source", sourceMmap, "Page source: mmap or sim")
	cmd.Flags().StringVar(&opts.simNodeSize, "sim-node-size", "1G", "Memory per node for the sim source")
	cmd.Flags().StringVar(&opts.populate, "populate", pages.PopulateLock.String(), "How mmap blocks are faulted in: lock or advise")
	cmd.Flags().IntVar(&opts.thpOrder, "thp-order", 0, "Advise blocks of this order and above for transparent huge pages (0 disables)")
	cmd.Flags().DurationVar(&opts.hold, "hold", 0, "Release after this long instead of waiting for a signal")
	cmd.Flags().StringVar(&opts.statsPath, "stats", "", "Write JSON statistics to this file once inflated")
	cmd.Flags().BoolVar(&opts.detailed, "stats-detailed", false, "Include every block in the JSON statistics")

	return cmd
}

func runInflate(ctx context.Context, opts *inflateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	nodes, err := resolveNodes(opts)
	if err != nil {
		return err
	}

	maxOrder := opts.maxOrder
	if maxOrder == 0 {
		maxOrder = detectMaxOrder(opts.procRoot)
	}

	source, err := newSource(opts, nodes, maxOrder)
	if err != nil {
		return err
	}
	pageSize := source.PageSize()

	totalPages, err := resolvePages(opts.pages, opts.size, pageSize)
	if err != nil {
		return err
	}

	limits, err := parseNodeLimits(opts.nodeLimits, pageSize)
	if err != nil {
		return err
	}

	b, err := balloon.New(logger, source, nodes, balloon.CreateOptions{
		MaxOrder:       maxOrder,
		NodePageLimits: limits,
	})
	if err != nil {
		return err
	}

	report, err := b.Inflate(totalPages)
	if err != nil {
		return err
	}
	logInflateReport(report, pageSize)

	if opts.statsPath != "" {
		err = os.WriteFile(opts.statsPath, []byte(b.BuildStatsString(opts.detailed)), 0o644)
		if err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "cannot write statistics",
				slog.String("path", opts.statsPath),
				slog.Any("error", err))
		}
	}

	waitForRelease(ctx, opts.hold)

	release, err := b.Deflate()
	logger.Info("balloon released",
		slog.Int("pagesFreed", release.Freed),
		slog.String("bytesFreed", formatPages(release.Freed, pageSize)),
		slog.Int("blocksFreed", release.Blocks))
	return err
}

func resolveNodes(opts *inflateOptions) ([]int, error) {
	if opts.source == sourceSim && len(opts.nodes) > 0 {
		return opts.nodes, nil
	}

	online, err := topology.OnlineNodes(opts.sysRoot)
	if err != nil {
		return nil, err
	}
	return selectNodes(topology.NodeIDs(online), opts.nodes)
}

func detectMaxOrder(procRoot string) int {
	zones, err := topology.ReadBuddyInfo(procRoot)
	if err != nil {
		logger.Warn("cannot read buddyinfo, using the default max order",
			slog.Int("maxOrder", topology.DefaultMaxOrder),
			slog.Any("error", err))
		return topology.DefaultMaxOrder
	}
	return topology.MaxOrder(zones)
}

func newSource(opts *inflateOptions, nodes []int, maxOrder int) (pages.Source, error) {
	switch opts.source {
	case sourceMmap:
		populate, err := parsePopulateMode(opts.populate)
		if err != nil {
			return nil, err
		}
		return pages.NewMmapSource(logger, pages.MmapOptions{
			Populate:      populate,
			HugePageOrder: opts.thpOrder,
		})
	case sourceSim:
		pageSize := os.Getpagesize()
		nodePages, err := resolvePages(0, opts.simNodeSize, pageSize)
		if err != nil {
			return nil, errors.Wrap(err, "invalid --sim-node-size")
		}

		arenas := make(map[int]int, len(nodes))
		for _, node := range nodes {
			arenas[node] = nodePages
		}
		return pages.NewBuddySource(logger, maxOrder, pageSize, arenas)
	}
	return nil, errors.Newf("unknown page source %q, expected mmap or sim", opts.source)
}

func logInflateReport(report balloon.InflateReport, pageSize int) {
	logger.Info("balloon inflated",
		slog.Int("totalPages", report.TotalPages),
		slog.Int("pagesPerNode", report.PerNode),
		slog.Int("droppedPages", report.Dropped),
		slog.Int("acquiredPages", report.Acquired),
		slog.String("acquiredBytes", formatPages(report.Acquired, pageSize)),
		slog.Int("unmetPages", report.Unmet))

	for _, node := range report.Nodes {
		attrs := []slog.Attr{
			slog.Int("node", node.Node),
			slog.Int("target", node.Target),
			slog.Int("initialOrder", node.InitialOrder),
			slog.Int("acquired", node.Acquired),
			slog.Int("unmet", node.Unmet),
			slog.Int("overshoot", node.Overshoot),
			slog.Int("fallbacks", node.Fallbacks),
		}

		level := slog.LevelInfo
		if err := node.Err(); err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.Any("error", err))
		}
		logger.LogAttrs(context.Background(), level, "node report", attrs...)
	}
}

func waitForRelease(ctx context.Context, hold time.Duration) {
	if hold <= 0 {
		logger.Info("holding pages until interrupted")
		<-ctx.Done()
		return
	}

	logger.Info("holding pages", slog.Duration("hold", hold))
	timer := time.NewTimer(hold)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
