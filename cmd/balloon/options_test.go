package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/balloon/pages"
	"golang.org/x/exp/slog"
)

func TestResolvePages(t *testing.T) {
	count, err := resolvePages(100, "", 4096)
	require.NoError(t, err)
	require.Equal(t, 100, count)

	count, err = resolvePages(0, "4M", 4096)
	require.NoError(t, err)
	require.Equal(t, 1024, count)

	count, err = resolvePages(0, "6K", 4096)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = resolvePages(0, "", 4096)
	require.NoError(t, err)
	require.Equal(t, 0, count)

	_, err = resolvePages(1, "4M", 4096)
	require.Error(t, err)

	_, err = resolvePages(-1, "", 4096)
	require.Error(t, err)

	_, err = resolvePages(0, "lots", 4096)
	require.Error(t, err)
}

func TestParseNodeLimits(t *testing.T) {
	limits, err := parseNodeLimits(map[string]string{"0": "1024", "1": "8M"}, 4096)
	require.NoError(t, err)
	require.Equal(t, map[int]int{0: 1024, 1: 2048}, limits)

	limits, err = parseNodeLimits(nil, 4096)
	require.NoError(t, err)
	require.Empty(t, limits)

	_, err = parseNodeLimits(map[string]string{"zero": "1"}, 4096)
	require.Error(t, err)

	_, err = parseNodeLimits(map[string]string{"-1": "1"}, 4096)
	require.Error(t, err)

	_, err = parseNodeLimits(map[string]string{"0": "-3"}, 4096)
	require.Error(t, err)

	_, err = parseNodeLimits(map[string]string{"0": "many"}, 4096)
	require.Error(t, err)
}

func TestSelectNodes(t *testing.T) {
	nodes, err := selectNodes([]int{0, 1, 2}, nil)
	require.NoError(t, err)
	require.Equal(t, []int{0, 1, 2}, nodes)

	nodes, err = selectNodes([]int{0, 1, 2}, []int{2, 0})
	require.NoError(t, err)
	require.Equal(t, []int{2, 0}, nodes)

	_, err = selectNodes([]int{0, 1}, []int{3})
	require.Error(t, err)
}

func TestParsePopulateMode(t *testing.T) {
	mode, err := parsePopulateMode("advise")
	require.NoError(t, err)
	require.Equal(t, pages.PopulateAdvise, mode)

	mode, err = parsePopulateMode("LOCK")
	require.NoError(t, err)
	require.Equal(t, pages.PopulateLock, mode)

	_, err = parsePopulateMode("touch")
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	jsonLogger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	jsonLogger.Info("hidden")
	require.Zero(t, buf.Len())
	jsonLogger.Warn("shown", slog.Int("node", 1))
	require.Contains(t, buf.String(), `"node":1`)

	_, err = newLogger(&buf, "info", "yaml")
	require.Error(t, err)

	_, err = newLogger(&buf, "loud", "text")
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	require.Contains(t, buf.String(), "balloon dev")
}
