package system

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"

	"github.com/vietddude/nodepulse/internal/core/domain"
)

// HostSource samples the local host directly. It is used for nodes that run
// on the same machine and expose no metrics endpoint.
type HostSource struct {
	excludeDevices []string
}

// NewHostSource creates a source for the local host.
func NewHostSource(excludeDevices []string) *HostSource {
	return &HostSource{excludeDevices: excludeDevices}
}

// Fetch reads memory, CPU times, interface counters and load averages.
func (h *HostSource) Fetch(ctx context.Context) (*domain.SystemSnapshot, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: memory: %w", ErrMetricsUnavailable, err)
	}

	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("%w: cpu times: %w", ErrMetricsUnavailable, err)
	}

	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%w: cpu count: %w", ErrMetricsUnavailable, err)
	}

	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("%w: net counters: %w", ErrMetricsUnavailable, err)
	}

	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: load: %w", ErrMetricsUnavailable, err)
	}

	snap := &domain.SystemSnapshot{
		RAMTotalBytes:     float64(vm.Total),
		RAMAvailableBytes: float64(vm.Available),
		Load1:             avg.Load1,
		Load5:             avg.Load5,
		Load15:            avg.Load15,
		CPUCores:          cores,
	}
	for _, t := range times {
		snap.CPUUserSeconds += t.User
		snap.CPUSystemSeconds += t.System
	}
	for _, c := range counters {
		if h.excluded(c.Name) {
			continue
		}
		snap.NetReceiveBytes += float64(c.BytesRecv)
		snap.NetTransmitBytes += float64(c.BytesSent)
	}

	return snap, nil
}

func (h *HostSource) excluded(device string) bool {
	for _, p := range h.excludeDevices {
		if p != "" && strings.HasPrefix(device, p) {
			return true
		}
	}
	return false
}
