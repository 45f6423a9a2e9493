package harvest

import (
	"context"
	"net"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/safing/portbase/container"
)

// Network harvest parameters. Round-trip times carry jitter from every
// queue between here and the endpoint; 4 bits per successful probe is a
// deliberate under-claim, capped so a lucky cycle cannot flood the
// estimate.
const (
	networkBitsPerProbe = 4
	networkBitsMax      = 16
)

// Default probe endpoints: anycast resolvers that answer a bare TCP
// handshake from almost anywhere.
var defaultProbeEndpoints = []string{
	"1.1.1.1:53",
	"8.8.8.8:53",
	"9.9.9.9:53",
}

// NetworkHarvester measures round-trip timing to reachable endpoints.
type NetworkHarvester struct {
	endpoints []string
	dialer    *net.Dialer
}

// NewNetworkHarvester returns a network latency harvester probing the
// given endpoints, or a default endpoint set if none are given.
func NewNetworkHarvester(endpoints []string) *NetworkHarvester {
	if len(endpoints) == 0 {
		endpoints = defaultProbeEndpoints
	}
	return &NetworkHarvester{
		endpoints: endpoints,
		dialer:    &net.Dialer{},
	}
}

// Name implements Harvester.
func (h *NetworkHarvester) Name() string {
	return SourceNetwork
}

// NeedsNetwork implements Harvester.
func (h *NetworkHarvester) NeedsNetwork() bool {
	return true
}

// Collect implements Harvester.
func (h *NetworkHarvester) Collect(ctx context.Context) ([]byte, int, error) {
	timings := container.New()

	var probeErrs *multierror.Error
	var succeeded int

	for _, endpoint := range h.endpoints {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		start := time.Now()
		conn, err := h.dialer.DialContext(ctx, "tcp", endpoint)
		rtt := time.Since(start).Nanoseconds()
		if err != nil {
			probeErrs = multierror.Append(probeErrs, err)
			continue
		}
		_ = conn.Close()

		timings.AppendNumber(uint64(rtt))
		succeeded++
	}

	if succeeded == 0 {
		return nil, 0, probeErrs.ErrorOrNil()
	}

	bits := succeeded * networkBitsPerProbe
	if bits > networkBitsMax {
		bits = networkBitsMax
	}
	return timings.CompileData(), bits, nil
}
