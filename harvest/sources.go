package harvest

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Source identifiers.
const (
	SourceTiming      = "timing"
	SourceSystem      = "system"
	SourceNetwork     = "network"
	SourceExternal    = "external"
	SourceWeather     = "weather"
	SourceRadioactive = "radioactive"
)

// ErrNoSources is returned when a configuration enables no source at all.
var ErrNoSources = errors.New("at least one entropy source must be enabled")

var allSources = []string{
	SourceTiming,
	SourceSystem,
	SourceNetwork,
	SourceExternal,
	SourceWeather,
	SourceRadioactive,
}

// Sources selects which harvesters to run. The zero value enables
// nothing and does not validate; use DefaultSources for an
// everything-on configuration.
type Sources struct {
	Timing      bool
	System      bool
	Network     bool
	External    bool
	Weather     bool
	Radioactive bool
}

// DefaultSources enables every source.
func DefaultSources() Sources {
	return Sources{
		Timing:      true,
		System:      true,
		Network:     true,
		External:    true,
		Weather:     true,
		Radioactive: true,
	}
}

// OfflineSources enables only sources that work without network access.
func OfflineSources() Sources {
	return Sources{
		Timing: true,
		System: true,
	}
}

// Validate checks that the selection can replenish a pool at all.
func (s Sources) Validate() error {
	var errs *multierror.Error
	if len(s.Enabled()) == 0 {
		errs = multierror.Append(errs, ErrNoSources)
	}
	return errs.ErrorOrNil()
}

// Enabled returns the enabled source identifiers in stable order.
func (s Sources) Enabled() []string {
	enabled := make([]string, 0, len(allSources))
	for _, name := range allSources {
		if s.IsEnabled(name) {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

// IsEnabled reports whether the named source is enabled. Unknown names
// report false.
func (s Sources) IsEnabled(name string) bool {
	switch name {
	case SourceTiming:
		return s.Timing
	case SourceSystem:
		return s.System
	case SourceNetwork:
		return s.Network
	case SourceExternal:
		return s.External
	case SourceWeather:
		return s.Weather
	case SourceRadioactive:
		return s.Radioactive
	default:
		return false
	}
}

// NeedsNetwork reports whether the named source depends on network
// access.
func NeedsNetwork(name string) bool {
	switch name {
	case SourceNetwork, SourceExternal, SourceWeather, SourceRadioactive:
		return true
	default:
		return false
	}
}

// Build validates the selection and constructs the enabled harvesters.
func (s Sources) Build() ([]Harvester, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	harvesters := make([]Harvester, 0, len(allSources))
	for _, name := range s.Enabled() {
		switch name {
		case SourceTiming:
			harvesters = append(harvesters, NewTimingHarvester())
		case SourceSystem:
			harvesters = append(harvesters, NewSystemHarvester())
		case SourceNetwork:
			harvesters = append(harvesters, NewNetworkHarvester(nil))
		case SourceExternal:
			harvesters = append(harvesters, NewExternalHarvester(nil))
		case SourceWeather:
			harvesters = append(harvesters, NewWeatherHarvester())
		case SourceRadioactive:
			harvesters = append(harvesters, NewRadioactiveHarvester())
		default:
			return nil, fmt.Errorf("unknown entropy source: %s", name)
		}
	}
	return harvesters, nil
}
