package trueentropy

import (
	"time"

	"github.com/safing/portbase/config"
	"github.com/safing/portbase/log"
	"github.com/safing/portbase/modules"

	"github.com/safing/trueentropy/harvest"
)

// Configuration keys.
const (
	cfgEnableTiming      = "entropy/enable_timing"
	cfgEnableSystem      = "entropy/enable_system"
	cfgEnableNetwork     = "entropy/enable_network"
	cfgEnableExternal    = "entropy/enable_external"
	cfgEnableWeather     = "entropy/enable_weather"
	cfgEnableRadioactive = "entropy/enable_radioactive"
	cfgOfflineMode       = "entropy/offline_mode"
	cfgCycleInterval     = "entropy/cycle_interval"
	cfgHybridCipher      = "entropy/hybrid_cipher"
)

var (
	enableTiming      config.BoolOption
	enableSystem      config.BoolOption
	enableNetwork     config.BoolOption
	enableExternal    config.BoolOption
	enableWeather     config.BoolOption
	enableRadioactive config.BoolOption
	offlineMode       config.BoolOption
	cycleInterval     config.IntOption
	hybridCipher      config.StringOption
)

func init() {
	modules.Register("entropy", prep, start, stop, "base")
}

func prep() error {
	sourceOptions := []struct {
		key    string
		name   string
		desc   string
		option *config.BoolOption
	}{
		{cfgEnableTiming, "Timing Entropy Source", "Harvest entropy from CPU and scheduler timing jitter.", &enableTiming},
		{cfgEnableSystem, "System Entropy Source", "Harvest entropy from volatile system state.", &enableSystem},
		{cfgEnableNetwork, "Network Entropy Source", "Harvest entropy from network round-trip jitter. Requires network access.", &enableNetwork},
		{cfgEnableExternal, "External Feed Entropy Source", "Harvest entropy from external data feeds. Requires network access.", &enableExternal},
		{cfgEnableWeather, "Weather Entropy Source", "Harvest entropy from live weather measurements. Requires network access.", &enableWeather},
		{cfgEnableRadioactive, "Quantum Entropy Source", "Harvest entropy from a quantum random number service. Requires network access.", &enableRadioactive},
	}
	for _, src := range sourceOptions {
		err := config.Register(&config.Option{
			Name:           src.name,
			Key:            src.key,
			Description:    src.desc,
			OptType:        config.OptTypeBool,
			ExpertiseLevel: config.ExpertiseLevelExpert,
			ReleaseLevel:   config.ReleaseLevelStable,
			DefaultValue:   true,
		})
		if err != nil {
			return err
		}
		*src.option = config.Concurrent.GetAsBool(src.key, true)
	}

	err := config.Register(&config.Option{
		Name:           "Offline Mode",
		Key:            cfgOfflineMode,
		Description:    "Disable all entropy sources that require network access, regardless of their individual settings.",
		OptType:        config.OptTypeBool,
		ExpertiseLevel: config.ExpertiseLevelUser,
		ReleaseLevel:   config.ReleaseLevelStable,
		DefaultValue:   false,
	})
	if err != nil {
		return err
	}
	offlineMode = config.Concurrent.GetAsBool(cfgOfflineMode, false)

	err = config.Register(&config.Option{
		Name:            "Harvest Cycle Interval",
		Key:             cfgCycleInterval,
		Description:     "Seconds between background harvest cycles.",
		OptType:         config.OptTypeInt,
		ExpertiseLevel:  config.ExpertiseLevelExpert,
		ReleaseLevel:    config.ReleaseLevelStable,
		DefaultValue:    1,
		ValidationRegex: "^[1-9][0-9]{0,3}$",
	})
	if err != nil {
		return err
	}
	cycleInterval = config.Concurrent.GetAsInt(cfgCycleInterval, 1)

	err = config.Register(&config.Option{
		Name:           "Hybrid Generator Cipher",
		Key:            cfgHybridCipher,
		Description:    "Cipher to use for the hybrid fortuna generator. Requires restart to take effect.",
		OptType:        config.OptTypeString,
		ExpertiseLevel: config.ExpertiseLevelDeveloper,
		ReleaseLevel:   config.ReleaseLevelExperimental,
		Annotations: config.Annotations{
			config.DisplayHintAnnotation: "string list",
		},
		DefaultValue:    "aes",
		ValidationRegex: "^(aes|serpent)$",
	})
	if err != nil {
		return err
	}
	hybridCipher = config.Concurrent.GetAsString(cfgHybridCipher, "aes")

	return nil
}

func optionsFromConfig() Options {
	return Options{
		Sources: harvest.Sources{
			Timing:      enableTiming(),
			System:      enableSystem(),
			Network:     enableNetwork(),
			External:    enableExternal(),
			Weather:     enableWeather(),
			Radioactive: enableRadioactive(),
		},
		Offline:       offlineMode(),
		CycleInterval: time.Duration(cycleInterval()) * time.Second,
		HybridCipher:  hybridCipher(),
	}
}

func start() error {
	if err := Configure(optionsFromConfig()); err != nil {
		return err
	}
	if err := StartCollector(); err != nil {
		return err
	}
	log.Info("entropy: harvest collector started")
	return nil
}

func stop() error {
	return StopCollector()
}
