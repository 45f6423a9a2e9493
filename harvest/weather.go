package harvest

import (
	"context"
	"crypto/sha256"
	"time"

	"github.com/tidwall/gjson"

	"github.com/safing/portbase/container"
)

// weatherEntropyBits is the claim for one weather snapshot. Weather is
// measured, public data that changes slowly; only the measurement noise
// in the low digits is credited.
const weatherEntropyBits = 16

// Observation point for the default weather feed. The exact location is
// irrelevant, it only needs live instrument readings.
const defaultWeatherURL = "https://api.open-meteo.com/v1/forecast" +
	"?latitude=52.52&longitude=13.41" +
	"&current=temperature_2m,wind_speed_10m,wind_direction_10m,surface_pressure"

var weatherFields = []string{
	"current.temperature_2m",
	"current.wind_speed_10m",
	"current.wind_direction_10m",
	"current.surface_pressure",
}

// WeatherHarvester samples live atmospheric measurements.
type WeatherHarvester struct {
	url string
}

// NewWeatherHarvester returns a weather data harvester.
func NewWeatherHarvester() *WeatherHarvester {
	return &WeatherHarvester{url: defaultWeatherURL}
}

// Name implements Harvester.
func (h *WeatherHarvester) Name() string {
	return SourceWeather
}

// NeedsNetwork implements Harvester.
func (h *WeatherHarvester) NeedsNetwork() bool {
	return true
}

// Collect implements Harvester.
func (h *WeatherHarvester) Collect(ctx context.Context) ([]byte, int, error) {
	payload, err := fetchPayload(ctx, h.url)
	if err != nil {
		return nil, 0, err
	}

	gathered := container.New()
	digest := sha256.Sum256(payload)
	gathered.Append(digest[:])
	gathered.AppendNumber(uint64(time.Now().UnixNano()))
	for _, field := range weatherFields {
		if value := gjson.GetBytes(payload, field); value.Exists() {
			gathered.AppendAsBlock([]byte(value.Raw))
		}
	}

	return gathered.CompileData(), weatherEntropyBits, nil
}
