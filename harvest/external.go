package harvest

import (
	"context"
	"crypto/sha256"
	"math"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"

	"github.com/safing/portbase/container"
)

// externalEntropyBits is the claim for one external feed snapshot. The
// payloads are public, so the claim only covers timing and the volatile
// fields, not the payload size.
const externalEntropyBits = 32

// externalFeed is one external data source with the volatile JSON fields
// worth folding in on top of the payload hash.
type externalFeed struct {
	url    string
	fields []string
}

// Default feeds: fast-moving public data with no auth requirements.
var defaultExternalFeeds = []externalFeed{
	{
		// Bitcoin block tip: hash and height change every ~10 minutes,
		// mempool-dependent fields faster.
		url:    "https://blockchain.info/latestblock",
		fields: []string{"hash", "height", "time"},
	},
	{
		// Exchange rates move continuously during trading hours.
		url:    "https://api.coinbase.com/v2/exchange-rates?currency=BTC",
		fields: []string{"data.rates.USD", "data.rates.EUR"},
	},
}

// ExternalHarvester fetches unpredictable payloads from external data
// sources. The whole payload is hashed and selected volatile fields are
// folded in separately, so a feed that pads its responses still only
// contributes what actually changed.
type ExternalHarvester struct {
	feeds []externalFeed
}

// NewExternalHarvester returns an external feed harvester fetching the
// given URLs, or a default feed set if none are given.
func NewExternalHarvester(urls []string) *ExternalHarvester {
	feeds := defaultExternalFeeds
	if len(urls) > 0 {
		feeds = make([]externalFeed, 0, len(urls))
		for _, url := range urls {
			feeds = append(feeds, externalFeed{url: url})
		}
	}
	return &ExternalHarvester{feeds: feeds}
}

// Name implements Harvester.
func (h *ExternalHarvester) Name() string {
	return SourceExternal
}

// NeedsNetwork implements Harvester.
func (h *ExternalHarvester) NeedsNetwork() bool {
	return true
}

// Collect implements Harvester.
func (h *ExternalHarvester) Collect(ctx context.Context) ([]byte, int, error) {
	gathered := container.New()

	var fetchErrs *multierror.Error
	var succeeded int

	for _, feed := range h.feeds {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		payload, err := fetchPayload(ctx, feed.url)
		if err != nil {
			fetchErrs = multierror.Append(fetchErrs, err)
			continue
		}

		digest := sha256.Sum256(payload)
		gathered.Append(digest[:])
		gathered.AppendNumber(uint64(time.Now().UnixNano()))
		for _, field := range feed.fields {
			if value := gjson.GetBytes(payload, field); value.Exists() {
				gathered.AppendAsBlock([]byte(value.String()))
			}
		}
		succeeded++
	}

	if succeeded == 0 {
		return nil, 0, fetchErrs.ErrorOrNil()
	}

	bits := int(math.Round(float64(externalEntropyBits*succeeded) / float64(len(h.feeds))))
	return gathered.CompileData(), bits, nil
}
