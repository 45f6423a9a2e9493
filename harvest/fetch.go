package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Common fetch errors.
var ErrUnexpectedStatusCode = errors.New("received unexpected status")

// maxPayloadSize caps how much of an external response is read. External
// feeds only need to contribute a hash-sized amount of unpredictability.
const maxPayloadSize = 256 * 1024

var fetchClient = &http.Client{
	// Per-request deadlines come from the harvest context.
	Transport: &http.Transport{
		DisableKeepAlives: true,
	},
}

func fetchPayload(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", "trueentropy")

	resp, err := fetchClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s from %s", ErrUnexpectedStatusCode, resp.Status, url)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("could not read response from %s: %w", url, err)
	}
	return payload, nil
}
