package tap

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
	"sync"
	"time"

	"github.com/aead/serpent"
	"github.com/seehuhn/fortuna"
)

// Hybrid reseed budget. The fortuna generator serves draws on its own
// until either budget is exceeded, then takes a fresh seed from the pool.
const (
	defaultReseedAfterBytes = 64 * 1024
	defaultReseedAfter      = 10 * time.Minute
)

const seedSize = 32

// Hybrid serves high-volume, lower-assurance draws from a fast fortuna
// generator that is seeded from a true entropy source. It implements
// Source, so a Tap can be layered on top of it for typed values without
// draining the pool on every call.
type Hybrid struct {
	lock sync.Mutex

	gen  *fortuna.Generator
	seed Source

	bytesServed int64
	lastSeeded  time.Time

	reseedAfterBytes int64
	reseedAfter      time.Duration
}

// NewHybrid returns a hybrid source seeded once from seed. Supported
// ciphers are "aes" (also the default for an empty name) and "serpent".
func NewHybrid(seed Source, cipherName string) (*Hybrid, error) {
	newCipher, err := cipherFactory(cipherName)
	if err != nil {
		return nil, err
	}

	h := &Hybrid{
		gen:              fortuna.NewGenerator(newCipher),
		seed:             seed,
		reseedAfterBytes: defaultReseedAfterBytes,
		reseedAfter:      defaultReseedAfter,
	}
	if err := h.reseed(); err != nil {
		return nil, err
	}
	return h, nil
}

func cipherFactory(name string) (func(key []byte) (cipher.Block, error), error) {
	switch name {
	case "", "aes":
		return aes.NewCipher, nil
	case "serpent":
		return serpent.NewCipher, nil
	default:
		return nil, fmt.Errorf("unknown or unsupported cipher: %s", name)
	}
}

// Extract implements Source.
func (h *Hybrid) Extract(n int) (data []byte, err error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: cannot extract %d bytes", ErrInvalidCount, n)
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	if err := h.checkSeedBudget(); err != nil {
		return nil, err
	}

	h.bytesServed += int64(n)
	return h.gen.PseudoRandomData(uint(n)), nil
}

// Read implements io.Reader.
func (h *Hybrid) Read(b []byte) (n int, err error) {
	if len(b) == 0 {
		return 0, nil
	}
	data, err := h.Extract(len(b))
	if err != nil {
		return 0, err
	}
	return copy(b, data), nil
}

// Reseed forces a fresh seed from the true entropy source.
func (h *Hybrid) Reseed() error {
	h.lock.Lock()
	defer h.lock.Unlock()
	return h.reseed()
}

func (h *Hybrid) checkSeedBudget() error {
	if h.bytesServed > h.reseedAfterBytes ||
		time.Since(h.lastSeeded) > h.reseedAfter {
		return h.reseed()
	}
	return nil
}

func (h *Hybrid) reseed() error {
	seed, err := h.seed.Extract(seedSize)
	if err != nil {
		return fmt.Errorf("failed to get seed: %w", err)
	}
	h.gen.Reseed(seed)
	h.bytesServed = 0
	h.lastSeeded = time.Now()
	return nil
}
