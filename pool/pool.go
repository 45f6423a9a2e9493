package pool

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Pool capacity.
const (
	Capacity     = 4096 // bytes
	CapacityBits = Capacity * 8
)

// Domain separation markers for the hash ratchet.
const (
	markerFeed    = 0x46
	markerExtract = 0x45
	markerRatchet = 0x52
)

// ErrBadRequest is returned for malformed extract requests. The request
// fails, the pool state is untouched.
var ErrBadRequest = errors.New("malformed pool request")

// Pool is a mutex-guarded entropy accumulator. Incoming data is absorbed
// into a hash ratchet state and a rolling buffer of derived blocks,
// output is derived from both and the state is ratcheted forward
// afterwards, so neither earlier inputs nor earlier outputs can be
// reconstructed from a captured state.
//
// The entropy bits counter is advisory telemetry. It never gates
// extraction: an empty pool still serves bytes, it just reports poor
// health.
type Pool struct {
	lock sync.Mutex

	state  [sha256.Size]byte
	buffer [Capacity]byte

	writePos int
	fill     int

	entropyBits atomic.Int64
	feeds       atomic.Uint64
	extracts    atomic.Uint64
}

// New returns an empty pool. The ratchet state is bootstrapped from the
// OS RNG and the clock so that two pools created in the same process
// never share a state, but the entropy estimate starts at zero: the pool
// reports no confidence until it has been fed.
func New() *Pool {
	p := &Pool{}

	seed := make([]byte, sha256.Size)
	_, _ = rand.Read(seed)

	h := sha256.New()
	h.Write(seed)
	var now [8]byte
	binary.BigEndian.PutUint64(now[:], uint64(time.Now().UnixNano()))
	h.Write(now[:])
	h.Sum(p.state[:0])

	return p
}

// Feed mixes data into the pool, crediting the default estimate of
// len(data)*8 bits. Feeding no data is a no-op.
func (p *Pool) Feed(data []byte) {
	p.FeedWithEstimate(data, len(data)*8)
}

// FeedWithEstimate mixes data into the pool, crediting the given entropy
// estimate. The credit saturates at the pool capacity. A negative
// estimate is treated as zero. Feeding no data is a no-op.
func (p *Pool) FeedWithEstimate(data []byte, entropyBits int) {
	if len(data) == 0 {
		return
	}
	if entropyBits < 0 {
		entropyBits = 0
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	// Absorb: new state commits to the old state and the input. The raw
	// input is not retained anywhere.
	h := sha256.New()
	h.Write(p.state[:])
	h.Write([]byte{markerFeed})
	h.Write(data)
	h.Sum(p.state[:0])

	// Refresh a buffer block from the new state.
	block := sha256.Sum256(p.state[:])
	n := copy(p.buffer[p.writePos:], block[:])
	if n < len(block) {
		copy(p.buffer[:], block[n:])
	}
	p.writePos = (p.writePos + len(block)) % Capacity

	p.fill += len(data)
	if p.fill > Capacity {
		p.fill = Capacity
	}

	p.creditEntropy(int64(entropyBits))
	p.feeds.Add(1)
}

// Extract derives n bytes from the pool state and ratchets the state
// forward. It fails only on a malformed request (n out of (0, Capacity]);
// low entropy never blocks or fails extraction, it only degrades the
// reported health.
func (p *Pool) Extract(n int) ([]byte, error) {
	if n <= 0 || n > Capacity {
		return nil, fmt.Errorf("%w: cannot extract %d bytes", ErrBadRequest, n)
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	// Derive a request key from the ratchet state and the banked
	// material, so buffered harvest data contributes to the output.
	k := sha256.New()
	k.Write(p.state[:])
	k.Write([]byte{markerExtract})
	k.Write(p.buffer[:])
	key := k.Sum(nil)

	out := make([]byte, 0, n)
	var ctr [8]byte
	for i := uint64(0); len(out) < n; i++ {
		binary.BigEndian.PutUint64(ctr[:], i)
		h := sha256.New()
		h.Write(key)
		h.Write(ctr[:])
		out = h.Sum(out)
	}
	out = out[:n]

	// Ratchet forward so this output can never be derived again.
	h := sha256.New()
	h.Write(p.state[:])
	h.Write([]byte{markerRatchet})
	h.Sum(p.state[:0])

	p.fill -= n
	if p.fill < 0 {
		p.fill = 0
	}

	p.debitEntropy(int64(n) * 8)
	p.extracts.Add(1)

	return out, nil
}

// Reseed mixes a fresh out-of-band sample into the pool and resets the
// entropy bookkeeping to full. Used to recover from detected bias or
// staleness.
func (p *Pool) Reseed() error {
	seed := make([]byte, 64)
	if _, err := rand.Read(seed); err != nil {
		return fmt.Errorf("failed to get reseed sample: %w", err)
	}

	p.lock.Lock()
	defer p.lock.Unlock()

	h := sha256.New()
	h.Write(p.state[:])
	h.Write([]byte{markerFeed})
	h.Write(seed)
	var now [8]byte
	binary.BigEndian.PutUint64(now[:], uint64(time.Now().UnixNano()))
	h.Write(now[:])
	h.Sum(p.state[:0])

	// Refresh the whole buffer from the new state.
	var ctr [8]byte
	for pos := 0; pos < Capacity; pos += sha256.Size {
		binary.BigEndian.PutUint64(ctr[:], uint64(pos))
		block := sha256.New()
		block.Write(p.state[:])
		block.Write(ctr[:])
		copy(p.buffer[pos:], block.Sum(nil))
	}
	p.writePos = 0
	p.fill = Capacity
	p.entropyBits.Store(CapacityBits)

	return nil
}

// EntropyBits returns the advisory entropy estimate. It may be read
// concurrently with mutating operations.
func (p *Pool) EntropyBits() int64 {
	return p.entropyBits.Load()
}

// Fill returns how many bytes of harvested material are currently banked,
// capped at the capacity.
func (p *Pool) Fill() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.fill
}

// Stats returns the lifetime feed and extract operation counts.
func (p *Pool) Stats() (feeds, extracts uint64) {
	return p.feeds.Load(), p.extracts.Load()
}

func (p *Pool) creditEntropy(bits int64) {
	for {
		current := p.entropyBits.Load()
		next := current + bits
		if next > CapacityBits {
			next = CapacityBits
		}
		if p.entropyBits.CompareAndSwap(current, next) {
			return
		}
	}
}

func (p *Pool) debitEntropy(bits int64) {
	for {
		current := p.entropyBits.Load()
		next := current - bits
		if next < 0 {
			next = 0
		}
		if p.entropyBits.CompareAndSwap(current, next) {
			return
		}
	}
}
