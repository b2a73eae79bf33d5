package object

import "github.com/corekv/corekv/korand"

// ClockMode selects the interpretation of the header's 24-bit clock
// field, spec.md §3.1: a single truncated LRU timestamp, or a split
// (16-bit access-time, 8-bit logarithmic access-count) LFU pair. The
// spec leaves the choice open and states the mode is process-wide, so
// it is a package-level variable rather than a per-header flag —
// resolved here as ClockLRU by default.
type ClockMode uint8

const (
	ClockLRU ClockMode = iota
	ClockLFU
)

var processClockMode = ClockLRU

// SetClockMode switches every header's clock interpretation process-wide.
// It does not rewrite existing headers' packed bits; callers that switch
// modes mid-run are responsible for any migration semantics they need.
func SetClockMode(mode ClockMode) { processClockMode = mode }

// CurrentClockMode reports the active process-wide mode.
func CurrentClockMode() ClockMode { return processClockMode }

// Clock is the 24-bit packed field. Only the low 24 bits are
// meaningful; the upper 8 bits of the backing uint32 are always zero.
type Clock uint32

const clockMask = 1<<24 - 1

// NewLRUClock packs a truncated access time (low 24 bits of ts) as an
// LRU clock value.
func NewLRUClock(ts uint32) Clock { return Clock(ts & clockMask) }

// NewLFUClock packs a 16-bit access time and an 8-bit logarithmic
// access counter into one 24-bit field.
func NewLFUClock(accessTime uint16, logCount uint8) Clock {
	return Clock(uint32(accessTime)<<8 | uint32(logCount))
}

// LRUTime returns the packed access time, valid when CurrentClockMode
// is ClockLRU.
func (c Clock) LRUTime() uint32 { return uint32(c) & clockMask }

// LFUFields returns the packed access time and logarithmic counter,
// valid when CurrentClockMode is ClockLFU.
func (c Clock) LFUFields() (accessTime uint16, logCount uint8) {
	v := uint32(c) & clockMask
	return uint16(v >> 8), uint8(v)
}

// logIncr applies Redis's probabilistic LFU counter increment: the
// chance of incrementing shrinks as the counter grows, so the 8-bit
// field can represent a much larger effective range than 255 linear
// hits. baseline is the counter value below which increments are
// always applied.
func logIncr(counter uint8, p float64, baseline uint8) uint8 {
	if counter == 255 {
		return counter
	}

	if counter < baseline {
		return counter + 1
	}

	if p < 1.0/float64(uint32(counter-baseline)*lfuFactor+1) {
		return counter + 1
	}

	return counter
}

const lfuFactor = 10

// touch advances h's clock field on an access, per the active
// CurrentClockMode: LRU overwrites with the current truncated time;
// LFU advances the access time and probabilistically bumps the
// logarithmic counter via logIncr, using rng for the random draw.
func touch(h *Header, rng *korand.Rand, nowTruncated uint32) {
	if CurrentClockMode() == ClockLRU {
		h.Clock = NewLRUClock(nowTruncated)
		return
	}

	_, counter := h.Clock.LFUFields()
	h.Clock = NewLFUClock(uint16(nowTruncated), logIncr(counter, rng.Float64ClosedOpen(), 5))
}
