// Package window resolves window requests against a coordinate index and
// reads the selected variants and samples from a genotype store.
package window

import "fmt"

// Mode is the way a Descriptor selects variants.
type Mode int

const (
	// ModeRange selects all variants between two physical positions.
	ModeRange Mode = iota
	// ModeFromStart selects Count variants starting at a position.
	ModeFromStart
	// ModeFromEnd selects Count variants ending at a position.
	ModeFromEnd
	// ModePositions selects the variants at explicit positions.
	ModePositions
)

func (m Mode) String() string {
	switch m {
	case ModeRange:
		return "range"
	case ModeFromStart:
		return "from_start"
	case ModeFromEnd:
		return "from_end"
	case ModePositions:
		return "positions"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// InvalidDescriptorError reports conflicting or insufficient window
// parameters.
type InvalidDescriptorError struct {
	Reason string
}

func (e *InvalidDescriptorError) Error() string {
	return "invalid window descriptor: " + e.Reason
}

// Descriptor describes a window in physical coordinates. Exactly one of the
// following must hold: Start and End are set; one of Start or End is set
// together with a positive Count; Positions is non-empty.
type Descriptor struct {
	Start     *int64
	End       *int64
	Count     int
	Positions []int64
}

// Between returns a range descriptor.
func Between(start, end int64) Descriptor {
	return Descriptor{Start: &start, End: &end}
}

// After returns a descriptor of count variants starting at start.
func After(start int64, count int) Descriptor {
	return Descriptor{Start: &start, Count: count}
}

// Before returns a descriptor of count variants ending at end.
func Before(end int64, count int) Descriptor {
	return Descriptor{End: &end, Count: count}
}

// At returns a descriptor of explicit positions.
func At(positions ...int64) Descriptor {
	return Descriptor{Positions: positions}
}

// Mode validates d and returns its mode.
func (d Descriptor) Mode() (Mode, error) {
	hasStart, hasEnd := d.Start != nil, d.End != nil

	if len(d.Positions) > 0 {
		if hasStart || hasEnd || d.Count != 0 {
			return 0, &InvalidDescriptorError{Reason: "positions cannot be combined with startpos, endpos or count"}
		}
		return ModePositions, nil
	}
	if d.Count < 0 {
		return 0, &InvalidDescriptorError{Reason: fmt.Sprintf("negative count %d", d.Count)}
	}

	switch {
	case hasStart && hasEnd:
		if d.Count != 0 {
			return 0, &InvalidDescriptorError{Reason: "count cannot be combined with both startpos and endpos"}
		}
		if *d.Start > *d.End {
			return 0, &InvalidDescriptorError{Reason: fmt.Sprintf("startpos %d is greater than endpos %d", *d.Start, *d.End)}
		}
		return ModeRange, nil
	case hasStart || hasEnd:
		if d.Count == 0 {
			return 0, &InvalidDescriptorError{Reason: "a single anchor position requires a positive count"}
		}
		if hasStart {
			return ModeFromStart, nil
		}
		return ModeFromEnd, nil
	default:
		return 0, &InvalidDescriptorError{Reason: "neither positions nor startpos/endpos supplied"}
	}
}
