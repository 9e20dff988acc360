// Package trace parses and replays allocator traces: line-oriented
// allocate/free/realloc request scripts, with an explicit version header
// so old traces stay readable as the format grows.
package trace

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// FormatVersion is the trace format version this package writes. Parse
// checks a trace's version against SupportedVersions, not this value.
const FormatVersion = "1.0.0"

// SupportedVersions accepts any 1.x trace; a future 2.0 is free to change
// the opcode set without breaking this reader's ability to reject it
// loudly instead of silently misparsing it.
var SupportedVersions = mustConstraint("^1.0.0")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(fmt.Sprintf("trace: invalid built-in constraint %q: %v", s, err))
	}
	return c
}

// Op identifies a trace event's request kind.
type Op byte

const (
	OpAllocate Op = 'a'
	OpFree     Op = 'f'
	OpRealloc  Op = 'r'
)

func (op Op) String() string {
	switch op {
	case OpAllocate:
		return "allocate"
	case OpFree:
		return "free"
	case OpRealloc:
		return "reallocate"
	default:
		return fmt.Sprintf("unknown(%c)", byte(op))
	}
}

// Event is one request in a trace: an opcode, the trace-local id that
// ties a free/reallocate back to the allocation it targets, and a size
// (ignored for Free).
type Event struct {
	Op   Op
	ID   int
	Size uint32
}

// Trace is a parsed, version-checked sequence of events.
type Trace struct {
	Version *semver.Version
	Events  []Event
}

// Parse reads a trace from r. The first non-blank, non-comment line must
// be a version header of the form "version <semver>"; every other line
// is "<op> <id> [<size>]". Lines starting with '#' and blank lines are
// ignored everywhere in the file.
func Parse(r io.Reader) (*Trace, error) {
	scanner := bufio.NewScanner(r)

	var version *semver.Version

	t := &Trace{}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if version == nil {
			v, err := parseVersionHeader(line)
			if err != nil {
				return nil, fmt.Errorf("trace:%d: %w", lineNo, err)
			}

			if !SupportedVersions.Check(v) {
				return nil, fmt.Errorf("trace:%d: version %s does not satisfy %s", lineNo, v, SupportedVersions)
			}

			version = v
			continue
		}

		ev, err := parseEvent(line)
		if err != nil {
			return nil, fmt.Errorf("trace:%d: %w", lineNo, err)
		}

		t.Events = append(t.Events, ev)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}

	if version == nil {
		return nil, fmt.Errorf("trace: missing version header")
	}

	t.Version = version

	return t, nil
}

func parseVersionHeader(line string) (*semver.Version, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 || fields[0] != "version" {
		return nil, fmt.Errorf(`expected "version <semver>" header, got %q`, line)
	}

	return semver.NewVersion(fields[1])
}

func parseEvent(line string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return Event{}, fmt.Errorf("malformed event %q", line)
	}

	op := Op(fields[0][0])

	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return Event{}, fmt.Errorf("bad id in %q: %w", line, err)
	}

	ev := Event{Op: op, ID: id}

	switch op {
	case OpAllocate, OpRealloc:
		if len(fields) != 3 {
			return Event{}, fmt.Errorf("%s event %q needs a size", op, line)
		}
		size, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return Event{}, fmt.Errorf("bad size in %q: %w", line, err)
		}
		ev.Size = uint32(size)

	case OpFree:
		// no size field

	default:
		return Event{}, fmt.Errorf("unrecognized opcode %q in %q", fields[0], line)
	}

	return ev, nil
}

// Write serializes a trace back to its line format, stamping the current
// FormatVersion regardless of t.Version — callers that want to preserve
// an original version should not round-trip through Write.
func Write(w io.Writer, t *Trace) error {
	if _, err := fmt.Fprintf(w, "version %s\n", FormatVersion); err != nil {
		return err
	}

	for _, ev := range t.Events {
		var err error
		switch ev.Op {
		case OpFree:
			_, err = fmt.Fprintf(w, "%c %d\n", ev.Op, ev.ID)
		default:
			_, err = fmt.Fprintf(w, "%c %d %d\n", ev.Op, ev.ID, ev.Size)
		}
		if err != nil {
			return err
		}
	}

	return nil
}
