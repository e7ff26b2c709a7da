// Package parser decodes request lines of the form "<type>:<seed>\n"
// into a task type and seed, per §4.4 of the core specification.
package parser

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/xtaci/dispatchd/task"
)

// Request is a successfully decoded request line.
type Request struct {
	Type task.Type
	Seed uint64
}

// Parse decodes a single request line. The line may include its
// trailing newline; it is trimmed before decoding. If more than one
// ':' separator is present, the first field is the task type, the last
// field is taken as the seed, and any fields between them are ignored,
// matching the documented behavior in §4.4.
func Parse(line string) (Request, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Request{}, errors.New("parser: empty request line")
	}

	fields := strings.Split(trimmed, ":")
	if len(fields) < 2 {
		return Request{}, errors.Errorf("parser: missing ':' separator in %q", trimmed)
	}
	// Split on the first ':' into head and tail; when more than two
	// fields are present the last one is taken as the seed, discarding
	// whatever sits between head and the final field.
	head, tail := fields[0], fields[len(fields)-1]

	ordinal, err := strconv.ParseUint(head, 10, 8)
	if err != nil {
		return Request{}, errors.Wrapf(err, "parser: invalid task type %q", head)
	}

	seed, err := strconv.ParseUint(tail, 10, 64)
	if err != nil {
		return Request{}, errors.Wrapf(err, "parser: invalid seed %q", tail)
	}

	typ, err := task.TypeFromOrdinal(uint8(ordinal))
	if err != nil {
		return Request{}, errors.Wrapf(err, "parser: %q", trimmed)
	}

	return Request{Type: typ, Seed: seed}, nil
}
