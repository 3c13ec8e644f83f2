// Package purity models how much contract storage a function may touch.
package purity

import (
	"errors"
	"fmt"
	"strings"
)

// Purity is the storage-access level of a function. The zero value is Pure.
type Purity uint8

const (
	Pure Purity = iota
	Reads
	Writes
	ReadsWrites
)

var (
	// ErrEmptyStorageAttr is returned for a storage annotation without arguments.
	ErrEmptyStorageAttr = errors.New("storage annotation needs read and/or write")
	// ErrUnknownStorageArg is returned for an argument other than read or write.
	ErrUnknownStorageArg = errors.New("unknown storage access")
)

func (p Purity) String() string {
	switch p {
	case Pure:
		return "pure"
	case Reads:
		return "reads"
	case Writes:
		return "writes"
	case ReadsWrites:
		return "reads_writes"
	default:
		return fmt.Sprintf("Purity(%d)", p)
	}
}

// Parse accepts the names produced by String.
func Parse(s string) (Purity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pure", "":
		return Pure, nil
	case "reads", "read":
		return Reads, nil
	case "writes", "write":
		return Writes, nil
	case "reads_writes", "readswrites":
		return ReadsWrites, nil
	default:
		return Pure, fmt.Errorf("unknown purity %q", s)
	}
}

// CanCall reports whether a function declared as caller may invoke one declared as callee.
// Reads and Writes are incomparable.
func CanCall(caller, callee Purity) bool {
	switch caller {
	case ReadsWrites:
		return true
	case Reads:
		return callee == Pure || callee == Reads
	case Writes:
		return callee == Pure || callee == Writes
	default:
		return callee == Pure
	}
}

// Promote combines the purity accumulated so far (from) with the next effect (to).
// The result is to, except that ReadsWrites on the left or a Reads/Writes
// collision yields ReadsWrites. Promote is not commutative: Promote(Reads, Pure)
// is Pure.
func Promote(from, to Purity) Purity {
	switch {
	case from == ReadsWrites:
		return ReadsWrites
	case from == Reads && to == Writes, from == Writes && to == Reads:
		return ReadsWrites
	default:
		return to
	}
}

// Fold promotes effects left to right starting from Pure.
// Pure effects are skipped so they do not reset the accumulated level.
func Fold(effects ...Purity) Purity {
	acc := Pure
	for _, e := range effects {
		if e == Pure {
			continue
		}
		acc = Promote(acc, e)
	}
	return acc
}

// FromStorageAttr maps the arguments of a storage(read, write) annotation.
func FromStorageAttr(args []string) (Purity, error) {
	if len(args) == 0 {
		return Pure, ErrEmptyStorageAttr
	}
	p := Pure
	for _, arg := range args {
		switch strings.TrimSpace(arg) {
		case "read":
			p = join(p, Reads)
		case "write":
			p = join(p, Writes)
		default:
			return Pure, fmt.Errorf("%w: %q", ErrUnknownStorageArg, arg)
		}
	}
	return p, nil
}

// StorageArgs is the inverse of FromStorageAttr; Pure has no arguments.
func StorageArgs(p Purity) []string {
	switch p {
	case Reads:
		return []string{"read"}
	case Writes:
		return []string{"write"}
	case ReadsWrites:
		return []string{"read", "write"}
	default:
		return nil
	}
}

// join is the least upper bound, used where order must not matter.
func join(a, b Purity) Purity {
	return a | b
}
