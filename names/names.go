// Package names maps transcript event names to the small integer codes
// used on the wire. The order of the name list is the encoding: appending
// is safe, anything else breaks previously recorded transcripts.
package names

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	ErrUnknownName       = errors.New("unknown event name")
	ErrUnknownCode       = errors.New("unknown event code")
	ErrImmutableRegistry = errors.New("immutable registry")
	ErrDuplicateName     = errors.New("duplicate event name")
)

// Code is an event's position in the ordered name list.
type Code uint8

// Event codes, in wire order.
const (
	Invalid Code = iota
	GameCreated
	GameReset
	GameStarted
	GameCompleted
	PlayerJoined
	PlayerStartLocation
	UseExit
	ExitUsed
	EntryReject
	UseToken
	TranscriptEntryChoices
	TranscriptEntryCommitted
	TranscriptEntryOutcome
	TranscriptPlayerEnteredLocation
	TranscriptPlayerKilledByTrap
	TranscriptPlayerDied
	TranscriptPlayerVictory
)

var eventNames = []string{
	"Invalid",
	"GameCreated",
	"GameReset",
	"GameStarted",
	"GameCompleted",
	"PlayerJoined",
	"PlayerStartLocation",
	"UseExit",
	"ExitUsed",
	"EntryReject",
	"UseToken",
	"TranscriptEntryChoices",
	"TranscriptEntryCommitted",
	"TranscriptEntryOutcome",
	"TranscriptPlayerEnteredLocation",
	"TranscriptPlayerKilledByTrap",
	"TranscriptPlayerDied",
	"TranscriptPlayerVictory",
}

// Default is the process wide registry. It is never written after init so
// concurrent readers need no locking.
var Default = MustNew(eventNames)

// Registry is a frozen two way name/code table.
type Registry struct {
	codes map[string]Code
	names []string
}

// New builds a registry from an ordered list. Index 0 is conventionally
// "Invalid".
func New(ordered []string) (*Registry, error) {
	if len(ordered) > 256 {
		return nil, fmt.Errorf("too many event names: %d", len(ordered))
	}

	r := &Registry{
		codes: make(map[string]Code, len(ordered)),
		names: make([]string, 0, len(ordered)),
	}
	for i, name := range ordered {
		if _, ok := r.codes[name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
		}
		r.codes[name] = Code(i)
		r.names = append(r.names, name)
	}
	return r, nil
}

// MustNew is New for static name lists. It panics on a bad list.
func MustNew(ordered []string) *Registry {
	r, err := New(ordered)
	if err != nil {
		panic(err)
	}
	return r
}

// CodeOf returns the code for name.
func (r *Registry) CodeOf(name string) (Code, error) {
	code, ok := r.codes[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownName, name)
	}
	return code, nil
}

// NameOf returns the name for code.
func (r *Registry) NameOf(code Code) (string, error) {
	if int(code) >= len(r.names) {
		return "", fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}
	return r.names[code], nil
}

// NameOfInt is NameOf for codes decoded from wider integer fields.
func (r *Registry) NameOfInt(code uint64) (string, error) {
	if code >= uint64(len(r.names)) {
		return "", fmt.Errorf("%w: %d", ErrUnknownCode, code)
	}
	return r.names[code], nil
}

// MustCodeOf is CodeOf for names known at compile time.
func (r *Registry) MustCodeOf(name string) Code {
	code, err := r.CodeOf(name)
	if err != nil {
		panic(err)
	}
	return code
}

// Set always fails; the registry is frozen once built.
func (r *Registry) Set(name string, code Code) error {
	return fmt.Errorf("%w: cannot set %q to %d", ErrImmutableRegistry, name, code)
}

// Delete always fails; the registry is frozen once built.
func (r *Registry) Delete(name string) error {
	return fmt.Errorf("%w: cannot delete %q", ErrImmutableRegistry, name)
}

// Names returns a copy of the ordered name list.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len is the number of registered names.
func (r *Registry) Len() int {
	return len(r.names)
}

/* =========================
   PACKAGE LEVEL HELPERS
========================= */

func CodeOf(name string) (Code, error) { return Default.CodeOf(name) }

func NameOf(code Code) (string, error) { return Default.NameOf(code) }

func (c Code) String() string {
	name, err := Default.NameOf(c)
	if err != nil {
		return "Code(" + strconv.Itoa(int(c)) + ")"
	}
	return name
}
