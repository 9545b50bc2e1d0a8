// Package directory provides the bidirectional registry mapping numeric
// identity ids to simulated application names. One directory is shared by
// every actor in a test case so that the service under test and all callers
// agree on who is who.
package directory

import (
	"errors"
	"fmt"
)

// ErrDuplicateIdentity is returned by Add when the id or the name is
// already registered.
var ErrDuplicateIdentity = errors.New("identity already registered")

// Well-known simulated applications. Tests that need fixed identities use
// these; directories created with WellKnown have all four registered.
const (
	PackageGrey  = "edu.example.grey"
	PackageRed   = "net.example.red"
	PackageGreen = "com.example.green"
	PackageBlue  = "org.example.blue"

	UIDGrey  int64 = 1000
	UIDRed   int64 = 2000
	UIDGreen int64 = 3000
	UIDBlue  int64 = 4000
)

// Directory maps identity ids to application names and back. Both lookups
// are O(1). The zero value is not usable; construct with New or WellKnown.
type Directory struct {
	byID   map[int64]string
	byName map[string]int64
}

// New returns an empty directory.
func New() *Directory {
	return &Directory{
		byID:   make(map[int64]string),
		byName: make(map[string]int64),
	}
}

// WellKnown returns a directory with the four fixed simulated applications
// registered.
func WellKnown() *Directory {
	d := New()
	for _, reg := range []struct {
		id   int64
		name string
	}{
		{UIDGrey, PackageGrey},
		{UIDRed, PackageRed},
		{UIDGreen, PackageGreen},
		{UIDBlue, PackageBlue},
	} {
		// Fixed ids and names never collide.
		if err := d.Add(reg.id, reg.name); err != nil {
			panic(err)
		}
	}
	return d
}

// Add registers a new id/name pair. Registration is rejected with
// ErrDuplicateIdentity when either side is already present, so a directory
// never holds conflicting mappings.
func (d *Directory) Add(id int64, name string) error {
	if existing, ok := d.byID[id]; ok {
		return fmt.Errorf("add %d/%s: id already bound to %q: %w", id, name, existing, ErrDuplicateIdentity)
	}
	if existing, ok := d.byName[name]; ok {
		return fmt.Errorf("add %d/%s: name already bound to %d: %w", id, name, existing, ErrDuplicateIdentity)
	}
	d.byID[id] = name
	d.byName[name] = id
	return nil
}

// NameByID returns the application name registered for id.
func (d *Directory) NameByID(id int64) (string, bool) {
	name, ok := d.byID[id]
	return name, ok
}

// IDByName returns the identity id registered for name.
func (d *Directory) IDByName(name string) (int64, bool) {
	id, ok := d.byName[name]
	return id, ok
}

// Len returns the number of registered identities.
func (d *Directory) Len() int {
	return len(d.byID)
}

// Names returns all registered names in unspecified order.
func (d *Directory) Names() []string {
	names := make([]string, 0, len(d.byName))
	for name := range d.byName {
		names = append(names, name)
	}
	return names
}
