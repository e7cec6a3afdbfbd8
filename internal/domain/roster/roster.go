// Package roster loads the static driver table and resolves driver numbers.
package roster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/okian/gridcast/internal/domain/model"
)

// UnknownDriver is rendered for driver numbers missing from the roster.
const UnknownDriver = "Unknown Driver"

// Sentinel error kinds for this package.
var (
	ErrLoadRoster = errors.New("load roster failed")
)

// Lookup resolves a driver number to a display name.
type Lookup interface {
	Name(number int) string
}

// Roster is an immutable driver table keyed by driver number.
type Roster struct {
	drivers map[int]model.Driver
}

// New builds a roster. A later entry with the same number replaces an earlier one.
func New(drivers ...model.Driver) *Roster {
	r := &Roster{drivers: make(map[int]model.Driver, len(drivers))}
	for _, d := range drivers {
		r.drivers[d.Number] = d
	}
	return r
}

// Load reads a JSON array of driver objects. A missing or malformed file is fatal.
func Load(_ context.Context, path string) (*Roster, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadRoster, path, err)
	}
	var drivers []model.Driver
	if err := json.Unmarshal(raw, &drivers); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadRoster, path, err)
	}
	return New(drivers...), nil
}

// Name returns the driver's full name, or UnknownDriver.
func (r *Roster) Name(number int) string {
	if r == nil {
		return UnknownDriver
	}
	d, ok := r.drivers[number]
	if !ok || d.FullName == "" {
		return UnknownDriver
	}
	return d.FullName
}

// Driver returns the roster entry for number.
func (r *Roster) Driver(number int) (model.Driver, bool) {
	if r == nil {
		return model.Driver{}, false
	}
	d, ok := r.drivers[number]
	return d, ok
}

// Drivers returns all entries ordered by driver number.
func (r *Roster) Drivers() []model.Driver {
	if r == nil {
		return nil
	}
	out := make([]model.Driver, 0, len(r.drivers))
	for _, d := range r.drivers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// Len returns the number of drivers.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.drivers)
}
