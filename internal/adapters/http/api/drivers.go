package api

import (
	"net/http"

	"github.com/okian/gridcast/internal/domain/model"
	"github.com/okian/gridcast/internal/domain/roster"
)

// RosterProvider exposes the loaded roster, nil until loading finishes.
type RosterProvider interface {
	Roster() *roster.Roster
}

// DriversHandler serves the roster.
type DriversHandler struct {
	roster RosterProvider
}

// NewDriversHandler creates a new drivers handler.
func NewDriversHandler(r RosterProvider) *DriversHandler {
	return &DriversHandler{roster: r}
}

// driverResponse is a roster entry with its team colour decoded. RGB is
// omitted when the colour string is malformed.
type driverResponse struct {
	model.Driver
	RGB *[3]uint8 `json:"rgb,omitempty"`
}

// HandleGetDrivers handles GET /drivers requests.
func (h *DriversHandler) HandleGetDrivers(w http.ResponseWriter, _ *http.Request) {
	r := h.roster.Roster()
	if r == nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, nil)
		return
	}
	drivers := r.Drivers()
	out := make([]driverResponse, len(drivers))
	for i, d := range drivers {
		out[i] = driverResponse{Driver: d}
		if red, green, blue, err := d.RGB(); err == nil {
			out[i].RGB = &[3]uint8{red, green, blue}
		}
	}
	writeJSON(w, http.StatusOK, out)
}
