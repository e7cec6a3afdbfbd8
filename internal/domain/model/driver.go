package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Driver is one entry of the static roster.
type Driver struct {
	Number        int    `json:"driver_number"`
	FullName      string `json:"full_name"`
	TeamName      string `json:"team_name"`
	TeamColour    string `json:"team_colour"`
	Acronym       string `json:"name_acronym,omitempty"`
	BroadcastName string `json:"broadcast_name,omitempty"`
}

// RGB decodes TeamColour ("3671C6", with or without a leading '#').
func (d Driver) RGB() (r, g, b uint8, err error) {
	c := strings.TrimPrefix(strings.TrimSpace(d.TeamColour), "#")
	if len(c) != 6 {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidColour, d.TeamColour)
	}
	v, err := strconv.ParseUint(c, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidColour, d.TeamColour)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}
