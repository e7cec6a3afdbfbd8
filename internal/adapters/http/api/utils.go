package api

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/gridcast/internal/domain/replay"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 16

// decodeJSON reads a single JSON object from r's body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", ErrBadRequest, err)
	}
	return nil
}

// seconds converts a finite number of seconds to a duration. Values past the
// range of time.Duration saturate.
func seconds(field string, v float64) (time.Duration, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be finite", ErrBadRequest, field)
	}
	return replay.ScaleDuration(time.Second, v), nil
}

// parseInterval reads a window interval such as "5s" or "2.5" (seconds).
func parseInterval(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid interval %q", ErrBadRequest, raw)
	}
	return seconds("interval", v)
}
