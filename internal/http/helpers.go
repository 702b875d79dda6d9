package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"finboard/internal/core"
)

// generateRequestID reuses an incoming X-Request-ID or creates a new one.
func generateRequestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-Request-ID")); id != "" && len(id) <= 64 {
		return id
	}
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// referenceDate reads a YYYY-MM-DD "date" query parameter, defaulting to today.
func (s *Server) referenceDate(r *http.Request) (time.Time, error) {
	v := strings.TrimSpace(r.URL.Query().Get("date"))
	if v == "" {
		return s.now(), nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", errBadRequest)
	}
	return d.Time, nil
}

// transactionIDs collects repeated transaction_id query parameters.
func transactionIDs(r *http.Request) []string {
	var ids []string
	for _, v := range r.URL.Query()["transaction_id"] {
		for _, id := range strings.Split(v, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
