package webserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"simtelemetry/pkg/livemap"
	"simtelemetry/pkg/model"
	"simtelemetry/pkg/source"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const (
	defaultLapLimit = 10
	maxLapLimit     = 500
)

var (
	errInvalidLimit = errors.New("limit must be between 1 and 500")
	errInvalidSize  = errors.Errorf("size must be between %d and %d", livemap.MinSize, livemap.MaxSize)
)

// SourceInfo is the body of /api/source.
type SourceInfo struct {
	source.Status
	Version        uint64   `json:"version"`
	TelemetryAgeMs *float64 `json:"telemetryAgeMs"`
}

func (m *Manager) sourceInfo() SourceInfo {
	info := SourceInfo{Status: m.status.Status(), Version: m.reader.TelemetryVersion()}
	if age, ok := m.reader.TelemetryAge(); ok {
		ms := float64(age.Microseconds()) / 1000
		info.TelemetryAgeMs = &ms
	}
	return info
}

func (m *Manager) handleTelemetry(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, http.StatusOK, m.reader.ReadTelemetry())
}

func (m *Manager) handleRelative(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, http.StatusOK, m.reader.ReadRelativeCars())
}

func (m *Manager) handleStandings(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, http.StatusOK, m.reader.ReadStandings())
}

func (m *Manager) handleSource(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, http.StatusOK, m.sourceInfo())
}

func (m *Manager) handleMap(w http.ResponseWriter, r *http.Request) {
	size := livemap.DefaultSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		var err error
		size, err = strconv.Atoi(raw)
		if err != nil || size < livemap.MinSize || size > livemap.MaxSize {
			m.writeError(w, http.StatusBadRequest, errInvalidSize)
			return
		}
	}
	t := m.reader.ReadTelemetry()
	rel := m.reader.ReadRelativeCars()

	var buf bytes.Buffer
	var err error
	if mux.Vars(r)["format"] == "png" {
		w.Header().Set("Content-Type", "image/png")
		err = livemap.WritePNG(&buf, size, t, rel)
	} else {
		w.Header().Set("Content-Type", "image/svg+xml")
		err = livemap.WriteSVG(&buf, size, t, rel)
	}
	if err != nil {
		m.log.Error("error rendering map", "error", err)
		w.Header().Del("Content-Type")
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

func (m *Manager) handleBestLaps(w http.ResponseWriter, r *http.Request) {
	limit, ok := m.limit(w, r)
	if !ok {
		return
	}
	producer := model.ProducerUnknown
	if p := r.URL.Query().Get("producer"); p != "" {
		var err error
		if producer, err = model.ParseProducer(p); err != nil {
			m.writeError(w, http.StatusBadRequest, err)
			return
		}
	}
	best, err := m.laps.BestLaps(r.Context(), producer, limit)
	if err != nil {
		m.log.Error("error listing best laps", "error", err)
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}
	m.writeJSON(w, http.StatusOK, best)
}

func (m *Manager) handleRecentLaps(w http.ResponseWriter, r *http.Request) {
	limit, ok := m.limit(w, r)
	if !ok {
		return
	}
	recent, err := m.laps.RecentLaps(r.Context(), limit)
	if err != nil {
		m.log.Error("error listing recent laps", "error", err)
		m.writeError(w, http.StatusInternalServerError, err)
		return
	}
	m.writeJSON(w, http.StatusOK, recent)
}

func (m *Manager) limit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLapLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxLapLimit {
		m.writeError(w, http.StatusBadRequest, errInvalidLimit)
		return 0, false
	}
	return limit, true
}

func (m *Manager) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.log.Debug("error writing response", "error", err)
	}
}

func (m *Manager) writeError(w http.ResponseWriter, status int, err error) {
	m.writeJSON(w, status, map[string]string{"error": err.Error()})
}
