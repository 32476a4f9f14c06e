// Package httpapi exposes the monitoring state over a JSON REST API.
// All endpoints read from live sessions; nothing here blocks the
// analysis path.
package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/weilalicia7/EquineSync-AI-Lameness-Stress-Bond-Detection-System/internal/session"
)

// Server wires the REST routes over a session manager. An optional
// wsHandler serves the live push endpoint.
type Server struct {
	mgr       *session.Manager
	wsHandler http.Handler
}

func NewServer(mgr *session.Manager, wsHandler http.Handler) *Server {
	return &Server{mgr: mgr, wsHandler: wsHandler}
}

// Router builds the route table. The caller owns the http.Server.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/horses", s.listHorses).Methods(http.MethodGet)
	api.HandleFunc("/horses/{id}/symmetry", s.getSymmetry).Methods(http.MethodGet)
	api.HandleFunc("/horses/{id}/hrv", s.getHRV).Methods(http.MethodGet)
	api.HandleFunc("/horses/{id}/health", s.getLegHealth).Methods(http.MethodGet)
	api.HandleFunc("/horses/{id}/bond", s.getBond).Methods(http.MethodGet)
	api.HandleFunc("/horses/{id}/alerts", s.getAlerts).Methods(http.MethodGet)
	api.HandleFunc("/horses/{id}/calibration", s.getCalibration).Methods(http.MethodGet)
	api.HandleFunc("/horses/{id}/recalibrate", s.postRecalibrate).Methods(http.MethodPost)

	if s.wsHandler != nil {
		r.Handle("/ws", s.wsHandler)
	}
	return r
}

// Handler wraps the router with request logging.
func (s *Server) Handler(logWriter io.Writer) http.Handler {
	return handlers.LoggingHandler(logWriter, s.Router())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// lookup resolves the {id} path variable to a session without creating one.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := mux.Vars(r)["id"]
	sess, ok := s.mgr.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown horse "+id)
		return nil, false
	}
	return sess, true
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type horseSummary struct {
	HorseID          string  `json:"horse_id"`
	CalibrationState string  `json:"calibration_state"`
	BondScore        float64 `json:"bond_score"`
	AlertCount       int     `json:"alert_count"`
}

func (s *Server) listHorses(w http.ResponseWriter, _ *http.Request) {
	ids := s.mgr.HorseIDs()
	out := make([]horseSummary, 0, len(ids))
	for _, id := range ids {
		sess, ok := s.mgr.Lookup(id)
		if !ok {
			continue
		}
		out = append(out, horseSummary{
			HorseID:          id,
			CalibrationState: string(sess.CalibrationState()),
			BondScore:        sess.Bond().Score,
			AlertCount:       len(sess.Alerts()),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"horses": out})
}

func (s *Server) getSymmetry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if sinceParam := r.URL.Query().Get("since"); sinceParam != "" {
		since, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "since must be RFC 3339")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": sess.SymmetryHistory(since)})
		return
	}
	latest := sess.LatestSymmetry()
	if latest == nil {
		writeError(w, http.StatusNotFound, "no gait windows analyzed yet")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

func (s *Server) getHRV(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": sess.HRVHistory()})
}

func (s *Server) getLegHealth(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"legs": sess.LegHealthSnapshot()})
}

func (s *Server) getBond(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Bond())
}

func (s *Server) getAlerts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": sess.Alerts()})
}

func (s *Server) getCalibration(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"state":      string(sess.CalibrationState()),
		"assignment": sess.Assignment(),
	})
}

func (s *Server) postRecalibrate(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sess.Recalibrate()
	writeJSON(w, http.StatusAccepted, map[string]string{
		"state": string(sess.CalibrationState()),
	})
}
