package main

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"cartstore/internal/cart"
	"cartstore/internal/model"
)

type addRequest struct {
	Product  model.Product `json:"product"`
	Quantity int64         `json:"quantity"`
}

type idQtyRequest struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

// registerHandlers wires the JSON surface for a UI over the store's
// operations. This is presentation glue; the store itself has no knowledge
// of HTTP.
func registerHandlers(mux *http.ServeMux, st *cart.Store, logger *zap.Logger) {
	writeJSON := func(w http.ResponseWriter, code int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(v)
	}
	writeErr := func(w http.ResponseWriter, err error) {
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
	}

	mux.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, st.Summary())
	})

	mux.HandleFunc("/cart/items", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req addRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request body"})
			return
		}
		lines, err := st.Add(req.Product, req.Quantity)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lines)
	})

	mux.HandleFunc("/cart/quantity", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req idQtyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request body"})
			return
		}
		lines, err := st.UpdateQuantity(req.ID, req.Quantity)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lines)
	})

	mux.HandleFunc("/cart/remove", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req idQtyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request body"})
			return
		}
		lines, err := st.Remove(req.ID)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lines)
	})

	mux.HandleFunc("/cart/clear", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		lines, err := st.Clear()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, lines)
	})

	mux.HandleFunc("/cart/backup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		b := st.BackupCart()
		if b == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backup failed"})
			return
		}
		writeJSON(w, http.StatusOK, b)
	})

	mux.HandleFunc("/cart/restore", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, st.RestoreCart())
	})

	mux.HandleFunc("/cart/stats", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, st.Stats())
	})

	mux.HandleFunc("/cart/validate", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, st.Validate())
	})

	st.Subscribe("access-log", func(s model.Summary) {
		logger.Info("cart updated",
			zap.Int64("total_items", s.TotalItems),
			zap.Float64("subtotal", s.Subtotal),
			zap.Bool("empty", s.IsEmpty))
	})
}
