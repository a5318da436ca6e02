package apiserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/netip"
	"strconv"

	"github.com/acorn-io/acorn-ddns/pkg/backend"
	"github.com/acorn-io/acorn-ddns/pkg/model"
	"github.com/acorn-io/acorn-ddns/pkg/version"
	"github.com/gorilla/mux"
)

type handler struct {
	backend backend.Backend
}

func newHandler(b backend.Backend) *handler {
	return &handler{
		backend: b,
	}
}

func (h *handler) root(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, version.Get())
}

func (h *handler) signup(w http.ResponseWriter, r *http.Request) {
	var input model.SignupRequest
	if !decode(w, r, &input) {
		return
	}

	resp, err := h.backend.Signup(r.Context(), input)
	if err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, resp)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var input model.LoginRequest
	if !decode(w, r, &input) {
		return
	}

	resp, err := h.backend.Login(r.Context(), input)
	if err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, resp)
}

func (h *handler) listRecords(w http.ResponseWriter, r *http.Request) {
	records, err := h.backend.ListRecords(r.Context(), accountIDFromContext(r.Context()))
	if err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, records)
}

func (h *handler) createRecord(w http.ResponseWriter, r *http.Request) {
	var input model.RecordRequest
	if !decode(w, r, &input) {
		return
	}

	record, err := h.backend.CreateRecord(r.Context(), accountIDFromContext(r.Context()), input)
	if err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, record)
}

func (h *handler) updateRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	var input model.UpdateRecordRequest
	if !decode(w, r, &input) {
		return
	}

	record, err := h.backend.UpdateRecord(r.Context(), accountIDFromContext(r.Context()), id, input)
	if err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, record)
}

func (h *handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	if err := h.backend.DeleteRecord(r.Context(), accountIDFromContext(r.Context()), id); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// refresh keeps a record alive. Clients behind NAT usually leave out the address and let the
// server use the one the request came from.
func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	var input model.RefreshRequest
	if !decode(w, r, &input) {
		return
	}
	if input.IPAddress == "" {
		input.IPAddress = unmapIP(realIP(r))
	}

	record, err := h.backend.Refresh(r.Context(), accountIDFromContext(r.Context()), input)
	if err != nil {
		handleError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, record)
}

// unmapIP turns IPv4-mapped IPv6 text, as seen behind dual stack proxies, back into dotted
// quad form. Anything else is returned as is and left to validation.
func unmapIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is4In6() {
		return ip
	}
	return addr.Unmap().String()
}

func decode(w http.ResponseWriter, r *http.Request, into interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func recordID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("invalid record id %q", mux.Vars(r)["id"]))
		return 0, false
	}
	return uint(id), true
}
