package apiserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/acorn-io/acorn-ddns/pkg/backend"
	"github.com/acorn-io/acorn-ddns/pkg/db"
	"github.com/acorn-io/acorn-ddns/pkg/model"
	"github.com/sirupsen/logrus"
)

func writeError(w http.ResponseWriter, httpStatus int, err error) {
	if httpStatus >= http.StatusInternalServerError {
		logrus.Errorf("got a response error: %v", err)
	} else {
		logrus.Debugf("got a response error: %v", err)
	}

	o := model.ErrorResponse{
		Status:  httpStatus,
		Message: err.Error(),
	}
	res, _ := json.Marshal(o)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(res)
}

func writeSuccess(w http.ResponseWriter, httpStatus int, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_, _ = w.Write(res)
}

// handleError picks the status code for an error coming out of the backend. Anything unexpected
// is a 500 and its details stay in the log.
func handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, backend.ErrForbidden):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, backend.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, backend.ErrEmailTaken),
		errors.Is(err, backend.ErrRecordRemoving),
		errors.Is(err, backend.ErrRenameInFlight),
		errors.Is(err, db.ErrHostnameTaken):
		writeError(w, http.StatusConflict, err)
	default:
		logrus.Errorf("unexpected error: %v", err)
		writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}
