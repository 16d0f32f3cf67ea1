package http

import (
	"encoding/xml"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-http-utils/headers"
	"github.com/sagarc03/bucketfs"
)

// ErrorResponse is the XML error document returned by bucket endpoints.
type ErrorResponse struct {
	XMLName xml.Name `xml:"Error"`
	Code    string   `xml:"Code"`
	Message string   `xml:"Message"`
}

// WriteError writes an XML error response. HEAD requests get the status only.
func WriteError(w http.ResponseWriter, r *http.Request, code int, errCode, message string) {
	if r != nil && r.Method == http.MethodHead {
		w.WriteHeader(code)
		return
	}

	w.Header().Set(headers.ContentType, "application/xml")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(xml.Header))
	if err := xml.NewEncoder(w).Encode(ErrorResponse{
		Code:    errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes appropriate error response based on error type
func HandleError(w http.ResponseWriter, err error) {
	handleError(w, nil, err)
}

// HandleRequestError is HandleError for handlers that know the request.
func HandleRequestError(w http.ResponseWriter, r *http.Request, err error) {
	handleError(w, r, err)
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Debug("request error", "error", err)

	switch {
	case errors.Is(err, bucketfs.ErrNotFound):
		WriteError(w, r, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
	case errors.Is(err, bucketfs.ErrInvalidInput):
		WriteError(w, r, http.StatusBadRequest, "InvalidArgument", err.Error())
	case errors.Is(err, bucketfs.ErrUnauthorized):
		code := "AccessDenied"
		if strings.Contains(err.Error(), "signature mismatch") {
			code = "SignatureDoesNotMatch"
		}
		WriteError(w, r, http.StatusForbidden, code, err.Error())
	default:
		WriteError(w, r, http.StatusInternalServerError, "InternalError", "We encountered an internal error. Please try again.")
	}
}
