package api

import (
	"encoding/xml"
	"net/http"
	"strconv"
	"time"

	"github.com/gfb107/plex-nmt-bridge/internal/apperrors"
)

// Header is the XML declaration prepended to every XML body.
const Header = `<?xml version="1.0" encoding="UTF-8" ?>`

// Envelope is the minimal Plex companion response document.
// Example: <Response status="OK" code="200"/>
type Envelope struct {
	XMLName xml.Name `xml:"Response"`
	Status  string   `xml:"status,attr"`
	Code    string   `xml:"code,attr"`
}

// PlayerHeadersMiddleware stamps the fixed companion-protocol header set on
// every response, error paths included: connection close, the bridge's device
// identifier, the server identity string, a date header, and the default XML
// content type.
func PlayerHeadersMiddleware(machineID, serverIdentity string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := w.Header()
			header.Set("Connection", "close")
			header.Set("X-Plex-Client-Identifier", machineID)
			header.Set("Server", serverIdentity)
			header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
			header.Set("Content-Type", "application/xml")
			next.ServeHTTP(w, r)
		})
	}
}

// WriteXML sends an XML response with the given status.
func WriteXML(w http.ResponseWriter, status int, payload any) error {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(Header)); err != nil {
		return err
	}
	return xml.NewEncoder(w).Encode(payload)
}

// WriteRawXML sends a pre-serialized XML body verbatim. Used for responses
// passed through from the playback device.
func WriteRawXML(w http.ResponseWriter, status int, body string) error {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, err := w.Write([]byte(body))
	return err
}

// WriteSuccess sends the default success envelope.
func WriteSuccess(w http.ResponseWriter) error {
	return WriteXML(w, http.StatusOK, Envelope{Code: "200", Status: "OK"})
}

// WritePlainError sends a plain-text failure body. This is the catch-all
// shape for unexpected internal failures.
func WritePlainError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}

// WriteError serializes an AppError. Internal failures degrade to a
// plain-text 500; everything else gets an XML error envelope.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := apperrors.EnsureAppError(err)

	if appErr.StatusCode == http.StatusNotImplemented {
		_ = WriteXML(w, http.StatusNotImplemented, Envelope{
			Code:   strconv.Itoa(http.StatusNotImplemented),
			Status: "Not Implemented",
		})
		return
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		WritePlainError(w, appErr.StatusCode, appErr.Message)
		return
	}

	status := appErr.Message
	_ = WriteXML(w, appErr.StatusCode, Envelope{
		Code:   strconv.Itoa(appErr.StatusCode),
		Status: status,
	})
}
