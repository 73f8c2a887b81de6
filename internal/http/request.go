package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"spendwise/internal/core"
	"spendwise/internal/display"
)

const (
	HeaderOwnerID  = "X-Owner-ID"
	HeaderCurrency = "X-Currency"

	maxBodyBytes = 1 << 20
)

// ownerID reads the acting owner from the X-Owner-ID header.
func ownerID(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.Header.Get(HeaderOwnerID))
	if v == "" {
		return 0, badRequest("missing " + HeaderOwnerID + " header")
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid " + HeaderOwnerID + " header")
	}
	return id, nil
}

// pathID parses the {id} wildcard of the matched route.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id")
	}
	return id, nil
}

// decodeJSON reads a bounded JSON body into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return &requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		if errors.Is(err, io.EOF) {
			return badRequest("empty request body")
		}
		return badRequest(fmt.Sprintf("malformed JSON: %v", err))
	}
	if dec.More() {
		return badRequest("unexpected data after JSON body")
	}
	return nil
}

// refDate reads the optional ?date= reference, defaulting to today.
func (s *Server) refDate(r *http.Request) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get("date"))
	if v == "" {
		return core.DateOf(s.now()), nil
	}
	return core.ParseDate(v)
}

// displayContext derives the formatting context from X-Currency and Accept-Language.
func (s *Server) displayContext(r *http.Request) (display.Context, error) {
	code := r.Header.Get(HeaderCurrency)
	if code == "" {
		code = s.defaultCurrency
	}
	dc, err := display.FromAcceptLanguage(code, r.Header.Get("Accept-Language"), s.defaultLocale)
	if err != nil {
		return display.Context{}, &core.ValidationError{Field: "currency", Reason: "must be an ISO 4217 code"}
	}
	return dc, nil
}

// flexString accepts a JSON string or a bare number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	*f = flexString(data)
	return nil
}

func (f *flexString) ptr() *string {
	if f == nil {
		return nil
	}
	s := string(*f)
	return &s
}
