package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/classhub/classhub-server/internal/model"
)

var validate = validator.New()

var (
	errMalformedBody = errors.New("malformed request body")
	errInvalidPathID = errors.New("invalid id in path")
)

// decodeValid decodes the JSON request body into v and validates it.
func decodeValid(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errMalformedBody
	}

	return validate.Struct(v)
}

// pathID parses a UUID path variable.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, errInvalidPathID
	}

	return id, nil
}

// parsePage reads page and pageSize query parameters. Out-of-range values
// fall back to defaults rather than erroring.
func parsePage(r *http.Request) model.Page {
	page := model.Page{Number: 1, Size: model.DefaultPageSize}
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page.Number = n
		}
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			page.Size = n
		}
	}

	return page
}
