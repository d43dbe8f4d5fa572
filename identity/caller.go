package identity

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"estate_office/models"
)

// Headers set by the authentication proxy in front of the api
const (
	HeaderOfficeID = "X-Office-ID"
	HeaderUserID   = "X-User-ID"
	HeaderRole     = "X-User-Role"
)

var ErrNoIdentity = errors.New("caller identity missing or malformed")

// FromHeaders reads the trusted caller identity off a request
func FromHeaders(h http.Header) (models.Identity, error) {
	officeID, err := uuid.Parse(strings.TrimSpace(h.Get(HeaderOfficeID)))
	if err != nil {
		return models.Identity{}, ErrNoIdentity
	}
	userID, err := uuid.Parse(strings.TrimSpace(h.Get(HeaderUserID)))
	if err != nil {
		return models.Identity{}, ErrNoIdentity
	}
	id := models.Identity{
		OfficeID: officeID,
		UserID:   userID,
		Role:     models.Role(strings.ToUpper(strings.TrimSpace(h.Get(HeaderRole)))),
	}
	if !id.Valid() {
		return models.Identity{}, ErrNoIdentity
	}
	return id, nil
}

// SetHeaders writes id onto h, the inverse of FromHeaders
func SetHeaders(h http.Header, id models.Identity) {
	h.Set(HeaderOfficeID, id.OfficeID.String())
	h.Set(HeaderUserID, id.UserID.String())
	h.Set(HeaderRole, string(id.Role))
}
