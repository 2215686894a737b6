package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/divverma2003/convo-app/internal/directory"
	"github.com/divverma2003/convo-app/pkg/pubsub"
)

var (
	ErrMissingID    = errors.New("identity user has no id")
	ErrMissingEmail = errors.New("identity user has no email address")
)

const (
	DefaultLimit = 10
	MaxLimit     = directory.MaxLimit
)

// User is a directory user synchronised from the identity provider. ID is
// the identity provider's user id.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToEntry converts the user to its public directory form.
func (u *User) ToEntry() directory.Entry {
	return directory.Entry{ID: u.ID, Name: u.Name, Image: u.Image}
}

// FromIdentity builds a User from an identity-provider user object. The
// email is the first listed address; the name is "first last", falling
// back to the username, the email and finally the id.
func FromIdentity(p pubsub.UserPayload) (*User, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, ErrMissingID
	}

	var email string
	if len(p.EmailAddresses) > 0 {
		email = strings.ToLower(strings.TrimSpace(p.EmailAddresses[0].EmailAddress))
	}
	if email == "" {
		return nil, ErrMissingEmail
	}

	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	for _, candidate := range []string{p.Username, email, p.ID} {
		if name != "" {
			break
		}
		name = strings.TrimSpace(candidate)
	}

	return &User{
		ID:    p.ID,
		Email: email,
		Name:  name,
		Image: p.ImageURL,
	}, nil
}

// DirectoryQuery is one page request against the user directory.
type DirectoryQuery struct {
	Filter directory.FilterExpr
	Sort   directory.SortSpec
	Limit  int
	Offset int
}

// Normalize applies the default sort and clamps paging.
func (q *DirectoryQuery) Normalize() {
	if len(q.Sort) == 0 {
		q.Sort = directory.ByName()
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}
