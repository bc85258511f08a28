package entities

import (
	"strings"
	"time"
)

// UserType is the role an account holder declares for themselves
type UserType string

const (
	UserTypeOwner  UserType = "Propietario"
	UserTypeAgent  UserType = "Agente"
	UserTypeTenant UserType = "Inquilino"
)

// Valid reports whether t is one of the known user types
func (t UserType) Valid() bool {
	switch t {
	case UserTypeOwner, UserTypeAgent, UserTypeTenant:
		return true
	}
	return false
}

// User pool attribute names
const (
	AttrSub           = "sub"
	AttrEmail         = "email"
	AttrEmailVerified = "email_verified"
	AttrGivenName     = "given_name"
	AttrFamilyName    = "family_name"
	AttrUserType      = "custom:user_type"
)

// Registration is a self sign-up request
type Registration struct {
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Password  string   `json:"password"`
	UserType  UserType `json:"userType,omitempty"`
}

// SignUpResult is what the user pool reports after a sign-up
type SignUpResult struct {
	UserSub       string `json:"userSub"`
	UserConfirmed bool   `json:"userConfirmed"`
}

// AuthTokens are the tokens issued by a password login
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresIn    int32  `json:"expiresIn"`
}

// UserAccount is one user pool entry with its raw attributes
type UserAccount struct {
	Username   string            `json:"username"`
	Status     string            `json:"userStatus,omitempty"`
	Enabled    bool              `json:"enabled"`
	Attributes map[string]string `json:"attributes"`
	CreatedAt  *time.Time        `json:"createdAt,omitempty"`
}

// UserPage is one page of a user pool listing
type UserPage struct {
	Users           []*UserAccount `json:"users"`
	PaginationToken string         `json:"paginationToken,omitempty"`
	HasMore         bool           `json:"hasMore"`
}

// ProfileUpdate carries the editable profile fields. Nil and blank fields
// are left untouched.
type ProfileUpdate struct {
	FirstName *string   `json:"firstName,omitempty"`
	LastName  *string   `json:"lastName,omitempty"`
	Email     *string   `json:"email,omitempty"`
	UserType  *UserType `json:"userType,omitempty"`
}

// Attributes returns the user pool attributes the update sets
func (u ProfileUpdate) Attributes() map[string]string {
	attrs := map[string]string{}
	set := func(name string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			attrs[name] = strings.TrimSpace(*v)
		}
	}
	set(AttrGivenName, u.FirstName)
	set(AttrFamilyName, u.LastName)
	if u.Email != nil {
		email := strings.ToLower(*u.Email)
		set(AttrEmail, &email)
	}
	if u.UserType != nil && *u.UserType != "" {
		attrs[AttrUserType] = string(*u.UserType)
	}
	return attrs
}

// UserProfile is the caller's profile merged from the user pool entry and
// the token groups.
type UserProfile struct {
	ID            string   `json:"id"`
	Email         string   `json:"email"`
	FirstName     string   `json:"firstName,omitempty"`
	LastName      string   `json:"lastName,omitempty"`
	Username      string   `json:"username"`
	Groups        []string `json:"groups"`
	EmailVerified bool     `json:"emailVerified"`
	UserType      string   `json:"userType,omitempty"`
}

// NewUserProfile prefers the fresh account attributes over the token claims.
// account may be nil.
func NewUserProfile(identity *Identity, account *UserAccount) *UserProfile {
	p := &UserProfile{
		ID:            identity.Sub,
		Email:         identity.Email,
		FirstName:     identity.GivenName,
		LastName:      identity.FamilyName,
		Username:      identity.Username,
		Groups:        identity.Groups,
		EmailVerified: identity.EmailVerified,
		UserType:      identity.UserType,
	}
	if p.Groups == nil {
		p.Groups = []string{}
	}
	if account == nil {
		return p
	}

	pick := func(dst *string, name string) {
		if v := account.Attributes[name]; v != "" {
			*dst = v
		}
	}
	pick(&p.ID, AttrSub)
	pick(&p.Email, AttrEmail)
	pick(&p.FirstName, AttrGivenName)
	pick(&p.LastName, AttrFamilyName)
	pick(&p.UserType, AttrUserType)
	if account.Username != "" {
		p.Username = account.Username
	}
	if v, ok := account.Attributes[AttrEmailVerified]; ok {
		p.EmailVerified = v == "true"
	}
	return p
}

// InGroup reports whether the identity belongs to any of groups
func (i *Identity) InGroup(groups ...string) bool {
	for _, want := range groups {
		for _, have := range i.Groups {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}
