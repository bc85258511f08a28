package entities

// Identity is the authenticated caller as asserted by the identity provider
type Identity struct {
	Sub           string   `json:"sub"`
	Email         string   `json:"email"`
	EmailVerified bool     `json:"email_verified"`
	GivenName     string   `json:"given_name,omitempty"`
	FamilyName    string   `json:"family_name,omitempty"`
	Groups        []string `json:"groups,omitempty"`
	Username      string   `json:"username,omitempty"`
	UserType      string   `json:"user_type,omitempty"`
}
