package auth

// UserProfile represents a normalized identity returned by the
// identity provider. It contains facts only, no decisions.
// UserID is the only guaranteed field; the rest is best-effort
// enrichment from the provider's directory lookup.
type UserProfile struct {
	UserID     string `json:"userId"`
	Name       string `json:"name,omitempty"`
	Mobile     string `json:"mobile,omitempty"`
	Email      string `json:"email,omitempty"`
	AvatarURL  string `json:"avatarUrl,omitempty"`
	Department string `json:"department,omitempty"`
	IsTestUser bool   `json:"isTestUser"`
}

// ExchangeResult is the outcome of a successful code exchange.
// Complete reports whether the directory enrichment succeeded; a
// minimal result still carries a confirmed UserID.
type ExchangeResult struct {
	Profile  UserProfile
	Complete bool
}
