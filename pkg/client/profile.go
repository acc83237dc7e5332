package client

import (
	"encoding/json"
	"time"
)

// Profile is a GitHub user profile as returned by GET /users/{login}.
type Profile struct {
	Login       string    `json:"login"`
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Company     string    `json:"company"`
	Blog        string    `json:"blog"`
	Location    string    `json:"location"`
	Bio         string    `json:"bio"`
	PublicRepos int       `json:"public_repos"`
	Followers   int       `json:"followers"`
	Following   int       `json:"following"`
	AvatarURL   string    `json:"avatar_url"`
	HTMLURL     string    `json:"html_url"`
	CreatedAt   time.Time `json:"created_at"`

	// Raw is the unmodified response body. Cached payloads round-trip
	// through Raw so a cache hit returns bit-identical bytes.
	Raw json.RawMessage `json:"-"`
}

// parseProfile decodes a response body into a Profile, keeping the
// original bytes in Raw.
func parseProfile(body []byte) (*Profile, error) {
	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, err
	}
	profile.Raw = json.RawMessage(body)
	return &profile, nil
}
