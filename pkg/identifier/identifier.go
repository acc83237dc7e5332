// Package identifier validates and parses GitHub login identifiers.
// Logins are 1-39 characters, alphanumeric with internal hyphens only.
package identifier

import (
	"regexp"
	"strings"
)

// MaxLength is the maximum login length accepted by GitHub.
const MaxLength = 39

// loginPattern requires an alphanumeric start and end; hyphens may only
// appear between them.
var loginPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$`)

// Validate reports whether raw is a well-formed login after trimming
// surrounding whitespace.
func Validate(raw string) bool {
	login := strings.TrimSpace(raw)
	if login == "" || len(login) > MaxLength {
		return false
	}
	return loginPattern.MatchString(login)
}

// Normalize returns the cache-key form of a login. GitHub logins are
// case-insensitive, so cache lookups key on the lower-cased form while
// display keeps the original casing.
func Normalize(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// Batch is the outcome of parsing a raw comma-separated query.
type Batch struct {
	// Valid holds accepted logins in first-seen order, duplicates removed.
	Valid []string

	// Invalid holds rejected tokens in input order (empty tokens excluded).
	Invalid []string
}

// ParseBatch splits a raw query on commas, trims each token, and partitions
// the tokens into valid and invalid logins. Duplicates are removed by exact
// string match, keeping the first occurrence; "Octocat" and "octocat" are
// deliberately kept as distinct entries even though the API treats logins
// case-insensitively (the cache layer collapses them to one request).
func ParseBatch(rawQuery string) Batch {
	var batch Batch
	seen := make(map[string]struct{})

	for _, token := range strings.Split(rawQuery, ",") {
		login := strings.TrimSpace(token)
		if login == "" {
			continue
		}

		if !Validate(login) {
			batch.Invalid = append(batch.Invalid, login)
			continue
		}

		if _, dup := seen[login]; dup {
			continue
		}
		seen[login] = struct{}{}
		batch.Valid = append(batch.Valid, login)
	}

	return batch
}
