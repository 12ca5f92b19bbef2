package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildExportKey returns the object key for one exported result:
// <sessionID>/<date>/result-<hhmmss>.<ext>. The session component is
// validated so a hostile session header cannot escape the prefix.
func BuildExportKey(sessionID, extension string, at time.Time) (string, error) {
	if err := validatePathComponent(sessionID, "session id"); err != nil {
		return "", err
	}
	if err := validatePathComponent(extension, "extension"); err != nil {
		return "", err
	}

	ts := at.UTC()
	return path.Join(
		sessionID,
		fmt.Sprintf("%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("result-%02d%02d%02d.%s", ts.Hour(), ts.Minute(), ts.Second(), extension),
	), nil
}

func validatePathComponent(value, field string) error {
	if !pathComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
