package recording

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoWeek is returned when a file name carries no _wk<N>_ses<M> tag
var ErrNoWeek = errors.New("could not parse week from filename")

var (
	weekSessionRe = regexp.MustCompile(`(?i)_wk(\d+)_ses(\d+(?:\.\d+)?)`)
	subjectRe     = regexp.MustCompile(`(?i)^sub\d+$`)
)

// ParseSourceName extracts the protocol week and session label from a recording path
func ParseSourceName(path string) (week int, session string, err error) {
	m := weekSessionRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, "", fmt.Errorf("%w: %s", ErrNoWeek, filepath.Base(path))
	}
	week, err = strconv.Atoi(m[1])
	if err != nil {
		return 0, "", fmt.Errorf("%w: %s", ErrNoWeek, filepath.Base(path))
	}
	return week, m[2], nil
}

// Meta is the report identity of a recording derived from its path
type Meta struct {
	Group   string
	Subject string
	Week    int // 0 when unknown
	Session string
}

// ParsePath derives group, subject, week and session from a recording path.
// Fields that cannot be found are left empty.
func ParsePath(path string) Meta {
	var meta Meta

	parts := strings.Split(filepath.ToSlash(path), "/")
	for i, part := range parts {
		switch {
		case strings.EqualFold(part, GroupSupervised) && meta.Group == "":
			meta.Group = GroupSupervised
		case strings.EqualFold(part, GroupUnsupervised) && meta.Group == "":
			meta.Group = GroupUnsupervised
		case i < len(parts)-1 && subjectRe.MatchString(part):
			meta.Subject = strings.ToLower(part)
		}
	}

	if week, session, err := ParseSourceName(path); err == nil {
		meta.Week = week
		meta.Session = session
	}
	return meta
}
