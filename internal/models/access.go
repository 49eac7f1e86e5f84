package models

import (
	"encoding/json"
	"fmt"
)

// AccessLevel is ordered: a level permits every level below it.
type AccessLevel int

const (
	AccessPublic AccessLevel = iota
	AccessStudentsOnly
	AccessVerifiedStudents
	AccessUniversityExclusive
)

var accessNames = map[AccessLevel]string{
	AccessPublic:              "public",
	AccessStudentsOnly:        "students_only",
	AccessVerifiedStudents:    "verified_students",
	AccessUniversityExclusive: "university_exclusive",
}

func (a AccessLevel) String() string {
	if s, ok := accessNames[a]; ok {
		return s
	}
	return fmt.Sprintf("access(%d)", int(a))
}

// Permits reports whether a holder of level a may access something that
// requires level required.
func (a AccessLevel) Permits(required AccessLevel) bool {
	return a >= required
}

func ParseAccessLevel(s string) (AccessLevel, error) {
	for level, name := range accessNames {
		if name == s {
			return level, nil
		}
	}
	return AccessPublic, fmt.Errorf("unknown access level %q", s)
}

func (a AccessLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

func (a *AccessLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	level, err := ParseAccessLevel(s)
	if err != nil {
		return err
	}
	*a = level
	return nil
}
