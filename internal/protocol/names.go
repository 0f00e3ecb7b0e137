package protocol

import "strings"

// ValidateName enforces the shared constraints on file and folder names:
// non-empty, at most MaxNameLength bytes, no path separators, no ".."
// substring. Names are case-sensitive and flat; there is no hierarchy to
// traverse, so anything that looks like traversal is rejected outright.
func ValidateName(name string) error {
	switch {
	case name == "":
		return NewInvalidParam("Invalid filename")
	case len(name) > MaxNameLength:
		return NewInvalidParam("Filename too long")
	case strings.Contains(name, "/"), strings.Contains(name, ".."):
		return NewInvalidParam("Invalid filename")
	}
	return nil
}

// ValidateUsername enforces the constraints on user names: non-empty and at
// most MaxNameLength bytes.
func ValidateUsername(user string) error {
	switch {
	case user == "":
		return NewInvalidParam("Invalid username")
	case len(user) > MaxNameLength:
		return NewInvalidParam("Username too long")
	}
	return nil
}
