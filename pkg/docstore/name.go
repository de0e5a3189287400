package docstore

import "strings"

// Key identifies a document by its (type, id) pair. Both fields must
// satisfy the name grammar enforced by [validateName].
type Key struct {
	Type string
	ID   string
}

// String renders the key the way it appears in error messages ("type/id").
func (k Key) String() string {
	return k.Type + "/" + k.ID
}

// validateName enforces the name grammar shared by type and id components:
// non-empty, no leading/trailing separator, no path separator, no "..", no
// leading ".", and restricted to letters, digits, underscore, dash, dot.
func validateName(kind, name string) error {
	if name == "" {
		return wrap(ErrValidation, withReason(kind+" is empty"))
	}

	if name == "." || name == ".." {
		return wrap(ErrValidation, withReason(kind+" must not be \".\" or \"..\""))
	}

	if strings.HasPrefix(name, ".") {
		return wrap(ErrValidation, withReason(kind+" must not start with \".\""))
	}

	if strings.ContainsAny(name, "/\\") {
		return wrap(ErrValidation, withReason(kind+" must not contain a path separator"))
	}

	if strings.Contains(name, "..") {
		return wrap(ErrValidation, withReason(kind+" must not contain \"..\""))
	}

	if strings.HasPrefix(name, "-") || strings.HasSuffix(name, "-") {
		return wrap(ErrValidation, withReason(kind+" must not start or end with \"-\""))
	}

	for _, r := range name {
		if !isNameRune(r) {
			return wrap(ErrValidation, withReason(kind+" contains an invalid character"))
		}
	}

	return nil
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-' || r == '.':
		return true
	default:
		return false
	}
}

// validateKey validates both components of a key.
func validateKey(k Key) error {
	if err := validateName("type", k.Type); err != nil {
		return err
	}

	if err := validateName("id", k.ID); err != nil {
		return err
	}

	return nil
}
