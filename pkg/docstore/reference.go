package docstore

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// reference is one entry of a document's optional md field: a pointer to a
// sidecar attachment, plus an optional content digest. See spec.md §3's
// "Reference value".
type reference struct {
	Path   string
	Digest string // lowercase hex sha256; empty if not recorded
}

const digestHexLen = sha256.Size * 2

// parseReferences validates and decodes doc's optional md field. A document
// with no md field returns (nil, nil); md present but not a mapping, or any
// entry malformed, is a validation error.
func parseReferences(doc Doc) (map[string]reference, error) {
	raw, ok := doc["md"]
	if !ok {
		return nil, nil
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, wrap(ErrValidation, withReason("md field must be a mapping"))
	}

	refs := make(map[string]reference, len(obj))

	for field, v := range obj {
		ref, err := parseReference(v)
		if err != nil {
			return nil, wrap(err, withReason("md."+field))
		}

		refs[field] = ref
	}

	return refs, nil
}

func parseReference(v any) (reference, error) {
	switch val := v.(type) {
	case string:
		if err := validateReferencePath(val); err != nil {
			return reference{}, err
		}

		return reference{Path: val}, nil
	case map[string]any:
		path, _ := val["path"].(string)
		if err := validateReferencePath(path); err != nil {
			return reference{}, err
		}

		digest, _ := val["digest"].(string)
		if digest != "" {
			if err := validateDigestFormat(digest); err != nil {
				return reference{}, err
			}
		}

		return reference{Path: path, Digest: digest}, nil
	default:
		return reference{}, wrap(ErrValidation, withReason("reference value must be a path string or an object"))
	}
}

func validateReferencePath(p string) error {
	if p == "" || strings.HasPrefix(p, "/") || strings.Contains(p, "..") || strings.Contains(p, "\\") {
		return wrap(ErrValidation, withReason("invalid reference path"))
	}

	if !strings.HasSuffix(p, attachmentExt) {
		return wrap(ErrValidation, withReason("reference path must end in "+attachmentExt))
	}

	return nil
}

func validateDigestFormat(d string) error {
	if len(d) != digestHexLen {
		return wrap(ErrValidation, withReason("digest must be a lowercase hex sha256"))
	}

	for _, r := range d {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			return wrap(ErrValidation, withReason("digest must be lowercase hex"))
		}
	}

	return nil
}

func sha256Hex(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// ValidateReferences checks every entry of key's document's md field: the
// referenced attachment exists under the document directory and, where a
// digest was recorded, that the attachment's sha256 matches it. Requires the
// store be opened with [WithSidecar].
func (s *Store) ValidateReferences(key Key) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if !s.cfg.EnableSidecar {
		return wrap(ErrBadOption, withKey(key), withReason("store was not opened with sidecar mode"))
	}

	doc, err := s.Get(key)
	if err != nil {
		return err
	}

	if doc == nil {
		return wrap(ErrNotFound, withKey(key))
	}

	refs, err := parseReferences(doc)
	if err != nil {
		return wrap(err, withKey(key))
	}

	for field, ref := range refs {
		content, err := s.ReadAttachment(key, ref.Path)
		if err != nil {
			return wrap(err, withKey(key), withReason("md."+field))
		}

		if ref.Digest != "" && sha256Hex(content) != ref.Digest {
			return wrap(ErrIntegrity, withKey(key), withReason("md."+field+" digest mismatch"))
		}
	}

	return nil
}
