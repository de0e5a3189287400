package docstore

import (
	"context"
	"fmt"
)

// slugField and aliasField are the reserved, "_"-prefixed index files
// scoped-index operations persist through, per spec.md §4.5: "additional
// reserved index files (e.g. for slug/alias resolution) use the _ prefix".
const (
	slugField  = "_slug"
	aliasField = "_alias"
)

// ClaimSlug claims label for id within scope (e.g. a country code), for
// typ. A label already claimed by a different id within the same scope
// fails with [ErrSlugClaimConflict], reporting the current holder rather
// than silently overwriting it — claiming the same label for the same id
// again is a no-op.
func (s *Store) ClaimSlug(typ, scope, label, id string) error {
	return s.claimScoped(typ, slugField, scope, label, id)
}

// ResolveSlug looks up the id claiming label within scope for typ, if any.
func (s *Store) ResolveSlug(typ, scope, label string) (string, bool, error) {
	return s.resolveScoped(typ, slugField, scope, label)
}

// ClaimAlias is [ClaimSlug]'s counterpart for the alias scoped index.
func (s *Store) ClaimAlias(typ, scope, label, id string) error {
	return s.claimScoped(typ, aliasField, scope, label, id)
}

// ResolveAlias is [ResolveSlug]'s counterpart for the alias scoped index.
func (s *Store) ResolveAlias(typ, scope, label string) (string, bool, error) {
	return s.resolveScoped(typ, aliasField, scope, label)
}

// scopedKey composes the posting-map key a scoped claim is stored under:
// the scope and label joined by a separator that can't appear in either
// (both pass through [validateName] and are therefore alphanumeric/._- ).
func scopedKey(scope, label string) string {
	return scope + "\x1f" + label
}

func (s *Store) claimScoped(typ, field, scope, label, id string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	if err := validateName("type", typ); err != nil {
		return err
	}

	if err := validateName("scope", scope); err != nil {
		return err
	}

	if err := validateName("label", label); err != nil {
		return err
	}

	ctx := context.Background()
	key := scopedKey(scope, label)

	if err := s.idx.ensureExists(ctx, typ, field); err != nil {
		return err
	}

	existing, err := s.idx.queryWithIndex(ctx, typ, field, key)
	if err != nil {
		return err
	}

	for _, holder := range existing {
		if holder != id {
			return wrap(ErrSlugClaimConflict, withReason(fmt.Sprintf("%s/%s already claimed by %s", scope, label, holder)))
		}
	}

	if len(existing) > 0 {
		return nil // already claimed by id; idempotent.
	}

	return s.idx.updateIndex(ctx, typ, field, id, nil, key, false, true)
}

func (s *Store) resolveScoped(typ, field, scope, label string) (string, bool, error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}

	ids, err := s.idx.queryWithIndex(context.Background(), typ, field, scopedKey(scope, label))
	if err != nil {
		return "", false, err
	}

	if len(ids) == 0 {
		return "", false, nil
	}

	return ids[0], true, nil
}
