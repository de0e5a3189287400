package docstore

import (
	"context"
)

// Query evaluates spec against typ's documents (or, if typ is empty, across
// every type directory discovered at the store root), following the
// pipeline filter -> sort -> skip -> limit -> project. Two fast paths avoid
// a full scan (§4.6): an id-only equality/membership filter with no
// sort/projection, and a single indexed-field equality filter.
func (s *Store) Query(typ string, spec QueryOptions) ([]Doc, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	if spec.Filter == nil {
		return nil, wrap(ErrFilterRequired)
	}

	if err := validateQueryOptions(spec); err != nil {
		return nil, err
	}

	if typ != "" {
		if err := validateName("type", typ); err != nil {
			return nil, err
		}
	}

	if fast, ok, err := s.tryFastPath(typ, spec); ok || err != nil {
		return fast, err
	}

	docs, err := s.scanForQuery(typ)
	if err != nil {
		return nil, err
	}

	return s.runPipeline(docs, spec)
}

// tryFastPath attempts the id-fast-path and index-fast-path from §4.6. ok
// is false when neither fast path applies and the caller must fall back to
// a full scan.
func (s *Store) tryFastPath(typ string, spec QueryOptions) (docs []Doc, ok bool, err error) {
	if typ == "" || len(spec.Sort) != 0 || len(spec.Select) != 0 {
		return nil, false, nil
	}

	if len(spec.Filter) != 1 {
		return nil, false, nil
	}

	if ids, matched := idFastPathIDs(spec.Filter); matched {
		result, err := s.loadByIDs(typ, ids)
		if err != nil {
			return nil, true, err
		}

		return s.finishFastPath(result, spec), true, nil
	}

	for field := range spec.Filter {
		if field == "id" {
			continue
		}

		value, eq := equalityClause(field, spec.Filter)
		if !eq {
			continue
		}

		has, err := s.idx.hasIndex(context.Background(), typ, field)
		if err != nil || !has {
			continue
		}

		ids, err := s.idx.queryWithIndex(context.Background(), typ, field, value)
		if err != nil {
			continue // degrade to full scan.
		}

		docs, err := s.loadByIDs(typ, ids)
		if err != nil {
			return nil, true, err
		}

		return s.finishFastPath(docs, spec), true, nil
	}

	return nil, false, nil
}

// idFastPathIDs recognizes {"id": {"$eq": v}} or {"id": {"$in": [...]}} (or
// the bare-literal equivalent of $eq) as an id-only filter.
func idFastPathIDs(filter Filter) ([]string, bool) {
	clause, present := filter["id"]
	if !present {
		return nil, false
	}

	ops, isOpDoc := operatorDocument(clause)
	if !isOpDoc {
		if s, ok := clause.(string); ok {
			return []string{s}, true
		}

		return nil, false
	}

	if len(ops) != 1 {
		return nil, false
	}

	if v, has := ops["$eq"]; has {
		if s, ok := v.(string); ok {
			return []string{s}, true
		}

		return nil, false
	}

	if v, has := ops["$in"]; has {
		arr, ok := v.([]any)
		if !ok {
			return nil, false
		}

		ids := make([]string, 0, len(arr))

		for _, elem := range arr {
			s, ok := elem.(string)
			if !ok {
				return nil, false
			}

			ids = append(ids, s)
		}

		return ids, true
	}

	return nil, false
}

func (s *Store) loadByIDs(typ string, ids []string) ([]Doc, error) {
	docs := make([]Doc, 0, len(ids))

	for _, id := range ids {
		doc, ok, err := s.readRaw(Key{Type: typ, ID: id})
		if err != nil {
			return nil, err
		}

		if ok {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

// finishFastPath applies skip/limit (sort/projection are disallowed on a
// fast path by construction in tryFastPath) to a fast-path result set,
// ordering by id for determinism.
func (s *Store) finishFastPath(docs []Doc, spec QueryOptions) []Doc {
	sortDocs(docs, nil)

	return paginate(docs, spec.Skip, spec.Limit)
}

func (s *Store) scanForQuery(typ string) ([]Doc, error) {
	if typ != "" {
		return s.loadAll(typ)
	}

	typeDirs, err := s.discoverTypes()
	if err != nil {
		return nil, err
	}

	var all []Doc

	for _, t := range typeDirs {
		docs, err := s.loadAll(t)
		if err != nil {
			return nil, err
		}

		all = append(all, docs...)
	}

	return all, nil
}

func (s *Store) discoverTypes() ([]string, error) {
	entries, err := s.fsys.ReadDir(s.sbox.root)
	if err != nil {
		return nil, wrap(err, withKind(KindList))
	}

	var types []string

	for _, e := range entries {
		if e.IsDir() && e.Name() != "_meta" {
			types = append(types, e.Name())
		}
	}

	return types, nil
}

func (s *Store) runPipeline(docs []Doc, spec QueryOptions) ([]Doc, error) {
	matched := make([]Doc, 0, len(docs))

	for _, doc := range docs {
		ok, err := matchFilter(doc, spec.Filter)
		if err != nil {
			return nil, wrap(err, withKind(KindValidation))
		}

		if ok {
			matched = append(matched, doc)
		}
	}

	if len(spec.Sort) > 0 {
		sortDocs(matched, spec.Sort)
	} else {
		sortDocs(matched, nil)
	}

	matched = paginate(matched, spec.Skip, spec.Limit)

	if len(spec.Select) > 0 {
		projected := make([]Doc, len(matched))
		for i, doc := range matched {
			projected[i] = project(doc, spec.Select, spec.Exclude)
		}

		return projected, nil
	}

	out := make([]Doc, len(matched))
	for i, doc := range matched {
		out[i] = deepCopyDoc(doc).(Doc)
	}

	return out, nil
}

func paginate(docs []Doc, skip, limit int) []Doc {
	if skip > 0 {
		if skip >= len(docs) {
			return []Doc{}
		}

		docs = docs[skip:]
	}

	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}

	return docs
}
