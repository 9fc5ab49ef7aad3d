package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docsearch/internal/db"
)

// HSetMulti stores multiple hashes in a single DoMulti round-trip. HSET
// overwrites existing fields, so repeating a write is idempotent per key.
func (s *Store) HSetMulti(ctx context.Context, items []db.HashSetItem) ([]error, error) {
	if len(items) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmd := s.b().Hset().Key(item.Key).FieldValue()
		for k, v := range item.Fields {
			cmd = cmd.FieldValue(k, v)
		}
		cmds[i] = cmd.Build()
	}

	itemErrs := make([]error, len(items))
	for i, res := range s.doMulti(ctx, cmds...) {
		err := res.Error()
		if err == nil {
			continue
		}
		re, ok := rueidis.IsRedisErr(err)
		if !ok || db.IsRequestLevel(re.Error()) {
			return nil, wrapErr(db.OpHSet, err)
		}
		itemErrs[i] = &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w: %w", items[i].Key, db.ErrRejected, err)}
	}
	return itemErrs, nil
}

// HGetAll returns all fields of a hash. A missing key yields an empty map.
func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	cmd := s.b().Hgetall().Key(key).Build()
	m, err := s.do(ctx, cmd).AsStrMap()
	if err != nil {
		return nil, wrapErr(db.OpHGetAll, err)
	}
	return m, nil
}
