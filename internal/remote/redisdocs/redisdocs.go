// Package redisdocs stores documents and credentials in Redis. Each document
// is a JSON string; a per-user sorted set scored by a global sequence keeps
// the newest-first order.
package redisdocs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/sadopc/tempo/internal/auth"
	"github.com/sadopc/tempo/internal/remote"
)

const defaultPrefix = "tempo:"

type Store struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

var (
	_ remote.Documents     = (*Store)(nil)
	_ auth.CredentialStore = (*Store)(nil)
)

// New wraps an existing client.
func New(client *redis.Client) *Store {
	return &Store{rdb: client, prefix: defaultPrefix, now: time.Now}
}

// Open connects to the Redis server at url (redis://…) and checks it responds.
func Open(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client), nil
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) docKey(c remote.Collection, id string) string {
	return s.prefix + "doc:" + string(c) + ":" + id
}

func (s *Store) indexKey(c remote.Collection, userID string) string {
	return s.prefix + "idx:" + string(c) + ":" + userID
}

func (s *Store) seqKey() string {
	return s.prefix + "seq"
}

func (s *Store) credKey(email string) string {
	return s.prefix + "cred:" + email
}

func (s *Store) revokedKey(tokenID string) string {
	return s.prefix + "revoked:" + tokenID
}

func (s *Store) Create(ctx context.Context, c remote.Collection, doc remote.Document) (remote.Document, error) {
	if !c.Valid() {
		return remote.Document{}, remote.ErrInvalidCollection
	}
	fields, err := remote.NormalizeFields(doc.Fields)
	if err != nil {
		return remote.Document{}, err
	}
	doc.ID = uuid.NewString()
	doc.Fields = fields
	doc.CreatedAt = s.now().UTC().Truncate(time.Second)
	data, err := json.Marshal(doc)
	if err != nil {
		return remote.Document{}, fmt.Errorf("encode document: %w", err)
	}
	seq, err := s.rdb.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return remote.Document{}, fmt.Errorf("next sequence: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.docKey(c, doc.ID), data, 0)
		p.ZAdd(ctx, s.indexKey(c, doc.UserID), redis.Z{Score: float64(seq), Member: doc.ID})
		return nil
	})
	if err != nil {
		return remote.Document{}, fmt.Errorf("store document: %w", err)
	}
	return doc, nil
}

func (s *Store) List(ctx context.Context, c remote.Collection, f remote.Filter) ([]remote.Document, error) {
	if !c.Valid() {
		return nil, remote.ErrInvalidCollection
	}
	ids, err := s.rdb.ZRevRange(ctx, s.indexKey(c, f.UserID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(c, id)
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	docs := make([]remote.Document, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry without a document; skip it.
			continue
		}
		var d remote.Document
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", ids[i], err)
		}
		if f.Matches(d) {
			docs = append(docs, d)
		}
	}
	return docs, nil
}

func (s *Store) Update(ctx context.Context, c remote.Collection, userID, id string, fields map[string]any) error {
	if !c.Valid() {
		return remote.ErrInvalidCollection
	}
	patch, err := remote.NormalizeFields(fields)
	if err != nil {
		return err
	}
	key := s.docKey(c, id)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		d, err := getDoc(ctx, tx, key)
		if err != nil {
			return err
		}
		if d.UserID != userID {
			return remote.ErrNotFound
		}
		if d.Fields == nil {
			d.Fields = map[string]any{}
		}
		for k, v := range patch {
			d.Fields[k] = v
		}
		if y, ok := patch["year"].(float64); ok {
			d.Year = int(y)
		}
		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, c remote.Collection, userID, id string) error {
	if !c.Valid() {
		return remote.ErrInvalidCollection
	}
	key := s.docKey(c, id)
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		d, err := getDoc(ctx, tx, key)
		if err != nil {
			return err
		}
		if d.UserID != userID {
			return remote.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			p.ZRem(ctx, s.indexKey(c, userID), id)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func getDoc(ctx context.Context, tx *redis.Tx, key string) (remote.Document, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return remote.Document{}, remote.ErrNotFound
	}
	if err != nil {
		return remote.Document{}, err
	}
	var d remote.Document
	if err := json.Unmarshal(data, &d); err != nil {
		return remote.Document{}, fmt.Errorf("decode document: %w", err)
	}
	return d, nil
}

func (s *Store) PutCredential(ctx context.Context, c auth.Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, s.credKey(c.Email), data, 0).Result()
	if err != nil {
		return fmt.Errorf("store credential: %w", err)
	}
	if !ok {
		return remote.ErrExists
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, email string) (auth.Credential, error) {
	data, err := s.rdb.Get(ctx, s.credKey(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return auth.Credential{}, remote.ErrNotFound
	}
	if err != nil {
		return auth.Credential{}, fmt.Errorf("get credential: %w", err)
	}
	var c auth.Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return auth.Credential{}, fmt.Errorf("decode credential: %w", err)
	}
	return c, nil
}

// RevokeToken keeps the revocation only as long as the token could be used.
func (s *Store) RevokeToken(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, s.revokedKey(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *Store) TokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, s.revokedKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}
