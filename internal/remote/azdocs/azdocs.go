// Package azdocs stores documents in Azure Table Storage: one table per
// collection, partitioned by user id, with document fields kept as entity
// properties.
package azdocs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"github.com/sadopc/tempo/internal/auth"
	"github.com/sadopc/tempo/internal/remote"
)

const (
	tablePrefix      = "tempo"
	credentialsTable = tablePrefix + "credentials"
	revokedTable     = tablePrefix + "revoked"
	credPartition    = "cred"
	revokedPartition = "revoked"

	// fieldPrefix keeps document fields apart from system and bookkeeping
	// properties.
	fieldPrefix = "f_"
	// createdLayout sorts lexically in time order.
	createdLayout = "2006-01-02T15:04:05.000000000Z"
)

type Store struct {
	tables  map[remote.Collection]*aztables.Client
	creds   *aztables.Client
	revoked *aztables.Client
	now     func() time.Time
}

var (
	_ remote.Documents     = (*Store)(nil)
	_ auth.CredentialStore = (*Store)(nil)
)

// Open connects with connStr and creates any missing tables.
func Open(ctx context.Context, connStr string) (*Store, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, fmt.Errorf("azure tables client: %w", err)
	}
	s := &Store{tables: map[remote.Collection]*aztables.Client{}, now: time.Now}
	names := []string{credentialsTable, revokedTable}
	for _, c := range remote.Collections {
		names = append(names, tableName(c))
	}
	for _, name := range names {
		if _, err := svc.CreateTable(ctx, name, nil); err != nil {
			var respErr *azcore.ResponseError
			if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
				return nil, fmt.Errorf("create table %s: %w", name, err)
			}
		}
	}
	for _, c := range remote.Collections {
		s.tables[c] = svc.NewClient(tableName(c))
	}
	s.creds = svc.NewClient(credentialsTable)
	s.revoked = svc.NewClient(revokedTable)
	return s, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) table(c remote.Collection) (*aztables.Client, error) {
	t, ok := s.tables[c]
	if !ok {
		return nil, remote.ErrInvalidCollection
	}
	return t, nil
}

func (s *Store) Create(ctx context.Context, c remote.Collection, doc remote.Document) (remote.Document, error) {
	t, err := s.table(c)
	if err != nil {
		return remote.Document{}, err
	}
	fields, err := remote.NormalizeFields(doc.Fields)
	if err != nil {
		return remote.Document{}, err
	}
	doc.ID = uuid.NewString()
	doc.Fields = fields
	doc.CreatedAt = s.now().UTC()
	payload, err := encodeEntity(doc)
	if err != nil {
		return remote.Document{}, err
	}
	if _, err := t.AddEntity(ctx, payload, nil); err != nil {
		return remote.Document{}, mapError(err)
	}
	return doc, nil
}

func (s *Store) List(ctx context.Context, c remote.Collection, f remote.Filter) ([]remote.Document, error) {
	t, err := s.table(c)
	if err != nil {
		return nil, err
	}
	filter := userFilter(f)
	pager := t.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var docs []remote.Document
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, mapError(err)
		}
		for _, e := range resp.Entities {
			d, err := decodeEntity(e)
			if err != nil {
				return nil, err
			}
			docs = append(docs, d)
		}
	}
	sortNewestFirst(docs)
	return docs, nil
}

func (s *Store) Update(ctx context.Context, c remote.Collection, userID, id string, fields map[string]any) error {
	t, err := s.table(c)
	if err != nil {
		return err
	}
	fields, err = remote.NormalizeFields(fields)
	if err != nil {
		return err
	}
	ent := map[string]any{"PartitionKey": userID, "RowKey": id}
	for k, v := range fields {
		ent[fieldPrefix+k] = v
	}
	if y, ok := fields["year"].(float64); ok {
		ent["Year"] = int(y)
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return fmt.Errorf("encode entity: %w", err)
	}
	et := azcore.ETagAny
	_, err = t.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeMerge})
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, c remote.Collection, userID, id string) error {
	t, err := s.table(c)
	if err != nil {
		return err
	}
	if _, err := t.DeleteEntity(ctx, userID, id, nil); err != nil {
		return mapError(err)
	}
	return nil
}

type credentialEntity struct {
	aztables.Entity
	UserID       string `json:"UserID"`
	PasswordHash string `json:"PasswordHash"`
	CreatedAt    string `json:"CreatedAt"`
}

func (s *Store) PutCredential(ctx context.Context, c auth.Credential) error {
	payload, err := json.Marshal(credentialEntity{
		Entity:       aztables.Entity{PartitionKey: credPartition, RowKey: c.Email},
		UserID:       c.UserID,
		PasswordHash: c.PasswordHash,
		CreatedAt:    c.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if _, err := s.creds.AddEntity(ctx, payload, nil); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) GetCredential(ctx context.Context, email string) (auth.Credential, error) {
	resp, err := s.creds.GetEntity(ctx, credPartition, email, nil)
	if err != nil {
		return auth.Credential{}, mapError(err)
	}
	var ent credentialEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return auth.Credential{}, fmt.Errorf("decode credential: %w", err)
	}
	created, _ := time.Parse(time.RFC3339, ent.CreatedAt)
	return auth.Credential{
		UserID:       ent.UserID,
		Email:        ent.RowKey,
		PasswordHash: ent.PasswordHash,
		CreatedAt:    created,
	}, nil
}

type revokedEntity struct {
	aztables.Entity
	ExpiresAt string `json:"ExpiresAt"`
}

func (s *Store) RevokeToken(ctx context.Context, tokenID string, until time.Time) error {
	payload, err := json.Marshal(revokedEntity{
		Entity:    aztables.Entity{PartitionKey: revokedPartition, RowKey: tokenID},
		ExpiresAt: until.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encode revocation: %w", err)
	}
	if _, err := s.revoked.UpsertEntity(ctx, payload, nil); err != nil {
		return mapError(err)
	}
	return nil
}

func (s *Store) TokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	resp, err := s.revoked.GetEntity(ctx, revokedPartition, tokenID, nil)
	if err != nil {
		if errors.Is(mapError(err), remote.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	var ent revokedEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return false, fmt.Errorf("decode revocation: %w", err)
	}
	until, err := time.Parse(time.RFC3339, ent.ExpiresAt)
	if err != nil {
		return true, nil
	}
	return s.now().Before(until), nil
}

// tableName maps a collection onto an alphanumeric table name.
func tableName(c remote.Collection) string {
	return tablePrefix + strings.ReplaceAll(string(c), "_", "")
}

func userFilter(f remote.Filter) string {
	filter := "PartitionKey eq '" + strings.ReplaceAll(f.UserID, "'", "''") + "'"
	if f.Year != 0 {
		filter += fmt.Sprintf(" and Year eq %d", f.Year)
	}
	return filter
}

func encodeEntity(d remote.Document) ([]byte, error) {
	ent := map[string]any{
		"PartitionKey": d.UserID,
		"RowKey":       d.ID,
		"Year":         d.Year,
		"CreatedAt":    d.CreatedAt.UTC().Format(createdLayout),
	}
	for k, v := range d.Fields {
		ent[fieldPrefix+k] = v
	}
	data, err := json.Marshal(ent)
	if err != nil {
		return nil, fmt.Errorf("encode entity: %w", err)
	}
	return data, nil
}

func decodeEntity(data []byte) (remote.Document, error) {
	raw := map[string]any{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return remote.Document{}, fmt.Errorf("decode entity: %w", err)
	}
	d := remote.Document{Fields: map[string]any{}}
	d.UserID, _ = raw["PartitionKey"].(string)
	d.ID, _ = raw["RowKey"].(string)
	if y, ok := raw["Year"].(float64); ok {
		d.Year = int(y)
	}
	if s, ok := raw["CreatedAt"].(string); ok {
		d.CreatedAt, _ = time.Parse(createdLayout, s)
	}
	for k, v := range raw {
		if name, ok := strings.CutPrefix(k, fieldPrefix); ok && !strings.Contains(name, "@odata") {
			d.Fields[name] = v
		}
	}
	return d, nil
}

func sortNewestFirst(docs []remote.Document) {
	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
}

func mapError(err error) error {
	var respErr *azcore.ResponseError
	if !errors.As(err, &respErr) {
		return err
	}
	switch respErr.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w (%s)", remote.ErrNotFound, respErr.ErrorCode)
	case http.StatusConflict:
		return fmt.Errorf("%w (%s)", remote.ErrExists, respErr.ErrorCode)
	}
	return err
}
