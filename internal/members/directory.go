// Package members is the member registry surface the ledger depends
// on: existence and name lookup, plus the tither listing used by
// presentation code.
package members

import (
	"context"
	"time"

	"tesouraria/internal/cache"
	"tesouraria/internal/core"
	"tesouraria/internal/storage"

	"github.com/google/uuid"
)

// Directory is the member registry port.
type Directory interface {
	GetMemberByID(ctx context.Context, tenantID, memberID string) (core.Member, error)
	ListTithers(ctx context.Context, tenantID string) ([]core.Member, error)
	CreateMember(ctx context.Context, tenantID string, m core.Member) (string, error)
}

// SQLiteDirectory serves the registry from the shared repository.
type SQLiteDirectory struct {
	repo *storage.Repository
}

func NewSQLiteDirectory(repo *storage.Repository) *SQLiteDirectory {
	return &SQLiteDirectory{repo: repo}
}

func (d *SQLiteDirectory) GetMemberByID(ctx context.Context, tenantID, memberID string) (core.Member, error) {
	return d.repo.GetMember(ctx, d.repo.DB(), tenantID, memberID)
}

func (d *SQLiteDirectory) ListTithers(ctx context.Context, tenantID string) ([]core.Member, error) {
	return d.repo.ListTithers(ctx, d.repo.DB(), tenantID)
}

func (d *SQLiteDirectory) CreateMember(ctx context.Context, tenantID string, m core.Member) (string, error) {
	m.ID = uuid.NewString()
	m.TenantID = tenantID
	m.CreatedAt = time.Now().UTC()
	if err := m.Validate(); err != nil {
		return "", err
	}
	if err := d.repo.InsertMember(ctx, d.repo.DB(), m); err != nil {
		return "", err
	}
	return m.ID, nil
}

// CachedNames resolves member display names with an LRU in front of
// the directory. It backs the MemberName cache denormalized onto tithe
// entries; cached names can outlive a rename for up to the TTL, on top
// of the permanent staleness already accepted for the stored copy.
type CachedNames struct {
	dir   Directory
	names *cache.Cache[string]
}

func NewCachedNames(dir Directory, size int, ttl time.Duration) *CachedNames {
	return &CachedNames{
		dir:   dir,
		names: cache.New[string](size, ttl),
	}
}

// MemberName implements ledger.MemberResolver.
func (c *CachedNames) MemberName(ctx context.Context, tenantID, memberID string) (string, error) {
	key := tenantID + "/" + memberID
	if name, ok := c.names.Get(key); ok {
		return name, nil
	}
	m, err := c.dir.GetMemberByID(ctx, tenantID, memberID)
	if err != nil {
		return "", err
	}
	c.names.Set(key, m.Name)
	return m.Name, nil
}
