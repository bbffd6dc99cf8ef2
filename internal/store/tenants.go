package store

import (
	"context"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/propmanage/internal/billing"
	"github.com/matthewbaird/propmanage/internal/types"
)

// CreateTenant inserts a tenant.
func (s *Store) CreateTenant(ctx context.Context, name, phone string) (types.Tenant, error) {
	id, err := s.insert(ctx, builder.Insert("tenants").
		Columns("name", "phone").
		Values(name, phone))
	if err != nil {
		return types.Tenant{}, fmt.Errorf("creating tenant: %w", err)
	}
	return types.Tenant{ID: id, Name: name, Phone: phone}, nil
}

// GetTenant returns the tenant with the given id.
func (s *Store) GetTenant(ctx context.Context, id int64) (types.Tenant, error) {
	tenants, err := s.selectTenants(ctx, entsql.EQ("id", id))
	if err != nil {
		return types.Tenant{}, err
	}
	if len(tenants) == 0 {
		return types.Tenant{}, billing.NotFound("tenant", id)
	}
	return tenants[0], nil
}

// ListTenants returns every tenant ordered by id.
func (s *Store) ListTenants(ctx context.Context) ([]types.Tenant, error) {
	return s.selectTenants(ctx, nil)
}

func (s *Store) selectTenants(ctx context.Context, where *entsql.Predicate) ([]types.Tenant, error) {
	sel := builder.Select("id", "name", "phone").From(entsql.Table("tenants")).OrderBy("id")
	if where != nil {
		sel.Where(where)
	}
	rows, err := s.query(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("querying tenants: %w", err)
	}
	defer rows.Close()

	tenants := []types.Tenant{}
	for rows.Next() {
		var t types.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Phone); err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}
