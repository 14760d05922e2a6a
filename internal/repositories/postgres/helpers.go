package postgres

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/biovolt/marketplace-api/internal/domain"
)

func pqArray(values []string) driver.Valuer {
	return pq.Array(values)
}

// variantJSON serializes an optional variant snapshot for a jsonb column.
// A nil snapshot maps to SQL NULL.
func variantJSON(v *domain.VariantSelection) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal variant snapshot: %w", err)
	}
	return data, nil
}

func scanVariantJSON(raw []byte) (*domain.VariantSelection, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v domain.VariantSelection
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("unmarshal variant snapshot: %w", err)
	}
	return &v, nil
}

// addressJSON serializes an address for a jsonb column.
func addressJSON(a domain.Address) (any, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal address: %w", err)
	}
	return data, nil
}

func scanAddressJSON(raw []byte) (domain.Address, error) {
	if len(raw) == 0 {
		return domain.Address{}, nil
	}
	var a domain.Address
	if err := json.Unmarshal(raw, &a); err != nil {
		return domain.Address{}, fmt.Errorf("unmarshal address: %w", err)
	}
	return a, nil
}
