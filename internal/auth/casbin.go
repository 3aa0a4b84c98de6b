package auth

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/casbin/casbin/v2/persist"
	"github.com/jmoiron/sqlx"
	sqlxadapter "github.com/memwey/casbin-sqlx-adapter"
)

//go:embed model.conf
var modelText string

// NewPolicyAdapter returns a casbin adapter that stores policies in the
// casbin_rule table of the application database. It shares db's pool, so the
// table must already exist (migration 3).
func NewPolicyAdapter(db *sqlx.DB) persist.Adapter {
	opts := &sqlxadapter.AdapterOptions{
		DB:        db,
		TableName: "casbin_rule",
	}
	return sqlxadapter.NewAdapterFromOptions(opts)
}

// NewEnforcer creates a casbin enforcer for the role model. With a nil
// adapter the policies live only in memory.
func NewEnforcer(adapter persist.Adapter) (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse authorization model: %w", err)
	}

	var enforcer *casbin.Enforcer
	if adapter == nil {
		enforcer, err = casbin.NewEnforcer(m)
	} else {
		enforcer, err = casbin.NewEnforcer(m, adapter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}

	if adapter != nil {
		if err := enforcer.LoadPolicy(); err != nil {
			return nil, fmt.Errorf("failed to load policies: %w", err)
		}
	}
	return enforcer, nil
}
