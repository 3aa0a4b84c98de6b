package auth

import (
	"fmt"

	"github.com/casbin/casbin/v2"

	"training-app/internal/logger"
)

// Objects and actions checked by the services.
const (
	ObjectSections = "sections"
	ObjectElements = "elements"
	ObjectUsers    = "users"

	ActionRead  = "read"
	ActionWrite = "write"
)

// DefaultPolicies is the baseline rule set. Admins inherit everything users may do.
var DefaultPolicies = [][]string{
	{RoleUser, ObjectSections, ActionRead},
	{RoleUser, ObjectElements, ActionRead},

	{RoleAdmin, ObjectSections, ActionWrite},
	{RoleAdmin, ObjectElements, ActionWrite},
	{RoleAdmin, ObjectUsers, ActionWrite},
}

// SeedPolicies adds any missing default policy. Safe to run on every start.
func SeedPolicies(e casbin.IEnforcer, log logger.Logger) error {
	log.Info("Seeding default authorization policies...")

	for _, p := range DefaultPolicies {
		has, err := e.HasPolicy(p)
		if err != nil {
			return fmt.Errorf("failed to check policy %v: %w", p, err)
		}
		if has {
			continue
		}
		if _, err := e.AddPolicy(p); err != nil {
			return fmt.Errorf("failed to add policy %v: %w", p, err)
		}
	}

	has, err := e.HasRoleForUser(RoleAdmin, RoleUser)
	if err != nil {
		return fmt.Errorf("failed to check role inheritance: %w", err)
	}
	if !has {
		if _, err := e.AddRoleForUser(RoleAdmin, RoleUser); err != nil {
			return fmt.Errorf("failed to add role %q -> %q: %w", RoleAdmin, RoleUser, err)
		}
	}

	log.Info("Policy seeding complete.")
	return nil
}
