package dispatcher

import (
	"context"
	"fmt"

	"shiplog/internal/audit"
	"shiplog/pkg/domain"
)

// RoleDirectory lists the actors holding a role. Backed by whatever user
// directory the deployment has; the engine does not own membership.
type RoleDirectory interface {
	Members(ctx context.Context, role domain.Role) ([]domain.ActorID, error)
}

// RoleResolver routes events to role audiences: critical events fan out to
// everyone, other severities go to supervisors and admins.
type RoleResolver struct {
	directory RoleDirectory
}

func NewRoleResolver(directory RoleDirectory) *RoleResolver {
	return &RoleResolver{directory: directory}
}

func (r *RoleResolver) Recipients(ctx context.Context, event audit.SystemEvent) ([]domain.ActorID, error) {
	roles := []domain.Role{domain.RoleAdmin, domain.RoleSupervisor}
	if event.Severity == audit.SeverityCritical {
		roles = append(roles, domain.RoleCrew)
	}

	seen := make(map[domain.ActorID]struct{})
	var recipients []domain.ActorID
	for _, role := range roles {
		members, err := r.directory.Members(ctx, role)
		if err != nil {
			return nil, fmt.Errorf("list %s members: %w", role, err)
		}
		for _, actor := range members {
			if _, ok := seen[actor]; ok {
				continue
			}
			seen[actor] = struct{}{}
			recipients = append(recipients, actor)
		}
	}
	return recipients, nil
}

// StaticDirectory is a fixed role→members map, enough for single-node
// deployments and tests.
type StaticDirectory map[domain.Role][]domain.ActorID

func (d StaticDirectory) Members(_ context.Context, role domain.Role) ([]domain.ActorID, error) {
	return d[role], nil
}
