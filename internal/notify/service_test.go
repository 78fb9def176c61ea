package notify_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"shiplog/internal/notify"
	"shiplog/internal/notify/store/memory"
	"shiplog/pkg/domain"
	dErrors "shiplog/pkg/domain-errors"
)

type ServiceSuite struct {
	suite.Suite
	store   *memory.Store
	service *notify.Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = memory.New()
	s.service = notify.NewService(s.store)
	s.ctx = context.Background()
}

func (s *ServiceSuite) create(recipient string) *notify.Notification {
	n := &notify.Notification{
		ID:          uuid.New(),
		RecipientID: domain.ActorID(recipient),
		Title:       "drill scheduled",
		Category:    notify.CategoryMessage,
		SourceID:    uuid.New(),
	}
	s.Require().NoError(s.store.Create(s.ctx, n))
	return n
}

func caller(actor string, role domain.Role) domain.Caller {
	return domain.Caller{ActorID: domain.ActorID(actor), Role: role}
}

func (s *ServiceSuite) TestPending() {
	s.create("U1")
	s.create("U2")

	s.Run("returns only the caller's notifications", func() {
		list, err := s.service.Pending(s.ctx, caller("U1", domain.RoleCrew), 0)
		s.Require().NoError(err)
		s.Require().Len(list, 1)
		s.Equal(domain.ActorID("U1"), list[0].RecipientID)
	})

	s.Run("anonymous caller rejected", func() {
		_, err := s.service.Pending(s.ctx, domain.Caller{}, 0)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestConsume() {
	n := s.create("U1")

	s.Run("owner consumes", func() {
		s.Require().NoError(s.service.Consume(s.ctx, caller("U1", domain.RoleCrew), n.ID))
		stored, err := s.store.Get(s.ctx, n.ID)
		s.Require().NoError(err)
		s.True(stored.Consumed)
	})

	s.Run("repeat consume is a no-op", func() {
		s.NoError(s.service.Consume(s.ctx, caller("U1", domain.RoleCrew), n.ID))
	})

	s.Run("unknown id succeeds silently", func() {
		s.NoError(s.service.Consume(s.ctx, caller("U1", domain.RoleCrew), uuid.New()))
	})

	s.Run("other recipient forbidden", func() {
		other := s.create("U2")
		err := s.service.Consume(s.ctx, caller("U1", domain.RoleCrew), other.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("admin may consume on behalf of others", func() {
		other := s.create("U3")
		s.NoError(s.service.Consume(s.ctx, caller("ADMIN", domain.RoleAdmin), other.ID))
	})
}
