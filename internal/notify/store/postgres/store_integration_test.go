//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"shiplog/internal/notify"
	notifypostgres "shiplog/internal/notify/store/postgres"
	"shiplog/pkg/domain"
	"shiplog/pkg/testutil/containers"
)

type PostgresNotifySuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *notifypostgres.Store
	ctx   context.Context
}

func TestPostgresNotifySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresNotifySuite))
}

func (s *PostgresNotifySuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = notifypostgres.New(s.pg.DB)
	s.Require().NoError(s.store.EnsureSchema(s.ctx))
}

func (s *PostgresNotifySuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(s.ctx, "notifications"))
}

func (s *PostgresNotifySuite) notification(recipient domain.ActorID, title string) *notify.Notification {
	return &notify.Notification{
		ID:          uuid.New(),
		RecipientID: recipient,
		Title:       title,
		Body:        "details",
		Category:    notify.CategoryMessage,
		SourceID:    uuid.New(),
	}
}

func (s *PostgresNotifySuite) TestCreateAssignsCreatedAt() {
	n := s.notification("U1", "shift change")
	s.Require().NoError(s.store.Create(s.ctx, n))
	s.False(n.CreatedAt.IsZero())
}

// TestCreateDuplicateIsNoOp covers redelivery: the second create with the
// same deterministic ID must not produce a second row, and must reflect the
// stored row's state, consumed flag included.
func (s *PostgresNotifySuite) TestCreateDuplicateIsNoOp() {
	original := s.notification("U1", "approved")
	s.Require().NoError(s.store.Create(s.ctx, original))
	s.Require().NoError(s.store.MarkConsumed(s.ctx, original.ID))

	duplicate := *original
	duplicate.Consumed = false
	s.Require().NoError(s.store.Create(s.ctx, &duplicate))

	s.True(duplicate.Consumed, "duplicate create must surface the stored consumed state")
	s.Equal(original.CreatedAt.UTC(), duplicate.CreatedAt.UTC())

	count, err := s.store.CountUnconsumed(s.ctx, "U1")
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *PostgresNotifySuite) TestListUnconsumedOldestFirst() {
	first := s.notification("U1", "first")
	second := s.notification("U1", "second")
	other := s.notification("U2", "not yours")
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, second))
	s.Require().NoError(s.store.Create(s.ctx, other))
	s.Require().NoError(s.store.MarkConsumed(s.ctx, first.ID))

	pending, err := s.store.ListUnconsumed(s.ctx, "U1", 0)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("second", pending[0].Title)
}

func (s *PostgresNotifySuite) TestListRecentIncludesConsumed() {
	first := s.notification("U1", "first")
	second := s.notification("U1", "second")
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, second))
	s.Require().NoError(s.store.MarkConsumed(s.ctx, first.ID))

	recent, err := s.store.ListRecent(s.ctx, "U1", 0)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal("second", recent[0].Title, "recent list must be newest first")
}

func (s *PostgresNotifySuite) TestGet() {
	n := s.notification("U1", "hello")
	s.Require().NoError(s.store.Create(s.ctx, n))

	got, err := s.store.Get(s.ctx, n.ID)
	s.Require().NoError(err)
	s.Equal(n.ID, got.ID)
	s.Equal(domain.ActorID("U1"), got.RecipientID)

	_, err = s.store.Get(s.ctx, uuid.New())
	s.ErrorIs(err, notify.ErrNotFound)
}

func (s *PostgresNotifySuite) TestMarkConsumedIdempotent() {
	n := s.notification("U1", "ack me")
	s.Require().NoError(s.store.Create(s.ctx, n))

	s.Require().NoError(s.store.MarkConsumed(s.ctx, n.ID))
	s.Require().NoError(s.store.MarkConsumed(s.ctx, n.ID))
	s.Require().NoError(s.store.MarkConsumed(s.ctx, uuid.New()))

	got, err := s.store.Get(s.ctx, n.ID)
	s.Require().NoError(err)
	s.True(got.Consumed)
}

func (s *PostgresNotifySuite) TestPendingByCategory() {
	alert := s.notification("U1", "alarm")
	alert.Category = notify.CategoryAlert
	s.Require().NoError(s.store.Create(s.ctx, alert))
	s.Require().NoError(s.store.Create(s.ctx, s.notification("U1", "msg 1")))
	s.Require().NoError(s.store.Create(s.ctx, s.notification("U2", "msg 2")))

	counts, err := s.store.PendingByCategory(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, counts[notify.CategoryAlert])
	s.Equal(2, counts[notify.CategoryMessage])
}
