package store

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/suite"

	"taxgate/internal/identity/models"
	"taxgate/pkg/sentinel"
)

type PostgresStoreSuite struct {
	suite.Suite
	mock  sqlmock.Sqlmock
	store *PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.mock = mock
	s.store = NewPostgres(db)
}

func (s *PostgresStoreSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
}

func principalRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "name", "username", "role", "email", "phone", "national_id",
		"password_hash", "active", "otp_code", "otp_expires_at", "session_id",
		"token_id", "token_expires_at", "last_login_at", "created_at", "updated_at",
	})
	now := time.Now()
	for _, id := range ids {
		rows.AddRow(id, "Ama Mensah", "ama", "gra_maker", "ama@gra.gov.gh", "0244000001",
			"GHA-001", nil, true, nil, nil, nil, nil, nil, nil, now, now)
	}
	return rows
}

func (s *PostgresStoreSuite) TestFindBySelector() {
	ctx := context.Background()

	s.Run("single match is returned", func() {
		s.mock.ExpectQuery(`SELECT .+ FROM principals WHERE username = \$1 LIMIT 2`).
			WithArgs("ama").
			WillReturnRows(principalRows("p-1"))

		p, err := s.store.FindBySelector(ctx, models.SelectorUsername, "ama")
		s.NoError(err)
		s.Equal("p-1", p.ID)
		s.Equal(models.RoleGRAMaker, p.Role)
	})

	s.Run("zero matches return not found", func() {
		s.mock.ExpectQuery(`SELECT .+ FROM principals WHERE national_id = \$1 LIMIT 2`).
			WithArgs("GHA-404").
			WillReturnRows(principalRows())

		_, err := s.store.FindBySelector(ctx, models.SelectorNationalID, "GHA-404")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("ambiguous matches return not found", func() {
		s.mock.ExpectQuery(`SELECT .+ FROM principals WHERE email = \$1 OR phone = \$1 LIMIT 2`).
			WithArgs("0244000001").
			WillReturnRows(principalRows("p-1", "p-2"))

		_, err := s.store.FindBySelector(ctx, models.SelectorContact, "0244000001")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestCompleteVerification() {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	params := CompleteParams{PrincipalID: "p-1", SessionID: "h-1", OTPCode: "123456", Now: now}

	s.Run("matched guard reports applied", func() {
		s.mock.ExpectExec(`UPDATE principals`).
			WithArgs("p-1", "123456", "h-1", now, nil, nil).
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := s.store.CompleteVerification(ctx, params)
		s.NoError(err)
		s.True(applied)
	})

	s.Run("stale guard reports not applied", func() {
		s.mock.ExpectExec(`UPDATE principals`).
			WithArgs("p-1", "123456", "h-1", now, nil, nil).
			WillReturnResult(sqlmock.NewResult(0, 0))

		applied, err := s.store.CompleteVerification(ctx, params)
		s.NoError(err)
		s.False(applied)
	})
}

func (s *PostgresStoreSuite) TestSetOTP() {
	ctx := context.Background()
	issued := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	expiry := issued.Add(5 * time.Minute)

	s.Run("existing principal updates", func() {
		s.mock.ExpectExec(`UPDATE principals`).
			WithArgs("p-1", "654321", expiry, "h-2", issued).
			WillReturnResult(sqlmock.NewResult(0, 1))

		s.NoError(s.store.SetOTP(ctx, "p-1", "654321", expiry, "h-2", issued))
	})

	s.Run("missing principal returns not found", func() {
		s.mock.ExpectExec(`UPDATE principals`).
			WithArgs("p-404", "654321", expiry, "h-2", issued).
			WillReturnResult(sqlmock.NewResult(0, 0))

		s.ErrorIs(s.store.SetOTP(ctx, "p-404", "654321", expiry, "h-2", issued), sentinel.ErrNotFound)
	})
}
