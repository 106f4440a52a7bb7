package store

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"papertrail/apperr"
	"papertrail/lifecycle"
	"papertrail/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return New(db, zap.NewNop()), mock
}

func TestSoftDeleteCallsProcedure(t *testing.T) {
	s, mock := newMockStore(t)
	actor := int64(1)
	mock.ExpectExec(`CALL sp_soft_delete_paper\(\$1, \$2\)`).
		WithArgs(int64(5), actor).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.SoftDeletePaper(context.Background(), 5, &actor))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHardDeleteCallsProcedure(t *testing.T) {
	s, mock := newMockStore(t)
	actor := int64(2)
	mock.ExpectExec(`CALL sp_hard_delete_paper\(\$1, \$2\)`).
		WithArgs(int64(9), actor).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.HardDeletePaper(context.Background(), 9, &actor))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHardDeleteMissingPaper(t *testing.T) {
	s, mock := newMockStore(t)
	actor := int64(2)
	mock.ExpectExec(`CALL sp_hard_delete_paper`).
		WillReturnError(&pgconn.PgError{Code: "P0002", Message: "paper 9 not found"})

	err := s.HardDeletePaper(context.Background(), 9, &actor)
	assert.Equal(t, http.StatusNotFound, apperr.StatusCode(err))
	assert.Equal(t, "Paper not found.", apperr.Message(err, ""))
}

func TestLinkGrantDuplicate(t *testing.T) {
	s, mock := newMockStore(t)
	actor := int64(1)
	mock.ExpectExec(`CALL sp_link_grant_to_paper\(\$1, \$2, \$3\)`).
		WithArgs(int64(3), int64(4), actor).
		WillReturnError(&pgconn.PgError{
			Code:    "23505",
			Message: "duplicate key value violates unique constraint",
			Detail:  "Key (paper_id, grant_id)=(3, 4) already exists.",
		})

	err := s.LinkGrant(context.Background(), 3, 4, &actor)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusCode(err))
	assert.Equal(t, "Invalid data: Key (paper_id, grant_id)=(3, 4) already exists.", apperr.Message(err, ""))
}

func TestAssignAuthorCallsProcedure(t *testing.T) {
	s, mock := newMockStore(t)
	actor := int64(1)
	order := 2
	notes := "wrote the evaluation"
	mock.ExpectExec(`CALL sp_assign_author\(\$1, \$2, \$3, \$4, \$5\)`).
		WithArgs(int64(3), int64(8), int64(order), notes, actor).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.AssignAuthor(context.Background(), 3, 8, &order, &notes, &actor))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaperOverview(t *testing.T) {
	s, mock := newMockStore(t)
	doc := `{"paper":[{"id":7,"title":"Graphs"}],"authors":[],"revisions":[],"activityLog":[]}`
	mock.ExpectQuery(`SELECT sp_get_paper_overview\(\$1\)`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"sp_get_paper_overview"}).AddRow([]byte(doc)))

	raw, err := s.PaperOverview(context.Background(), 7)
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(raw))
}

func TestUserExists(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM "venues" WHERE id = \$1`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	ok, err := s.UserExists(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.VenueExists(context.Background(), 4)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFirstAdminID(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT users.id, roles.role_name FROM "users" JOIN roles`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "role_name"}).
			AddRow(1, "Viewer").
			AddRow(2, "Principal Investigator").
			AddRow(3, "Research Admin"))

	id, ok, err := s.FirstAdminID(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), id)
}

func TestDeletedBefore(t *testing.T) {
	s, mock := newMockStore(t)
	cutoff := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT "id" FROM "papers" WHERE is_deleted = \$1 AND updated_at < \$2`).
		WithArgs(true, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4).AddRow(11))

	ids, err := s.DeletedBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 11}, ids)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"record not found", gorm.ErrRecordNotFound, http.StatusNotFound, "Paper not found."},
		{"raised not found", &pgconn.PgError{Code: "P0002"}, http.StatusNotFound, "Paper not found."},
		{"foreign key", &pgconn.PgError{Code: "23503", Detail: `Key (venue_id)=(9) is not present in table "venues".`}, http.StatusBadRequest, `Invalid data: Key (venue_id)=(9) is not present in table "venues".`},
		{"check without detail", &pgconn.PgError{Code: "23514", Message: "violates check constraint"}, http.StatusBadRequest, "Invalid data: violates check constraint"},
		{"bad enum text", &pgconn.PgError{Code: "22P02"}, http.StatusBadRequest, msgInvalidPayload},
		{"too long", &pgconn.PgError{Code: "22001"}, http.StatusBadRequest, msgInvalidPayload},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, http.StatusInternalServerError, "fallback"},
		{"connection", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err, "Paper not found.")
			assert.Equal(t, tt.status, apperr.StatusCode(err))
			assert.Equal(t, tt.message, apperr.Message(err, "fallback"))
			assert.ErrorIs(t, err, tt.err)
		})
	}
	assert.NoError(t, classify(nil, ""))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% \_done\\`, escapeLike(`100% _done\`))
	assert.Equal(t, "graph", escapeLike("graph"))
}

func TestListPapersQuery(t *testing.T) {
	s, mock := newMockStore(t)
	status := models.StatusDraft
	mock.ExpectQuery(`SELECT \* FROM "papers" WHERE is_deleted = \$1 AND status = \$2 AND \(+title LIKE \$3 ESCAPE '\\' OR abstract LIKE \$4 ESCAPE '\\'\)+ ORDER BY updated_at DESC, ?id DESC LIMIT \$5`).
		WithArgs(false, "Draft", `%100\%%`, `%100\%%`, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "is_deleted"}))

	papers, err := s.ListPapers(context.Background(), lifecycle.ListQuery{
		Status: &status,
		Search: "100%",
		Limit:  20,
	})
	require.NoError(t, err)
	assert.Empty(t, papers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPapersTrash(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT \* FROM "papers" WHERE is_deleted = \$1 ORDER BY updated_at DESC, ?id DESC$`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.ListPapers(context.Background(), lifecycle.ListQuery{Deleted: true})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePaperWritesAuditInTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	actor := int64(1)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "papers" .* RETURNING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO "activity_logs" .* RETURNING "id"`).
		WithArgs(int64(7), actor, models.ActionCreate, "Paper created", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	paper := &models.Paper{Title: "Graphs", PrimaryContactID: 2}
	err := s.CreatePaper(context.Background(), paper, lifecycle.AuditEntry{ActorID: &actor, Action: models.ActionCreate, Detail: "Paper created"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), paper.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePaperRollsBackWhenAuditFails(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "papers"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.CreatePaper(context.Background(), &models.Paper{Title: "Graphs", PrimaryContactID: 2}, lifecycle.AuditEntry{Action: models.ActionCreate})
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePaperWritesAuditInTransaction(t *testing.T) {
	s, mock := newMockStore(t)
	actor := int64(1)
	title := "New title"
	status := models.StatusPublished
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "papers" SET "status"=\$1,"title"=\$2,"updated_at"=\$3 WHERE id = \$4 RETURNING \*`).
		WithArgs("Published", title, sqlmock.AnyArg(), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "is_deleted"}).AddRow(7, title, "Published", false))
	mock.ExpectQuery(`INSERT INTO "activity_logs"`).
		WithArgs(int64(7), actor, models.ActionUpdate, "title changed", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	paper, err := s.UpdatePaper(context.Background(), 7, lifecycle.PaperChanges{Title: &title, Status: &status},
		lifecycle.AuditEntry{ActorID: &actor, Action: models.ActionUpdate, Detail: "title changed"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), paper.ID)
	assert.Equal(t, title, paper.Title)
	assert.Equal(t, models.StatusPublished, paper.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePaperMissing(t *testing.T) {
	s, mock := newMockStore(t)
	title := "New title"
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "papers" SET .* WHERE id = \$\d+ RETURNING \*`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := s.UpdatePaper(context.Background(), 404, lifecycle.PaperChanges{Title: &title}, lifecycle.AuditEntry{Action: models.ActionUpdate})
	assert.Equal(t, http.StatusNotFound, apperr.StatusCode(err))
	assert.Equal(t, "Paper not found.", apperr.Message(err, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRestorePaperOnlyTouchesDeletedRows(t *testing.T) {
	restoreSQL := `UPDATE "papers" SET "is_deleted"=\$1,"status"=\$2,"updated_at"=\$3 WHERE id = \$4 AND is_deleted = \$5 RETURNING \*`
	actor := int64(1)
	audit := lifecycle.AuditEntry{ActorID: &actor, Action: models.ActionRestore, Detail: "Paper restored"}

	t.Run("deleted", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(restoreSQL).
			WithArgs(false, "Draft", sqlmock.AnyArg(), int64(9), true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "is_deleted"}).AddRow(9, "Graphs", "Draft", false))
		mock.ExpectQuery(`INSERT INTO "activity_logs"`).
			WithArgs(int64(9), actor, models.ActionRestore, "Paper restored", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
		mock.ExpectCommit()

		paper, err := s.RestorePaper(context.Background(), 9, audit)
		require.NoError(t, err)
		assert.False(t, paper.IsDeleted)
		assert.Equal(t, models.StatusDraft, paper.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("live", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(restoreSQL).
			WithArgs(false, "Draft", sqlmock.AnyArg(), int64(9), true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "title", "status", "is_deleted"}))
		mock.ExpectRollback()

		_, err := s.RestorePaper(context.Background(), 9, audit)
		assert.Equal(t, http.StatusNotFound, apperr.StatusCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSeedDefaultRoles(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT count\(\*\) FROM "roles"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "roles"`).
			WithArgs("Research Admin", "Principal Investigator", "Contributor", "Viewer").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).AddRow(3).AddRow(4))
		mock.ExpectCommit()

		s.seedDefaultRoles(context.Background())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already seeded", func(t *testing.T) {
		s, mock := newMockStore(t)
		mock.ExpectQuery(`SELECT count\(\*\) FROM "roles"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

		s.seedDefaultRoles(context.Background())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("count fails", func(t *testing.T) {
		s, mock := newMockStore(t)
		core, logs := observer.New(zap.WarnLevel)
		s.log = zap.New(core)
		mock.ExpectQuery(`SELECT count\(\*\) FROM "roles"`).
			WillReturnError(errors.New("relation \"roles\" does not exist"))

		s.seedDefaultRoles(context.Background())
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.Equal(t, 1, logs.FilterMessage("Failed to count roles, skipping seed").Len())
		assert.Zero(t, logs.FilterMessage("Failed to seed default roles").Len())
	})
}
