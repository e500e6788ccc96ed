package utils

import (
	"cws/src/db"
	"cws/src/types"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	if err != nil {
		t.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}
	return gormDB, mock
}

// The acting owner [user 7] resolves to SpaceOwner 11 and BusinessInfo 5.
func expectOwnerScope(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT .* FROM "space_owners" WHERE "space_owners"."user_id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(11, 7))
	mock.ExpectQuery(`SELECT .* FROM "business_infos" WHERE "business_infos"."owner_id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id"}).AddRow(5, 11))
}

func bookingColumns() []string {
	return []string{"id", "user_id", "space_id", "seats", "status", "is_redeemed", "owner_payout", "category", "redemption_code"}
}

func TestRedeemBooking(t *testing.T) {
	code := "CWS-TEST-ABCD1234"

	t.Run("redeems a confirmed booking once", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		db.NewDB(gormDB)

		mock.ExpectBegin()
		expectOwnerScope(mock)
		mock.ExpectQuery(`SELECT .* FROM "bookings" LEFT JOIN "spaces"`).
			WillReturnRows(sqlmock.NewRows(bookingColumns()).
				AddRow(9, 2, 3, 2, "confirmed", false, 810.0, "developer", code))
		mock.ExpectExec(`UPDATE "bookings" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "spaces" SET "tally_developer"=tally_developer \+ 1`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "business_balances" SET "current_balance"=current_balance \+ \$1`).
			WithArgs(810.0, 5).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := RedeemBooking(7, code)
		assert.Nil(t, err)
		assert.True(t, booking.IsRedeemed)
		assert.Equal(t, types.BOOKING_COMPLETED, booking.Status)
		assert.NotNil(t, booking.RedeemedAt)
		assert.Equal(t, uint(11), *booking.RedeemedBy)
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a second redemption", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		db.NewDB(gormDB)

		mock.ExpectBegin()
		expectOwnerScope(mock)
		mock.ExpectQuery(`SELECT .* FROM "bookings" LEFT JOIN "spaces"`).
			WillReturnRows(sqlmock.NewRows(bookingColumns()).
				AddRow(9, 2, 3, 2, "completed", true, 810.0, "developer", code))
		mock.ExpectRollback()

		_, err := RedeemBooking(7, code)
		assert.ErrorIs(t, err, ErrAlreadyRedeemed)
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a booking that is not confirmed", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		db.NewDB(gormDB)

		mock.ExpectBegin()
		expectOwnerScope(mock)
		mock.ExpectQuery(`SELECT .* FROM "bookings" LEFT JOIN "spaces"`).
			WillReturnRows(sqlmock.NewRows(bookingColumns()).
				AddRow(9, 2, 3, 2, "pending", false, 810.0, "developer", code))
		mock.ExpectRollback()

		_, err := RedeemBooking(7, code)
		assert.ErrorIs(t, err, ErrInvalidBookingState)
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("does not see codes from another owner's spaces", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		db.NewDB(gormDB)

		mock.ExpectBegin()
		expectOwnerScope(mock)
		mock.ExpectQuery(`SELECT .* FROM "bookings" LEFT JOIN "spaces"`).
			WillReturnRows(sqlmock.NewRows(bookingColumns()))
		mock.ExpectRollback()

		_, err := RedeemBooking(7, code)
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
		assert.Nil(t, mock.ExpectationsWereMet())
	})
}

func TestCancelBooking(t *testing.T) {
	t.Run("cancels a pending booking and restores its seats", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		db.NewDB(gormDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM "bookings" WHERE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "space_id", "seats", "status", "owner_payout"}).
				AddRow(9, 7, 3, 2, "pending", 810.0))
		mock.ExpectQuery(`SELECT .* FROM "spaces"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "total_seats", "available_seats"}).
				AddRow(3, 5, 10, 4))
		mock.ExpectExec(`UPDATE "bookings" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "spaces" SET "available_seats"=LEAST\(available_seats \+ \$1, total_seats\)`).
			WithArgs(2, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := CancelBooking(7, 9)
		assert.Nil(t, err)
		assert.Equal(t, types.BOOKING_CANCELED, booking.Status)
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("cancelling a confirmed booking also reverses the pending accrual", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		db.NewDB(gormDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM "bookings" WHERE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "space_id", "seats", "status", "owner_payout"}).
				AddRow(9, 7, 3, 2, "confirmed", 810.0))
		mock.ExpectQuery(`SELECT .* FROM "spaces"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "total_seats", "available_seats"}).
				AddRow(3, 5, 10, 4))
		mock.ExpectExec(`UPDATE "bookings" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "spaces" SET "available_seats"=LEAST\(available_seats \+ \$1, total_seats\)`).
			WithArgs(2, 3).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "business_balances" SET "pending_amount"=GREATEST\(pending_amount - \$1, 0\)`).
			WithArgs(810.0, 5).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		booking, err := CancelBooking(7, 9)
		assert.Nil(t, err)
		assert.Equal(t, types.BOOKING_CANCELED, booking.Status)
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("completed bookings are terminal", func(t *testing.T) {
		gormDB, mock := newMockDB(t)
		db.NewDB(gormDB)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT .* FROM "bookings" WHERE`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "space_id", "seats", "status", "owner_payout"}).
				AddRow(9, 7, 3, 2, "completed", 810.0))
		mock.ExpectQuery(`SELECT .* FROM "spaces"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "business_id", "total_seats", "available_seats"}).
				AddRow(3, 5, 10, 4))
		mock.ExpectRollback()

		_, err := CancelBooking(7, 9)
		assert.ErrorIs(t, err, ErrBookingNotCancelable)
		assert.Nil(t, mock.ExpectationsWereMet())
	})
}

func TestEligibleToReview(t *testing.T) {
	t.Run("eligible with a redeemed booking", func(t *testing.T) {
		gormDB, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		eligible, err := EligibleToReview(gormDB, 7, 3)
		assert.Nil(t, err)
		assert.True(t, eligible)
		assert.Nil(t, mock.ExpectationsWereMet())
	})

	t.Run("not eligible without one", func(t *testing.T) {
		gormDB, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		eligible, err := EligibleToReview(gormDB, 7, 3)
		assert.Nil(t, err)
		assert.False(t, eligible)
		assert.Nil(t, mock.ExpectationsWereMet())
	})
}
