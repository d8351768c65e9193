package repository_test

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"climate_scheduler/internal/models"
	"climate_scheduler/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestHistorySQLite_Append_GeneratesIDAndTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewHistorySQLite(db)

	temp := 19.0
	entry := models.AdvanceHistoryEntry{
		GroupName:  "living",
		TargetTime: "17:30",
		TargetNode: models.Node{Time: 17*60 + 30, Temperature: &temp},
		// ID and ActivatedAt left for the repo to fill in
	}

	nonEmptyString := sqlmockArgumentFunc(func(v driver.Value) bool {
		s, ok := v.(string)
		return ok && s != ""
	})
	isUTCRecent := sqlmockArgumentFunc(func(v driver.Value) bool {
		tm, ok := v.(time.Time)
		if !ok || tm.Location() != time.UTC {
			return false
		}
		now := time.Now().UTC()
		return !tm.Before(now.Add(-5*time.Second)) && !tm.After(now.Add(5*time.Second))
	})

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO advance_history")).
		WithArgs(
			nonEmptyString, // generated uuid
			"living",
			isUTCRecent, // generated activated_at
			"17:30",
			nonEmptyString, // target node JSON
			nil,            // open entry, no cancelled_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Append(context.Background(), entry); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHistorySQLite_CloseLatest_TargetsNewestOpenEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewHistorySQLite(db)

	at := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE advance_history SET cancelled_at")).
		WithArgs(at, "living").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.CloseLatest(context.Background(), "living", at); err != nil {
		t.Fatalf("CloseLatest() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHistorySQLite_List_ScansOpenAndClosedEntries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewHistorySQLite(db)

	activated := time.Date(2026, 3, 10, 6, 45, 0, 0, time.UTC)
	cancelled := activated.Add(30 * time.Minute)
	cols := []string{"id", "group_name", "activated_at", "target_time", "target_node", "cancelled_at"}
	rows := sqlmock.NewRows(cols).
		AddRow("id-1", "living", activated, "07:00", `{"time":"07:00","temp":21}`, cancelled).
		AddRow("id-2", "living", activated.Add(time.Hour), "12:00", `{"time":"12:00","temp":19}`, nil)

	since := activated.Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, group_name, activated_at, target_time, target_node, cancelled_at")).
		WithArgs("living", since).
		WillReturnRows(rows)

	got, err := repo.List(context.Background(), "living", since)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() expected 2 entries, got %d", len(got))
	}
	if got[0].CancelledAt == nil || !got[0].CancelledAt.Equal(cancelled) {
		t.Fatalf("first entry should be closed: %+v", got[0])
	}
	if got[1].CancelledAt != nil {
		t.Fatalf("second entry should be open: %+v", got[1])
	}
	if got[0].TargetNode.Time != 7*60 || got[0].TargetNode.Temperature == nil || *got[0].TargetNode.Temperature != 21 {
		t.Fatalf("target node mismatch: %+v", got[0].TargetNode)
	}
}

func TestHistorySQLite_Clear_DeletesGroupHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New(): %v", err)
	}
	defer func() { _ = db.Close() }()

	repo := repository.NewHistorySQLite(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM advance_history")).
		WithArgs("living").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.Clear(context.Background(), "living"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
