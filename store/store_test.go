package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/activecm/genhash/errors"
	dbtest "github.com/activecm/genhash/internal/testing"
	"github.com/activecm/genhash/safelist"
)

func sampleEntries(t *testing.T) []safelist.Entry {
	t.Helper()
	entries, err := safelist.Unmarshal([]byte(`[
		{"_id":"5f1a2b3c4d5e6f7a8b9c0d1e","type":"useragent","name":"curl","hash_key":1204568891840365645,"useragent":"curl/7.68.0","schema_version":5},
		{"type":"domain_literal","name":"ex","hash_key":"6298361471204529350","domain":"example.com","owner":"soc"},
		{"type":"script","name":"analytics.js"}
	]`), safelist.FormatJSON)
	require.NoError(t, err)
	return entries
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(dbtest.CreateTestDB(t), zaptest.NewLogger(t).Sugar())

	want := sampleEntries(t)
	require.NoError(t, s.Save(ctx, "reference", want))

	got, err := s.Load(ctx, "reference")
	require.NoError(t, err)

	wantJSON, err := safelist.Marshal(want, safelist.FormatJSON)
	require.NoError(t, err)
	gotJSON, err := safelist.Marshal(got, safelist.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, string(wantJSON), string(gotJSON))

	assert.Equal(t, "1204568891840365645", got[0].HashKey.String())
	assert.Nil(t, got[2].HashKey)
	assert.Contains(t, got[1].Extra, "owner")
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	s := New(dbtest.CreateTestDB(t), nil)

	require.NoError(t, s.Save(ctx, "ref", sampleEntries(t)))
	require.NoError(t, s.Save(ctx, "ref", sampleEntries(t)[:1]))

	got, err := s.Load(ctx, "ref")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].EntryCount)
}

func TestStore_EmptySnapshot(t *testing.T) {
	ctx := context.Background()
	s := New(dbtest.CreateTestDB(t), nil)

	require.NoError(t, s.Save(ctx, "empty", nil))
	got, err := s.Load(ctx, "empty")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New(dbtest.CreateTestDB(t), nil)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, s.Save(ctx, "b", sampleEntries(t)))
	require.NoError(t, s.Save(ctx, "a", sampleEntries(t)[:2]))

	list, err = s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)
	assert.Equal(t, 2, list[0].EntryCount)
	assert.Equal(t, "b", list[1].Name)
	assert.False(t, list[1].CreatedAt.IsZero())

	require.NoError(t, s.Delete(ctx, "a"))
	_, err = s.Load(ctx, "a")
	assert.True(t, errors.IsNotFoundError(err))

	err = s.Delete(ctx, "a")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestStore_Validation(t *testing.T) {
	s := New(dbtest.CreateTestDB(t), nil)
	err := s.Save(context.Background(), "", sampleEntries(t))
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestStore_NetworkIDsSurvive(t *testing.T) {
	ctx := context.Background()
	s := New(dbtest.CreateTestDB(t), nil)

	id := uuid.MustParse("11223344-5566-7788-99aa-bbccddeeff00")
	in := []safelist.Entry{{
		Type: "ip", Name: "gw",
		IP: &safelist.IPEntry{IP: "10.0.0.1", NetworkID: safelist.NewNetworkID(id)},
	}}
	require.NoError(t, s.Save(ctx, "net", in))

	got, err := s.Load(ctx, "net")
	require.NoError(t, err)
	back, err := got[0].IP.NetworkID.UUID()
	require.NoError(t, err)
	assert.Equal(t, id, back)
}

func TestStore_SaveRollsBackOnInsertError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM safelists").WithArgs("ref").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO safelists").WillReturnResult(sqlmock.NewResult(7, 1))
	prep := mock.ExpectPrepare("INSERT INTO safelist_entries")
	prep.ExpectExec().WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	s := New(conn, nil)
	err = s.Save(context.Background(), "ref", sampleEntries(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert entry 0")
	assert.Contains(t, err.Error(), "disk I/O error")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LoadWrapsQueryErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery("SELECT id FROM safelists").WithArgs("ref").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery("SELECT body FROM safelist_entries").WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(`{"type":"ip","name":"gw"}`).AddRow(`not json`))

	_, err = New(conn, nil).Load(context.Background(), "ref")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMalformedEntry))
	assert.Contains(t, err.Error(), "entry 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ClosedDatabase(t *testing.T) {
	conn := dbtest.CreateTestDB(t)
	s := New(conn, nil)
	conn.Close()

	_, err := s.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is closed")
}

func TestStore_KeepsRecordsAsRead(t *testing.T) {
	ctx := context.Background()
	s := New(dbtest.CreateTestDB(t), zaptest.NewLogger(t).Sugar())

	const raw = `[{"_id":{"$oid":"5f1a2b3c4d5e6f7a8b9c0d1e"},"name":"curl","type":"useragent",
		"hash_key":1204568891840365645,"comment":"","schema_version":0,"useragent":"curl/7.68.0"}]`
	entries, err := safelist.Unmarshal([]byte(raw), safelist.FormatJSON)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, "exporter", entries))

	got, err := s.Load(ctx, "exporter")
	require.NoError(t, err)
	data, err := safelist.Marshal(got, safelist.FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(data))
}
