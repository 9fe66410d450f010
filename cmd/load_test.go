package main

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLoad(t *testing.T) {
	useConfig(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "in.csv", "terc_code,county,year,gdp\n201,a,2001,\n201,a,2002,1.5\n")

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"public", "gus_indicators"}, []string{"terc_code", "county", "year", "gdp"}).
		WillReturnResult(2)

	require.NoError(t, runLoad(context.Background(), mock, loadOptions{Input: input, Table: "gus_indicators"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunLoad_SchemaOverrideAndUpsert(t *testing.T) {
	useConfig(t)
	dir := t.TempDir()
	input := writeFile(t, dir, "in.csv", "terc_code,county,year,gdp\n0201,a,2002,1.5\n")

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS "staging"."gus"`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_staging_gus"}, []string{"terc_code", "county", "year", "gdp"}).
		WillReturnResult(1)
	mock.ExpectExec("ON CONFLICT").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, runLoad(context.Background(), mock, loadOptions{Input: input, Table: "gus", Schema: "staging", Upsert: true}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
