package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestIsDuplicate(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'users.email'"}
	require.True(t, isDuplicate(dup))
	require.True(t, isDuplicate(fmt.Errorf("insert user: %w", dup)))
	require.False(t, isDuplicate(&mysql.MySQLError{Number: 1452}))
	require.False(t, isDuplicate(errors.New("Error 1062")))
	require.False(t, isDuplicate(nil))
}

func TestPlaceholders(t *testing.T) {
	require.Equal(t, "", placeholders(0))
	require.Equal(t, "?", placeholders(1))
	require.Equal(t, "?,?,?", placeholders(3))
}

func TestNullableStrings(t *testing.T) {
	require.False(t, nullString(nil).Valid)
	s := "06 12 34 56 78"
	require.Equal(t, sql.NullString{String: s, Valid: true}, nullString(&s))

	require.Nil(t, stringPtr(sql.NullString{}))
	require.Equal(t, s, *stringPtr(sql.NullString{String: s, Valid: true}))
}
