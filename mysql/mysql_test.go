package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestOpenRejectsBadDSN(t *testing.T) {
	_, err := Open(context.Background(), "not a dsn", 4)
	assert.Error(t, err)
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, IsDuplicate(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	assert.False(t, IsDuplicate(&mysql.MySQLError{Number: 1146}))
	assert.False(t, IsDuplicate(errors.New("other")))
}
