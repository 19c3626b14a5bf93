package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/wangyingjie930/fulfillment/internal/pkg/apperr"
)

func TestClassify(t *testing.T) {
	notFound := apperr.NotFound("cart not found")

	cases := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"deadlock", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, apperr.KindConflict},
		{"lock wait", fmt.Errorf("update: %w", &mysql.MySQLError{Number: 1205}), apperr.KindConflict},
		{"duplicate", &mysql.MySQLError{Number: 1062}, apperr.KindConflict},
		{"gorm duplicate", gorm.ErrDuplicatedKey, apperr.KindConflict},
		{"already classified", notFound, apperr.KindNotFound},
		{"other", errors.New("connection refused"), apperr.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperr.KindOf(Classify(tc.err, "op")))
		})
	}
	assert.NoError(t, Classify(nil, "op"))
}
