package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationsDiscovered(t *testing.T) {
	ms := Migrations.Sorted()
	if assert.Len(t, ms, 2) {
		assert.Equal(t, "create_users", ms[0].Comment)
		assert.Equal(t, "create_operate_log", ms[1].Comment)
	}
}
