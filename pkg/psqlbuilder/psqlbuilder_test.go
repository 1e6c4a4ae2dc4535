package psqlbuilder

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectUsesDollarPlaceholders(t *testing.T) {
	query, args, err := Select("id", "status").
		From("bookings").
		Where(squirrel.Eq{"teacher_id": "t-1"}).
		Where(squirrel.Eq{"status": []string{"PENDING", "CONFIRMED"}}).
		ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, status FROM bookings WHERE teacher_id = $1 AND status IN ($2,$3)", query)
	assert.Equal(t, []interface{}{"t-1", "PENDING", "CONFIRMED"}, args)
}

func TestUpdateUsesDollarPlaceholders(t *testing.T) {
	query, args, err := Update("payments").
		Set("status", "COMPLETED").
		Where(squirrel.Eq{"external_reference_id": "pi_1"}).
		ToSql()
	require.NoError(t, err)

	assert.Equal(t, "UPDATE payments SET status = $1 WHERE external_reference_id = $2", query)
	assert.Len(t, args, 2)
}
