package pgerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pq.Error{Code: CodeExclusionViolation})

	assert.Equal(t, CodeExclusionViolation, Code(err))
	assert.True(t, Is(err, CodeExclusionViolation))
	assert.False(t, Is(err, CodeUniqueViolation))
	assert.Equal(t, "", Code(errors.New("plain")))
	assert.False(t, Is(nil, CodeExclusionViolation))
}
