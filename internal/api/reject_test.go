package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReject(t *testing.T) {
	err := Reject("customer not found")
	assert.EqualError(t, err, "customer not found")
	assert.True(t, IsRejection(err))
}

func TestReject_Formatted(t *testing.T) {
	err := Reject("only %d freeze days remaining", 3)
	assert.EqualError(t, err, "only 3 freeze days remaining")
}

func TestIsRejection_Wrapped(t *testing.T) {
	err := fmt.Errorf("freeze: %w", Reject("subscription must be active to freeze"))
	assert.True(t, IsRejection(err))
}

func TestIsRejection_OtherError(t *testing.T) {
	assert.False(t, IsRejection(errors.New("connection refused")))
	assert.False(t, IsRejection(nil))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 20, 45)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 3, p.TotalPages)

	p = NewPagination(0, 0, 0)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.PerPage)
	assert.Equal(t, 0, p.TotalPages)
}
