package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type nopRepository struct{}

func (nopRepository) Clone(ctx context.Context, payloadID string) (string, error) {
	return payloadID + "-clone", nil
}

func (nopRepository) Destroy(ctx context.Context, payloadID string) error {
	return nil
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	reg := New()

	err := reg.Register(Binding{EntityType: "Article", Payloads: nopRepository{}, Deprecatable: true})
	assert.NoError(t, err)

	binding, err := reg.Lookup("Article")
	assert.NoError(t, err)
	assert.Equal(t, "Article", binding.EntityType)
	assert.True(t, binding.Deprecatable)

	_, err = reg.Lookup("Comment")
	assert.ErrorIs(t, err, ErrEntityTypeNotRegistered)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := New()

	assert.NoError(t, reg.Register(Binding{EntityType: "Article", Payloads: nopRepository{}}))
	err := reg.Register(Binding{EntityType: "Article", Payloads: nopRepository{}})
	assert.ErrorIs(t, err, ErrEntityTypeTaken)
}

func TestRegistryRejectsIncompleteBindings(t *testing.T) {
	reg := New()

	assert.Error(t, reg.Register(Binding{Payloads: nopRepository{}}))
	assert.Error(t, reg.Register(Binding{EntityType: "Article"}))
}
