package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kisanbot/internal/domain"
)

func TestModelCatalogService_GenerationModels(t *testing.T) {
	dir := &fakeDirectory{models: []domain.ModelDescriptor{
		{Name: "models/gemini-1.5-pro", SupportedGenerationMethods: []string{domain.GenerateContentMethod}},
		{Name: "models/aqa", SupportedGenerationMethods: []string{"generateAnswer"}},
		{Name: "models/gemini-1.5-flash", SupportedGenerationMethods: []string{domain.GenerateContentMethod}},
	}}

	ids, err := NewModelCatalogService(dir).GenerationModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini-1.5-flash", "gemini-1.5-pro"}, ids)
}

func TestModelCatalogService_GenerationModels_Error(t *testing.T) {
	dir := &fakeDirectory{err: domain.ErrNotConfigured}

	_, err := NewModelCatalogService(dir).GenerationModels(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNotConfigured))
}

func TestModelCatalogService_Check(t *testing.T) {
	dir := &fakeDirectory{validity: domain.ModelValidity{Reason: domain.ModelUnsupportedMethod}}

	got := NewModelCatalogService(dir).Check(context.Background(), "embedding-001")
	assert.False(t, got.OK)
	assert.Equal(t, domain.ModelUnsupportedMethod, got.Reason)
}
