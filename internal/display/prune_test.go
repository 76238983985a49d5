package display

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"DisplayAPI/internal/model"

	"github.com/stretchr/testify/assert"
)

func sampleFields() []model.Field {
	return []model.Field{
		{Source: "id"},
		{Source: "name"},
		{Source: "author", Type: "preset"},
		{Source: "comments", Alias: "talk", Type: "preset", Many: true},
	}
}

func TestPruneFields(t *testing.T) {
	tests := []struct {
		name      string
		requested []string
		want      []string
	}{
		{"no request", nil, []string{"id", "name", "author", "talk"}},
		{"subset keeps declaration order", []string{"talk", "id"}, []string{"id", "talk"}},
		{"alias is the key", []string{"comments"}, []string{}},
		{"unknown names ignored", []string{"name", "bogus"}, []string{"name"}},
		{"only unknown names", []string{"bogus"}, []string{}},
		{"values are not trimmed", []string{" name"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keys(PruneFields(sampleFields(), tt.requested)))
		})
	}
}

func TestPruneFields_DoesNotMutateInput(t *testing.T) {
	fields := sampleFields()
	_ = PruneFields(fields, []string{"name"})
	assert.Equal(t, sampleFields(), fields)
}

func TestPruneRequest(t *testing.T) {
	assert.Equal(t, sampleFields(), PruneRequest(nil, sampleFields()))
	assert.Equal(t, sampleFields(), PruneRequest(&http.Request{}, sampleFields()))

	// the parameter name of a customised filter does not apply here
	r := httptest.NewRequest("GET", "/?fields=id", nil)
	assert.Equal(t, sampleFields(), PruneRequest(r, sampleFields()))

	r = httptest.NewRequest("GET", "/?display=author&display=name", nil)
	assert.Equal(t, []string{"name", "author"}, keys(PruneRequest(r, sampleFields())))
}

func TestPruneContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, sampleFields(), PruneContext(ctx, sampleFields()))

	_, ok := RequestFromContext(WithRequest(ctx, nil))
	assert.False(t, ok)

	r := httptest.NewRequest("GET", "/?display=id", nil)
	ctx = WithRequest(ctx, r)
	got, ok := RequestFromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, r, got)
	assert.Equal(t, []string{"id"}, keys(PruneContext(ctx, sampleFields())))
}
