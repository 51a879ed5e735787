package filter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/harmony/internal/domain/track"
)

func TestScriptFilter_Check(t *testing.T) {
	f, err := NewScriptFilter("Malayalam")
	require.NoError(t, err)

	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{name: "latin", title: "Blue in Green", want: true},
		{name: "japanese", title: "夜に駆ける", want: true},
		{name: "malayalam", title: "മലയാളം song", want: false},
		{name: "empty", title: "", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := f.Check(context.Background(), track.Track{Title: tt.title}, nil)
			assert.Equal(t, tt.want, result.Accepted)
			if !tt.want {
				assert.Equal(t, "blocked_script", result.Code)
			}
		})
	}
}

func TestScriptFilter_ValidateConfig(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		title    string
		accepted bool
		wantErr  bool
	}{
		{name: "default blocks malayalam", settings: map[string]any{}, title: "മലയാളം", accepted: false},
		{name: "custom script", settings: map[string]any{"scripts": []any{"Tamil"}}, title: "தமிழ்", accepted: false},
		{name: "custom script leaves others", settings: map[string]any{"scripts": []string{"Tamil"}}, title: "മലയാളം", accepted: true},
		{name: "unknown script", settings: map[string]any{"scripts": []string{"Klingon"}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &ScriptFilter{}
			err := f.ValidateConfig(tt.settings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.accepted, f.Check(context.Background(), track.Track{Title: tt.title}, nil).Accepted)
		})
	}
}
