package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noble-platform/adaptive-assessment-core/internal/models"
)

func TestSnapshotScannerDecodesBytes(t *testing.T) {
	var dst models.TemplateSnapshot
	raw := []byte(`{"template": {"type": "PLACEMENT", "version": 2}, "config": {"active": true}}`)

	require.NoError(t, scanSnapshot(&dst).Scan(raw))
	assert.Equal(t, models.TypePlacement, dst.Template.Type)
	assert.Equal(t, 2, dst.Template.Version)
	assert.True(t, dst.Config.Active)
}

func TestSnapshotScannerDecodesString(t *testing.T) {
	var dst models.TemplateSnapshot
	raw := `{"template": {"type": "WRITING"}, "config": {}}`

	require.NoError(t, scanSnapshot(&dst).Scan(raw))
	assert.Equal(t, models.TypeWriting, dst.Template.Type)
}

func TestSnapshotScannerNilLeavesZeroValue(t *testing.T) {
	var dst models.TemplateSnapshot
	require.NoError(t, scanSnapshot(&dst).Scan(nil))
	assert.Equal(t, models.TemplateSnapshot{}, dst)
}

func TestSnapshotScannerRejectsUnsupportedType(t *testing.T) {
	var dst models.TemplateSnapshot
	err := scanSnapshot(&dst).Scan(42)
	assert.Error(t, err)
}
