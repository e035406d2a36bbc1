package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_Accepts(t *testing.T) {
	model := &Model{TaskType: TaskTypeText, MaxTokens: 4096}
	small := 1024
	exact := 4096
	large := 8192

	tests := []struct {
		name      string
		task      TaskType
		maxTokens *int
		expected  bool
	}{
		{"no token hint", TaskTypeText, nil, true},
		{"hint below ceiling", TaskTypeText, &small, true},
		{"hint equal to ceiling", TaskTypeText, &exact, true},
		{"hint above ceiling", TaskTypeText, &large, false},
		{"wrong task type", TaskTypeEmbedding, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := model.Accepts(tt.task, tt.maxTokens); got != tt.expected {
				t.Errorf("Accepts() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestModel_IsSelectable(t *testing.T) {
	active := &Provider{IsActive: true}
	inactive := &Provider{IsActive: false}

	assert.True(t, (&Model{IsActive: true, Provider: active}).IsSelectable())
	assert.False(t, (&Model{IsActive: false, Provider: active}).IsSelectable())
	assert.False(t, (&Model{IsActive: true, Provider: inactive}).IsSelectable())
	assert.False(t, (&Model{IsActive: true}).IsSelectable())
}

func TestTaskType_IsValid(t *testing.T) {
	for _, tt := range []TaskType{TaskTypeText, TaskTypeImage, TaskTypeEmbedding, TaskTypeMultimodal} {
		assert.True(t, tt.IsValid(), tt)
	}
	assert.False(t, TaskType("audio").IsValid())
}

func TestJSONB_ScanAndValue(t *testing.T) {
	in := JSONB{"temperature": 0.7, "module": "crm"}

	v, err := in.Value()
	require.NoError(t, err)

	var fromString JSONB
	require.NoError(t, fromString.Scan(v))
	assert.Equal(t, "crm", fromString["module"])

	var fromBytes JSONB
	require.NoError(t, fromBytes.Scan([]byte(v.(string))))
	assert.Equal(t, 0.7, fromBytes["temperature"])

	var fromNil JSONB
	require.NoError(t, fromNil.Scan(nil))
	assert.Nil(t, fromNil)

	var bad JSONB
	assert.Error(t, bad.Scan(42))
}
