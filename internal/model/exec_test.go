package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/sprites/internal/model"
)

func TestValidateCommand(t *testing.T) {
	tests := map[string]struct {
		command []string
		expErr  bool
	}{
		"A command should be valid.":                 {command: []string{"echo", "hi"}},
		"A command with empty args should be valid.": {command: []string{"echo", ""}},
		"A missing command should fail.":             {command: nil, expErr: true},
		"An empty program should fail.":              {command: []string{"", "hi"}, expErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := model.ValidateCommand(test.command)

			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCountByStatus(t *testing.T) {
	ok, warnings, errs := model.CountByStatus([]model.CheckResult{
		{ID: "a", Status: model.CheckStatusOK},
		{ID: "b", Status: model.CheckStatusWarning},
		{ID: "c", Status: model.CheckStatusOK},
		{ID: "d", Status: model.CheckStatusError},
	})

	assert.Equal(t, 2, ok)
	assert.Equal(t, 1, warnings)
	assert.Equal(t, 1, errs)
}
