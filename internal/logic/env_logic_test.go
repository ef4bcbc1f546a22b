package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"feiyu/internal/model"
)

func TestValidateVarType(t *testing.T) {
	tests := []struct {
		varType string
		value   string
		valid   bool
	}{
		{"", "anything", true},
		{model.VarTypeString, "hello", true},
		{model.VarTypeNumber, "3.14", true},
		{model.VarTypeNumber, "-42", true},
		{model.VarTypeNumber, "", true},
		{model.VarTypeNumber, "abc", false},
		{model.VarTypeBoolean, "true", true},
		{model.VarTypeBoolean, "false", true},
		{model.VarTypeBoolean, "", true},
		{model.VarTypeBoolean, "yes", false},
		{model.VarTypeJSON, `{"a":1}`, true},
		{model.VarTypeJSON, `[1,2]`, true},
		{model.VarTypeJSON, "", true},
		{model.VarTypeJSON, "{bad", false},
		{"secret-array", "x", false},
	}
	for _, tc := range tests {
		err := ValidateVarType(tc.varType, tc.value)
		if tc.valid {
			assert.NoError(t, err, "%s / %s", tc.varType, tc.value)
		} else {
			assert.Error(t, err, "%s / %s", tc.varType, tc.value)
		}
	}
}
