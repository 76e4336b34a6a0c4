package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMigrateFlags(t *testing.T) {
	tests := []struct {
		name        string
		from        string
		unversioned bool
		toSet       bool
		wantErr     bool
	}{
		{name: "full migration"},
		{name: "target without source", toSet: true, wantErr: true},
		{name: "pair", from: "1.0.0", toSet: true},
		{name: "untagged entities", unversioned: true, toSet: true},
		{name: "source with default target", from: "1.5.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkMigrateFlags(tt.from, tt.unversioned, tt.toSet)
			if tt.wantErr {
				assert.ErrorIs(t, err, errTargetWithoutSource)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMigrateCmd_FromAndUnversionedAreExclusive(t *testing.T) {
	assert.NoError(t, migrateCmd.ParseFlags([]string{"--from", "1.0.0", "--unversioned"}))
	assert.Error(t, migrateCmd.ValidateFlagGroups())
}
