package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_Commands(t *testing.T) {
	app := newApp()
	for _, name := range []string{"quickstart", "collect", "label", "runs", "run"} {
		cmd := app.Command(name)
		require.NotNil(t, cmd, name)
		assert.NotNil(t, cmd.Action, name)
	}
}

func TestNewApp_FlagNamesUnique(t *testing.T) {
	for _, cmd := range newApp().Commands {
		seen := map[string]bool{}
		for _, flag := range cmd.Flags {
			for _, name := range flag.Names() {
				assert.False(t, seen[name], "%s: duplicate flag %s", cmd.Name, name)
				seen[name] = true
			}
		}
	}
}
