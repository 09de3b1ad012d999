// Package main provides tests for the schemadeps CLI.
package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leapstack-labs/schemadeps/internal/cli"
	"github.com/leapstack-labs/schemadeps/internal/cli/config"
)

func TestVersionCommand(t *testing.T) {
	config.ResetConfig()
	defer config.ResetConfig()

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	err := cmd.Execute()
	if err != nil {
		t.Errorf("version command error = %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "schemadeps") {
		t.Errorf("version output should contain 'schemadeps', got: %s", output)
	}
}

func TestHelpListsCommands(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("help error = %v", err)
	}

	output := buf.String()
	for _, name := range []string{"discover", "walk", "tree", "import"} {
		if !strings.Contains(output, name) {
			t.Errorf("help should list %q, got: %s", name, output)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"frobnicate"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for an unknown command")
	}
}
