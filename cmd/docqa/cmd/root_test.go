package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasAllSubcommands(t *testing.T) {
	rootCmd := NewRootCmd()

	for _, name := range []string{"init", "index", "ask", "chat", "search", "status", "serve", "version"} {
		sub, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, "subcommand %q should exist", name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_BareInvocationShowsHelp(t *testing.T) {
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{})

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "docqa")
	assert.Contains(t, buf.String(), "Available Commands")
}

func TestRootCmd_VersionFlag(t *testing.T) {
	rootCmd := NewRootCmd()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"--version"})

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "docqa version")
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"ask"})

	err := rootCmd.Execute()
	assert.Error(t, err)
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"search"})

	err := rootCmd.Execute()
	assert.Error(t, err)
}

func TestGetSnippet_LimitsLines(t *testing.T) {
	got := getSnippet("one\ntwo\nthree\nfour", 3)
	assert.Equal(t, []string{"one", "two", "three"}, got)
}

func TestGetSnippet_TrimsTrailingBlankLines(t *testing.T) {
	got := getSnippet("one\n\n\n", 3)
	assert.Equal(t, []string{"one"}, got)
}
