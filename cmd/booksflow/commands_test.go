package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}

	for _, want := range []string{
		"extract", "categorize", "match", "link", "unlink",
		"sync", "import-ofx", "categories", "migrate", "version",
	} {
		assert.True(t, names[want], "%s subcommand should be registered", want)
	}
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := versionCmd()
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "booksflow")
}

func TestMatchCmdFlags(t *testing.T) {
	cmd := matchCmd()

	for _, name := range []string{"account", "start", "end", "days", "review"} {
		assert.NotNil(t, cmd.Flag(name), "%s flag should exist", name)
	}
	assert.Equal(t, "14", cmd.Flag("days").DefValue)
}

func TestSyncCmdFlags(t *testing.T) {
	cmd := syncCmd()

	assert.Equal(t, "books", cmd.Flag("source").DefValue)
	assert.NotNil(t, cmd.Flag("account"))
}

func TestCategoriesCmd(t *testing.T) {
	cmd := categoriesCmd()

	var found []string
	for _, sub := range cmd.Commands() {
		found = append(found, sub.Name())
	}
	assert.Contains(t, found, "list")
	assert.Contains(t, found, "add")
}

func TestLinkCmdRejectsBadReceiptID(t *testing.T) {
	cmd := linkCmd()
	cmd.SetArgs([]string{"not-a-uuid", "entry-1"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid receipt ID")
}
