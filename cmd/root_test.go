package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ONSdigital/gdhi-adj/internal/model"
)

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"adjust", "validate", "prepare", "runs", "serve"} {
		assert.True(t, names[want], "command %s not registered", want)
	}
}

func TestRunsSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("123456789abcdef"))
	assert.Equal(t, "short", truncateID("short"))
}

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
			Status:    model.RunStatusCompleted,
			YearStart: 2010,
			YearEnd:   2020,
			CreatedAt: created,
			UpdatedAt: created.Add(90 * time.Second),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "aaaaaaaa")
	assert.NotContains(t, out, "eeeeeeeeeeee")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "2010-2020")
	assert.Contains(t, out, "1m30s")
	assert.True(t, strings.HasPrefix(out, "ID\t"))
}
