package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gradplan/internal/cli"
)

func TestRun_PlansFromCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "courses.csv")
	content := "Código,Asignatura,Créditos,Nivel,Carrera,Requisitos\n" +
		"CS101,Intro,10,1,Software,\n" +
		"CS102,Data Structures,10,2,Software,CS101\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0o600))

	var out, logs bytes.Buffer
	err := run(context.Background(), &out, &logs, []string{
		"-env-file", "", "-program", "Software", "-completed", "CS101", csvPath,
	})
	require.NoError(t, err, logs.String())

	var resp struct {
		ApprovedCredits float64 `json:"approved_credits"`
		Available       []struct {
			Code string `json:"id"`
		} `json:"available"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp), out.String())
	assert.Equal(t, 10.0, resp.ApprovedCredits)
	require.Len(t, resp.Available, 1)
	assert.Equal(t, "CS102", resp.Available[0].Code)
}

func TestRun_UsageErrors(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"-env-file", "", "-log-level", "loud", "-program", "P"})

	var exitErr *cli.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestRun_MissingCatalog(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), &out, &out, []string{"-env-file", "", "-program", "P", filepath.Join(t.TempDir(), "nope.hcl")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog path not found")
}
