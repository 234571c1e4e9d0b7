package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqstore/internal/core/apperror"
	"seqstore/internal/core/sequence"
	"seqstore/internal/domain/auth"
	"seqstore/internal/infrastructure/storage/postgres/sequence_repo"
)

// execute runs the CLI in-process. Flag values persist between runs,
// so every test passes the flags it depends on.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestSchemaCreate_DryRun(t *testing.T) {
	out, err := execute(t, "schema", "create", "--dry-run", "--if-not-exists=false", "--table", sequence.DefaultTable)
	require.NoError(t, err)

	want, err := sequence_repo.CreateTableSQL(sequence.DefaultTableMapping(), sequence_repo.SchemaOptions{})
	require.NoError(t, err)
	assert.Equal(t, want+";\n", out)
}

func TestSchemaCreate_DryRunIfNotExists(t *testing.T) {
	out, err := execute(t, "schema", "create", "--dry-run", "--if-not-exists", "--table", "invoice_ids")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `CREATE TABLE IF NOT EXISTS "invoice_ids" (`), out)
}

func TestSchemaDrop_DryRun(t *testing.T) {
	out, err := execute(t, "schema", "drop", "--dry-run", "--if-exists", "--table", sequence.DefaultTable)
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE IF EXISTS "im_standard_sequence";`+"\n", out)
}

func TestSchema_RejectsBadTable(t *testing.T) {
	_, err := execute(t, "schema", "create", "--dry-run", "--table", "bad name")
	assert.True(t, apperror.IsConfiguration(err))
}

func TestNext_InvalidConfigFailsBeforeConnecting(t *testing.T) {
	_, err := execute(t, "next", "--database-url", "", "--table", sequence.DefaultTable,
		"--name", "orders", "--initial", "5", "--max", "5")
	assert.True(t, apperror.IsConfiguration(err), "got %v", err)
}

func TestToken_Mint(t *testing.T) {
	out, err := execute(t, "token", "--subject", "ci", "--secret", "s3cret", "--scope", auth.ScopeSequencesRead)
	require.NoError(t, err)

	client, err := auth.NewJWTService(auth.DefaultJWTConfig("s3cret")).ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ci", client.Subject)
	assert.Equal(t, []string{auth.ScopeSequencesRead}, client.Scopes)
}

func TestToken_RequiresSecret(t *testing.T) {
	_, err := execute(t, "token", "--subject", "ci", "--secret", "")
	assert.Error(t, err)
}
