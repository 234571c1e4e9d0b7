package sequence_repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqstore/internal/core/apperror"
	"seqstore/internal/core/sequence"
)

func TestCreateTableSQL_Default(t *testing.T) {
	sql, err := CreateTableSQL(sequence.DefaultTableMapping(), SchemaOptions{})
	require.NoError(t, err)

	want := `CREATE TABLE "im_standard_sequence" (` +
		`"name" VARCHAR(100) NOT NULL PRIMARY KEY, ` +
		`"current_value" BIGINT NOT NULL, ` +
		`"created_at" TIMESTAMP NOT NULL, ` +
		`"last_modified_at" TIMESTAMP)`
	assert.Equal(t, want, sql)
}

func TestCreateTableSQL_IfNotExists(t *testing.T) {
	sql, err := CreateTableSQL(sequence.TableMapping{Table: "ids"}, SchemaOptions{IfNotExists: true})
	require.NoError(t, err)
	assert.Contains(t, sql, `CREATE TABLE IF NOT EXISTS "ids" (`)
}

func TestDropTableSQL(t *testing.T) {
	sql, err := DropTableSQL(sequence.DefaultTableMapping(), SchemaOptions{})
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE "im_standard_sequence"`, sql)

	sql, err = DropTableSQL(sequence.DefaultTableMapping(), SchemaOptions{IfExists: true})
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE IF EXISTS "im_standard_sequence"`, sql)
}

func TestSchema_RejectsInvalidIdentifiers(t *testing.T) {
	_, err := CreateTableSQL(sequence.TableMapping{Table: `x"; DROP`}, SchemaOptions{})
	assert.True(t, apperror.IsConfiguration(err))

	_, err = DropTableSQL(sequence.TableMapping{Table: "bad name"}, SchemaOptions{})
	assert.True(t, apperror.IsConfiguration(err))
}

func TestCreateAndDropTable_Exec(t *testing.T) {
	tx := &recordingExecer{}
	ctx := context.Background()

	require.NoError(t, CreateTable(ctx, tx, sequence.DefaultTableMapping(), SchemaOptions{}))
	require.NoError(t, DropTable(ctx, tx, sequence.DefaultTableMapping(), SchemaOptions{}))

	require.Len(t, tx.sqls, 2)
	assert.Contains(t, tx.sqls[0], "CREATE TABLE")
	assert.Contains(t, tx.sqls[1], "DROP TABLE")
}
