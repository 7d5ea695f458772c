package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	l := Build(Config{Level: "debug", Service: "plantpal-api"}, &buf)

	l.Debug().Str(FieldUserID, "alice").Msg("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "plantpal-api", line[FieldService])
	assert.Equal(t, "alice", line[FieldUserID])
	assert.Equal(t, "debug", line["level"])
}

func TestBuild_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := Build(Config{Level: "warning"}, &buf)

	l.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	l.Warn().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestLevelOf(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, levelOf(""))
	assert.Equal(t, zerolog.InfoLevel, levelOf("nonsense"))
	assert.Equal(t, zerolog.ErrorLevel, levelOf(" ERROR "))
	assert.Equal(t, zerolog.Disabled, levelOf("off"))
}

func TestCtx_FallsBackToGlobal(t *testing.T) {
	var buf bytes.Buffer
	scoped := Build(Config{}, &buf)

	ctx := WithLogger(context.Background(), scoped)
	l := Ctx(ctx)
	l.Info().Msg("scoped")
	assert.Contains(t, buf.String(), "scoped")

	assert.Equal(t, L().GetLevel(), Ctx(context.Background()).GetLevel())
}
