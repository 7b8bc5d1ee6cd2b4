package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hope-platform/hope-backend/internal/directory"
	"github.com/hope-platform/hope-backend/internal/ingest"
)

const feed = `# DHS drop-in centers
{"name":" Mainchance Drop-In Center ","street_address":"120 East 32nd Street","borough":"manhattan","services":[{"slug":"Drop-In"}],"data_source":"dhs","external_id":"DROPIN_MANHATTAN_01"}

{"name":"Bronx Drop-In","street_address":"800 Barretto Street","borough":"The Bronx","services":[{"slug":"drop-in"}],"hours":[{"day_of_week":0,"is_24_hours":true}],"data_source":"dhs","external_id":"DROPIN_BRONX_01"}
`

func TestDecodeRecords(t *testing.T) {
	recs, err := ingest.DecodeRecords(context.Background(), strings.NewReader(feed), zap.NewNop())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "Mainchance Drop-In Center", recs[0].Name)
	assert.Equal(t, "Manhattan", recs[0].Borough)
	assert.Equal(t, "New York", recs[0].City)
	assert.Equal(t, "NY", recs[0].State)
	assert.Equal(t, "drop-in", recs[0].Services[0].Slug)

	assert.Equal(t, "Bronx", recs[1].Borough)
	require.Len(t, recs[1].Hours, 1)
	assert.True(t, recs[1].Hours[0].Is24Hours)
}

func TestDecodeRecords_MalformedLineIsKeptAsInvalidRecord(t *testing.T) {
	const mixed = `{"name":"First Pantry","services":[{"slug":"food"}],"data_source":"cfc","external_id":"1"}
{"name":"Second Pantry","services":[{"slug":"food"}],"hours":[{"day_of_week":"mon"}],"data_source":"cfc","external_id":"2"}
{not json
{"name":"Third Pantry","services":[{"slug":"food"}],"data_source":"cfc","external_id":"3"}
`
	core, logs := observer.New(zap.WarnLevel)
	recs, err := ingest.DecodeRecords(context.Background(), strings.NewReader(mixed), zap.New(core))
	require.NoError(t, err)
	require.Len(t, recs, 4)

	assert.Equal(t, "First Pantry", recs[0].Name)
	assert.NoError(t, recs[0].Validate())
	assert.Equal(t, "Third Pantry", recs[3].Name)
	assert.NoError(t, recs[3].Validate())

	assert.ErrorIs(t, recs[1].Validate(), directory.ErrInvalidRecord)
	assert.ErrorContains(t, recs[1].Validate(), "line 2")
	assert.ErrorContains(t, recs[2].Validate(), "line 3")

	assert.Equal(t, 2, logs.FilterMessage("malformed feed line").Len())
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhs-drop-ins.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(feed), 0o600))

	src := ingest.NewFileSource(path, zap.NewNop())
	assert.Equal(t, "dhs-drop-ins", src.Name())

	recs, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	_, err = ingest.NewFileSource(filepath.Join(t.TempDir(), "missing.jsonl"), zap.NewNop()).Fetch(context.Background())
	assert.Error(t, err)
}

func TestStats_AddAndSkipped(t *testing.T) {
	total := ingest.Stats{Source: "all"}
	total.Add(ingest.Stats{Source: "a", Scraped: 3, Created: 1, SkippedNoAddress: 1, SkippedTimeout: 1})
	total.Add(ingest.Stats{Source: "b", Scraped: 2, Updated: 1, SkippedNoGeocode: 1})

	assert.Equal(t, "all", total.Source)
	assert.Equal(t, 5, total.Scraped)
	assert.Equal(t, 1, total.Created)
	assert.Equal(t, 1, total.Updated)
	assert.Equal(t, 3, total.Skipped())
}
