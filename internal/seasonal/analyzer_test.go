package seasonal

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/westtrac/parts-insights/internal/domain"
)

func TestAnalyzeAllLevels_LogFieldsKeepSeverity(t *testing.T) {
	saved, savedGlobal := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = saved
		zerolog.SetGlobalLevel(savedGlobal)
	})

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	_, err := NewAnalyzer(nil, 0).AnalyzeAllLevels([]domain.UsageRecord{
		usage("P1", "Onderhoud", 2024, time.January, 10),
		usage("P1", "Onderhoud", 2024, time.February, 30),
	})
	require.NoError(t, err)

	var first map[string]any
	line, _, _ := bytes.Cut(buf.Bytes(), []byte("\n"))
	require.NoError(t, json.Unmarshal(line, &first))
	assert.Equal(t, "debug", first["level"])
	assert.Equal(t, "part_level", first["analysis_level"])
}
