package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	storagememory "github.com/openglam/smithsonian-harvester/internal/storage/memory"
)

// sampleRequester answers the units endpoint and scripted search queries
// keyed by the full q clause.
type sampleRequester struct {
	units   []string
	byQuery map[string]string
	queries []string
}

func (r *sampleRequester) GetJSON(_ context.Context, endpoint string, params url.Values, out any) error {
	if strings.Contains(endpoint, "terms/unit_code") {
		payload := fmt.Sprintf(`{"response": {"terms": ["%s"]}}`, strings.Join(r.units, `","`))
		return json.Unmarshal([]byte(payload), out)
	}
	q := params.Get("q")
	r.queries = append(r.queries, q)
	payload, ok := r.byQuery[q]
	if !ok {
		return fmt.Errorf("retries exhausted after 3 attempts")
	}
	return json.Unmarshal([]byte(payload), out)
}

func TestSamplerSavesFirstUsablePage(t *testing.T) {
	t.Parallel()

	baseQ := "online_media_type:Images AND media_usage:CC0"
	req := &sampleRequester{
		units: []string{"NPG"},
		byQuery: map[string]string{
			baseQ + " AND unit_code:NPG":             `{"response": {"rowCount": 50000, "rows": []}}`,
			baseQ + " AND hash:a* AND unit_code:NPG": `{"response": {"rowCount": 42, "rows": []}}`,
		},
	}
	blob := storagememory.NewBlobStore()
	sampler := NewSampler(SamplerConfig{
		SearchEndpoint: "https://api.example/search",
		UnitsEndpoint:  "https://api.example/terms/unit_code",
		PageLimit:      1000,
	}, req, blob, zap.NewNop())

	require.NoError(t, sampler.Run(context.Background()))

	// The no-prefix probe was too big, the "a" prefix was kept; no further
	// probes after a save.
	require.Len(t, req.queries, 2)

	paths := blob.Paths()
	require.Len(t, paths, 1)
	require.True(t, strings.HasPrefix(paths[0], "si_samples_"))
	require.True(t, strings.HasSuffix(paths[0], "/NPG.json"))

	content, ok := blob.Object(paths[0])
	require.True(t, ok)
	var saved SearchPage
	require.NoError(t, json.Unmarshal(content, &saved))
	require.Equal(t, 42, saved.Response.RowCount)
}

func TestSamplerStopsUnitOnZeroRows(t *testing.T) {
	t.Parallel()

	baseQ := "online_media_type:Images AND media_usage:CC0"
	req := &sampleRequester{
		units: []string{"EMPTY"},
		byQuery: map[string]string{
			baseQ + " AND unit_code:EMPTY": `{"response": {"rowCount": 0, "rows": []}}`,
		},
	}
	blob := storagememory.NewBlobStore()
	sampler := NewSampler(SamplerConfig{
		SearchEndpoint: "https://api.example/search",
		UnitsEndpoint:  "https://api.example/terms/unit_code",
	}, req, blob, zap.NewNop())

	require.NoError(t, sampler.Run(context.Background()))
	require.Len(t, req.queries, 1, "zero rows without a hash filter means no rows at any prefix")
	require.Empty(t, blob.Paths())
}

func TestSamplerUnitFetchFailureIsNonFatal(t *testing.T) {
	t.Parallel()

	req := &sampleRequester{
		units: []string{"BROKEN", "OK"},
		byQuery: map[string]string{
			"online_media_type:Images AND media_usage:CC0 AND unit_code:OK": `{"response": {"rowCount": 5, "rows": []}}`,
		},
	}
	blob := storagememory.NewBlobStore()
	sampler := NewSampler(SamplerConfig{
		SearchEndpoint: "https://api.example/search",
		UnitsEndpoint:  "https://api.example/terms/unit_code",
	}, req, blob, zap.NewNop())

	require.NoError(t, sampler.Run(context.Background()))
	require.Len(t, blob.Paths(), 1, "the failing unit is skipped, the next one still sampled")
}

func TestSamplerFailsWhenUnitListUnreachable(t *testing.T) {
	t.Parallel()

	req := &sampleRequester{}
	sampler := NewSampler(SamplerConfig{
		SearchEndpoint: "https://api.example/search",
		UnitsEndpoint:  "https://api.example/other", // routed to search handler, which errors
	}, req, storagememory.NewBlobStore(), zap.NewNop())

	require.Error(t, sampler.Run(context.Background()))
}
