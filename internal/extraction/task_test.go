package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyvote/go-tallyeval/internal/domain"
	"github.com/tallyvote/go-tallyeval/internal/imagery"
	"github.com/tallyvote/go-tallyeval/internal/llm"
	"github.com/tallyvote/go-tallyeval/internal/paths"
)

// mockClient returns a fixed response or error and captures the last request.
type mockClient struct {
	response *llm.Response
	err      error
	lastReq  *llm.Request
}

func (m *mockClient) Generate(_ context.Context, req *llm.Request) (*llm.Response, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func testAggregator(t *testing.T, pageCount int) (*imagery.Aggregator, domain.FormInput) {
	t.Helper()
	root := t.TempDir()
	input := domain.FormInput{FormSetName: "station-12", PageCount: pageCount}
	for i := 0; i < pageCount; i++ {
		name := filepath.Join(root, "assets", "station-12", string(rune('a'+i))+".png")
		require.NoError(t, os.MkdirAll(filepath.Dir(name), 0o755))
		f, err := os.Create(name)
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 1, 1))))
		require.NoError(t, f.Close())
		input.PagePaths = append(input.PagePaths, "/foreign/assets/station-12/"+string(rune('a'+i))+".png")
	}
	return imagery.NewAggregator(paths.NewResolver([]string{root}), nil), input
}

func validResultJSON(t *testing.T) string {
	t.Helper()
	result := domain.ExtractionResult{
		FormInfo: domain.FormInfo{
			FormType:             domain.FormTypePartyList,
			Date:                 "2026-02-01",
			Province:             "กรุงเทพมหานคร",
			ConstituencyNumber:   3,
			PollingStationNumber: "7",
		},
		VoterStatistics:  domain.VoterStatistics{EligibleVoters: 800, VotersPresent: 400},
		BallotStatistics: domain.BallotStatistics{BallotsAllocated: 900, BallotsUsed: 400, GoodBallots: 390, BadBallots: 6, NoVoteBallots: 4, BallotsRemaining: 500},
		VoteResults: []domain.VoteEntry{
			domain.NewPartyListEntry(1, "พรรคหนึ่ง", 200, "สองร้อย"),
			domain.NewPartyListEntry(2, "พรรคสอง", 180, "หนึ่งร้อยแปดสิบ"),
		},
	}
	raw, err := json.Marshal(result)
	require.NoError(t, err)
	return string(raw)
}

func TestExtract(t *testing.T) {
	cfg := domain.ModelConfig{Model: "gemini-2.0-flash", Provider: "google"}

	t.Run("happy path builds one multimodal schema-constrained request", func(t *testing.T) {
		agg, input := testAggregator(t, 3)
		client := &mockClient{response: &llm.Response{Content: validResultJSON(t), FinishReason: "STOP"}}

		result, err := NewExtractor(client, agg, nil).Extract(context.Background(), input, cfg)
		require.NoError(t, err)
		require.Len(t, result.VoteResults, 2)

		req := client.lastReq
		require.NotNil(t, req)
		assert.Len(t, req.Parts, 4, "3 images + 1 text context in a single request")
		assert.NotNil(t, req.ResponseSchema)
		assert.Equal(t, 0.0, req.Temperature)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		assert.Equal(t, DefaultTimeout, req.Timeout, "one bounded timeout for the whole multi-page call")
	})

	t.Run("config max tokens overrides the default", func(t *testing.T) {
		agg, input := testAggregator(t, 1)
		client := &mockClient{response: &llm.Response{Content: validResultJSON(t)}}
		capped := cfg
		capped.MaxTokens = 2048

		_, err := NewExtractor(client, agg, nil).Extract(context.Background(), input, capped)
		require.NoError(t, err)
		assert.Equal(t, 2048, client.lastReq.MaxTokens)
	})

	t.Run("fenced response is cleaned before validation", func(t *testing.T) {
		agg, input := testAggregator(t, 1)
		client := &mockClient{response: &llm.Response{Content: "```json\n" + validResultJSON(t) + "\n```"}}

		result, err := NewExtractor(client, agg, nil).Extract(context.Background(), input, cfg)
		require.NoError(t, err)
		assert.Equal(t, domain.FormTypePartyList, result.FormInfo.FormType)
	})

	t.Run("unparsable response is a schema violation, never partial data", func(t *testing.T) {
		agg, input := testAggregator(t, 1)
		client := &mockClient{response: &llm.Response{Content: "I could not read the form, sorry."}}

		result, err := NewExtractor(client, agg, nil).Extract(context.Background(), input, cfg)
		assert.Nil(t, result)
		var sv *domain.SchemaViolationError
		require.ErrorAs(t, err, &sv)
		assert.Contains(t, sv.Raw, "could not read")
	})

	t.Run("transport errors propagate", func(t *testing.T) {
		agg, input := testAggregator(t, 1)
		wantErr := errors.New("boom")
		client := &mockClient{err: wantErr}

		_, err := NewExtractor(client, agg, nil).Extract(context.Background(), input, cfg)
		require.ErrorIs(t, err, wantErr)
	})

	t.Run("zero resolvable pages fails before any model call", func(t *testing.T) {
		agg := imagery.NewAggregator(paths.NewResolver([]string{t.TempDir()}), nil)
		client := &mockClient{}

		_, err := NewExtractor(client, agg, nil).Extract(context.Background(), domain.FormInput{
			FormSetName: "missing",
			PagePaths:   []string{"/nowhere/assets/x.png"},
		}, cfg)

		var missing *domain.MissingResourceError
		require.ErrorAs(t, err, &missing)
		assert.Nil(t, client.lastReq, "no model call should be issued")
	})
}

func TestParseResult(t *testing.T) {
	t.Run("duplicate entry numbers rejected", func(t *testing.T) {
		raw := strings.Replace(validResultJSON(t), `"number":2`, `"number":1`, 1)
		_, err := ParseResult(raw)
		var sv *domain.SchemaViolationError
		require.ErrorAs(t, err, &sv)
	})

	t.Run("trailing commas repaired", func(t *testing.T) {
		raw := strings.Replace(validResultJSON(t), "}]", "},]", 1)
		result, err := ParseResult(raw)
		require.NoError(t, err)
		assert.Len(t, result.VoteResults, 2)
	})
}
