package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/equity-research-cli/internal/config"
	"github.com/sells-group/equity-research-cli/internal/store"
	"github.com/sells-group/equity-research-cli/pkg/anthropic"
	"github.com/sells-group/equity-research-cli/pkg/edgar"
)

// --- Anthropic mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// textResponse builds a single-text-block response with token usage.
func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

// systemContains matches a CreateMessage request by system prompt.
func systemContains(substr string) any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.System, substr)
	})
}

// --- Perplexity mock ---

type mockSearchClient struct {
	mock.Mock
}

func (m *mockSearchClient) Search(ctx context.Context, query string) (string, error) {
	args := m.Called(ctx, query)
	return args.String(0), args.Error(1)
}

// --- EDGAR mocks ---

type mockConnector struct {
	mock.Mock
}

func (m *mockConnector) Connect(ctx context.Context) (edgar.Conn, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(edgar.Conn), args.Error(1)
}

type mockConn struct {
	mock.Mock
}

func (m *mockConn) FetchStatements(ctx context.Context, ticker string) (*edgar.FilingData, error) {
	args := m.Called(ctx, ticker)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*edgar.FilingData), args.Error(1)
}

func (m *mockConn) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Fixtures ---

func testConfig() *config.Config {
	return &config.Config{
		Anthropic: config.AnthropicConfig{
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 4096,
		},
		Pipeline: config.PipelineConfig{
			SearchRetries:        2,
			SearchBackoffSecs:    0.001,
			CallTimeoutSecs:      5,
			MaxConcurrentSearch:  3,
			BalanceTolerancePct:  0.1,
			SpecialistMaxQueries: 2,
		},
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func annualFact(end string, val float64, filed string) edgar.FactValue {
	return edgar.FactValue{End: end, Val: val, Form: "10-K", FP: "FY", Filed: filed, Accn: "0001-" + end}
}

func usd(values ...edgar.FactValue) edgar.Fact {
	return edgar.Fact{Units: map[string][]edgar.FactValue{"USD": values}}
}

// testFilingData returns a minimal but balanced annual filing.
func testFilingData() *edgar.FilingData {
	return &edgar.FilingData{
		Ticker: "ACME",
		CIK:    1234,
		Facts: &edgar.CompanyFacts{
			CIK: 1234,
			Facts: map[string]edgar.FactNS{
				"us-gaap": {
					"Assets": usd(
						annualFact("2024-12-31", 1000, "2025-02-18"),
						annualFact("2023-12-31", 900, "2024-02-20"),
					),
					"Liabilities": usd(annualFact("2024-12-31", 600, "2025-02-18")),
					"StockholdersEquity": usd(
						annualFact("2024-12-31", 400, "2025-02-18"),
						annualFact("2023-12-31", 380, "2024-02-20"),
					),
					"Revenues": usd(
						annualFact("2024-12-31", 2000, "2025-02-18"),
						annualFact("2023-12-31", 1800, "2024-02-20"),
					),
					"NetIncomeLoss": usd(annualFact("2024-12-31", 150, "2025-02-18")),
				},
			},
		},
	}
}
