package oracle

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/haulview/freightmatch/internal/model"
	"github.com/haulview/freightmatch/pkg/anthropic"
)

// LLM implements Oracle on top of the Anthropic API.
type LLM struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
}

// NewLLM builds an LLM oracle. rps bounds outbound request pressure; pass 0
// to disable limiting.
func NewLLM(client anthropic.Client, modelID string, maxTokens int64, rps float64) *LLM {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &LLM{
		client:    client,
		model:     modelID,
		maxTokens: maxTokens,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

func (l *LLM) RankPurchaseOrders(ctx context.Context, invoice model.Invoice, candidates []model.PurchaseOrder) (*RankResult, error) {
	if len(candidates) == 0 {
		return nil, eris.New("oracle: no candidate purchase orders")
	}
	return l.rank(ctx, "rank_po", buildRankPOPrompt(invoice, candidates), len(candidates))
}

func (l *LLM) RankBillsOfLading(ctx context.Context, po model.PurchaseOrder, invoice model.Invoice, candidates []model.BillOfLading) (*RankResult, error) {
	if len(candidates) == 0 {
		return nil, eris.New("oracle: no candidate bills of lading")
	}
	return l.rank(ctx, "rank_bol", buildRankBOLPrompt(po, invoice, candidates), len(candidates))
}

func (l *LLM) rank(ctx context.Context, phase, prompt string, numCandidates int) (*RankResult, error) {
	resp, err := l.send(ctx, phase, prompt)
	if err != nil {
		return nil, err
	}

	cleaned := cleanJSON(resp.Text())
	var result RankResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, eris.Wrapf(err, "oracle: parse %s response", phase)
	}

	// Out-of-range indices are malformed output, not a soft "none".
	if result.BestIndex >= numCandidates {
		return nil, eris.Errorf("oracle: %s index %d out of range (%d candidates)",
			phase, result.BestIndex, numCandidates)
	}
	if result.BestIndex < -1 {
		result.BestIndex = -1
	}
	result.Confidence = clamp01(result.Confidence)
	return &result, nil
}

// rawAnalysis mirrors the JSON shape the model is asked to produce.
// Discrepancy values arrive as arbitrary JSON (numbers or strings).
type rawAnalysis struct {
	Matched       bool    `json:"matched"`
	Confidence    float64 `json:"confidence"`
	VarianceAmt   float64 `json:"variance_amount"`
	VariancePct   float64 `json:"variance_percentage"`
	Reasoning     string  `json:"reasoning"`
	Discrepancies []struct {
		Field        string `json:"field"`
		POValue      any    `json:"po_value"`
		BOLValue     any    `json:"bol_value"`
		InvoiceValue any    `json:"invoice_value"`
		Issue        string `json:"issue"`
	} `json:"discrepancies"`
}

func (l *LLM) AnalyzeMatch(ctx context.Context, po model.PurchaseOrder, bol *model.BillOfLading, invoice model.Invoice) (*model.Analysis, error) {
	resp, err := l.send(ctx, "analyze", buildAnalyzePrompt(po, bol, invoice))
	if err != nil {
		return nil, err
	}

	cleaned := cleanJSON(resp.Text())
	var raw rawAnalysis
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, eris.Wrap(err, "oracle: parse analysis response")
	}

	analysis := &model.Analysis{
		Matched:     raw.Matched,
		Confidence:  clamp01(raw.Confidence),
		Variance:    decimal.NewFromFloat(raw.VarianceAmt).Abs().Round(2),
		VariancePct: raw.VariancePct,
		Reasoning:   raw.Reasoning,
	}
	for _, d := range raw.Discrepancies {
		analysis.Discrepancies = append(analysis.Discrepancies, model.Discrepancy{
			Field:        d.Field,
			POValue:      anyToString(d.POValue),
			BOLValue:     anyToString(d.BOLValue),
			InvoiceValue: anyToString(d.InvoiceValue),
			Issue:        d.Issue,
		})
	}
	return analysis, nil
}

func (l *LLM) send(ctx context.Context, phase, prompt string) (*anthropic.MessageResponse, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "oracle: rate limit wait")
	}

	resp, err := l.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     l.model,
		MaxTokens: l.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(systemPreamble),
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, eris.Wrapf(err, "oracle: %s request", phase)
	}
	resp.Usage.LogCost(l.model, phase)
	return resp, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// anyToString renders a discrepancy value for persistence. JSON numbers
// arrive as float64.
func anyToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			zap.L().Debug("unrenderable discrepancy value", zap.Error(err))
			return ""
		}
		return string(raw)
	}
}

// cleanJSON strips markdown fences and extracts the JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
