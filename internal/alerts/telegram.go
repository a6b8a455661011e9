package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"aster-dn-bot/internal/config"
	"aster-dn-bot/internal/engine"

	"go.uber.org/zap"
)

const telegramBaseURL = "https://api.telegram.org"

type Telegram struct {
	enabled bool
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

func NewTelegram(cfg config.TelegramConfig, log *zap.Logger) *Telegram {
	return newTelegram(cfg, log, telegramBaseURL, &http.Client{Timeout: 10 * time.Second})
}

func newTelegram(cfg config.TelegramConfig, log *zap.Logger, baseURL string, client *http.Client) *Telegram {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Telegram{
		enabled: cfg.Enabled,
		token:   strings.TrimSpace(cfg.Token),
		chatID:  strings.TrimSpace(cfg.ChatID),
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		log:     log,
	}
}

func (t *Telegram) Send(ctx context.Context, message string) error {
	if !t.enabled {
		return nil
	}
	if t.token == "" || t.chatID == "" {
		return errors.New("telegram token and chat_id are required")
	}
	if strings.TrimSpace(message) == "" {
		return errors.New("telegram message is empty")
	}
	payload := map[string]string{
		"chat_id": t.chatID,
		"text":    message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("telegram send failed: http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			desc := strings.TrimSpace(result.Description)
			if desc == "" {
				desc = "unknown telegram error"
			}
			return fmt.Errorf("telegram send failed: %s", desc)
		}
	}
	return nil
}

// SendHealthAlert notifies on positions the monitor flagged for action.
// HOLD reports are not worth a message.
func (t *Telegram) SendHealthAlert(ctx context.Context, report engine.HealthReport, action engine.Action) error {
	if action == engine.ActionHold {
		return nil
	}
	return t.Send(ctx, FormatHealthAlert(report, action))
}

func FormatHealthAlert(report engine.HealthReport, action engine.Action) string {
	var b strings.Builder
	switch action {
	case engine.ActionClosePosition:
		fmt.Fprintf(&b, "🚨 %s: liquidation risk %.2f%%, closing position\n", report.Symbol, report.LiquidationRiskPct)
	case engine.ActionRebalance:
		fmt.Fprintf(&b, "⚖️ %s: delta imbalance %.2f%%, rebalancing\n", report.Symbol, report.ImbalancePct)
	default:
		fmt.Fprintf(&b, "%s: %s\n", report.Symbol, action)
	}
	fmt.Fprintf(&b, "net delta %.6f, risk %s, unrealized %.2f USD", report.NetDelta, report.LiquidationRisk, report.UnrealizedPnlUSD)
	return b.String()
}

func FormatPositionOpened(plan engine.SizingPlan) string {
	return fmt.Sprintf("✅ %s opened: spot %.6f / perp %.6f (%.2f USD per leg)",
		plan.Symbol, plan.SpotQty, plan.PerpQty, plan.CapitalUSD/2)
}

func FormatPositionClosed(symbol string, pnlUSD float64) string {
	return fmt.Sprintf("🔒 %s closed, realized %.2f USD", symbol, pnlUSD)
}
