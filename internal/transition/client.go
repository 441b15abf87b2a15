// Package transition は外部の遅延タスクスケジューラに食材ステータスの遷移を依頼する。
// 実際の遅延実行と再試行はスケジューラ側の責務で、ここでは依頼の送信のみを行う。
package transition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/freshtrack/internal/freshness"
	"github.com/hitoshi/freshtrack/internal/metrics"
	"github.com/hitoshi/freshtrack/internal/model"
)

const (
	updatePath = "/items/update"
	removePath = "/items/remove"

	// apiKeyHeader はスケジューラAPIの認証ヘッダー名。
	apiKeyHeader = "x-api-key"

	kindRemove = "remove"
)

// Scheduler は食材ステータス遷移の依頼インターフェース。
// 食材サービスから利用する。
type Scheduler interface {
	ScheduleTransitions(ctx context.Context, item *model.Item, itemType *model.ItemType) error
	QueueRemoval(ctx context.Context, ids []string, delay time.Duration) error
}

// Client は遅延タスクスケジューラのHTTPクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    metrics.MetricsCollector
	baseURL    string
	apiKey     string
}

// NewClient はClientの新しいインスタンスを生成する。
// baseURL末尾のスラッシュは取り除く。
func NewClient(httpClient *http.Client, baseURL, apiKey string, m metrics.MetricsCollector, logger *slog.Logger) *Client {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		metrics:    m,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// statusUpdateRequest は/items/updateのリクエストボディ。delayはミリ秒。
type statusUpdateRequest struct {
	IDs    []string         `json:"ids"`
	Status model.ItemStatus `json:"status"`
	Delay  int64            `json:"delay"`
}

// removalRequest は/items/removeのリクエストボディ。delayはミリ秒。
type removalRequest struct {
	IDs   []string `json:"ids"`
	Delay int64    `json:"delay"`
}

// QueueStatusUpdate はdelay経過後に食材のステータスをstatusへ変更するよう依頼する。
func (c *Client) QueueStatusUpdate(ctx context.Context, ids []string, status model.ItemStatus, delay time.Duration) error {
	err := c.post(ctx, updatePath, statusUpdateRequest{
		IDs:    ids,
		Status: status,
		Delay:  delay.Milliseconds(),
	})
	c.record(string(status), err)
	return err
}

// QueueRemoval はdelay経過後に食材を削除するよう依頼する。
func (c *Client) QueueRemoval(ctx context.Context, ids []string, delay time.Duration) error {
	err := c.post(ctx, removePath, removalRequest{
		IDs:   ids,
		Delay: delay.Milliseconds(),
	})
	c.record(kindRemove, err)
	return err
}

// ScheduleTransitions は作成直後の食材についてOLDとBADへの遷移を依頼する。
// 2件のリクエストは並行に送信し、片方が失敗してももう片方は送信する。
// 賞味期限を追跡しない種別の場合は何も送信しない。
func (c *Client) ScheduleTransitions(ctx context.Context, item *model.Item, itemType *model.ItemType) error {
	toOld, toBad, ok := freshness.TransitionDelays(itemType)
	if !ok {
		return nil
	}

	ids := []string{item.ID}
	var errOld, errBad error
	var g errgroup.Group
	g.Go(func() error {
		errOld = c.QueueStatusUpdate(ctx, ids, model.ItemStatusOld, toOld)
		return errOld
	})
	g.Go(func() error {
		errBad = c.QueueStatusUpdate(ctx, ids, model.ItemStatusBad, toBad)
		return errBad
	})
	if g.Wait() == nil {
		return nil
	}
	// Waitは最初のエラーしか返さないため、両方の失敗をまとめて返す
	return errors.Join(errOld, errBad)
}

// post はJSONボディをスケジューラにPOSTする。2xx以外はエラーとする。
func (c *Client) post(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("リクエストボディの変換に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("スケジューラAPIの呼び出しに失敗しました",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("スケジューラAPIの呼び出しに失敗しました: %w", err)
	}
	defer resp.Body.Close()
	// コネクション再利用のためボディを読み捨てる
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("スケジューラAPIがエラーステータスを返しました",
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("スケジューラAPIがステータス %d を返しました", resp.StatusCode)
	}

	return nil
}

func (c *Client) record(kind string, err error) {
	if err != nil {
		c.metrics.RecordTransitionRequest(kind, metrics.OutcomeFailure)
		return
	}
	c.metrics.RecordTransitionRequest(kind, metrics.OutcomeSuccess)
}

// compile-time interface check
var _ Scheduler = (*Client)(nil)
