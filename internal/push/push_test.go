package push

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/freshtrack/internal/model"
)

// --- モック ---

type mockSubRepo struct {
	subs    []*model.PushSubscription
	deleted []string
	listErr error
}

func (m *mockSubRepo) ListByUser(ctx context.Context, userID string) ([]*model.PushSubscription, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*model.PushSubscription
	for _, s := range m.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSubRepo) Upsert(ctx context.Context, sub *model.PushSubscription) error {
	for _, s := range m.subs {
		if s.UserID == sub.UserID && s.Endpoint == sub.Endpoint {
			s.P256dh, s.Auth = sub.P256dh, sub.Auth
			sub.ID = s.ID
			return nil
		}
	}
	sub.ID = "sub-" + string(rune('a'+len(m.subs)))
	m.subs = append(m.subs, sub)
	return nil
}

func (m *mockSubRepo) DeleteByID(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockSubRepo) DeleteByUserAndEndpoint(ctx context.Context, userID, endpoint string) (int64, error) {
	for i, s := range m.subs {
		if s.UserID == userID && s.Endpoint == endpoint {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// validatorFunc はEndpointValidatorの関数アダプタ。
type validatorFunc func(string) error

func (f validatorFunc) ValidateEndpoint(u string) error { return f(u) }

func allowAll() EndpointValidator { return validatorFunc(func(string) error { return nil }) }

type fakeMetrics struct {
	push map[string]int
}

func newFakeMetrics() *fakeMetrics { return &fakeMetrics{push: map[string]int{}} }

func (f *fakeMetrics) RecordSweepRun(string, time.Duration)   {}
func (f *fakeMetrics) RecordNotificationsCreated(int)         {}
func (f *fakeMetrics) RecordDuplicatesSuppressed(int)         {}
func (f *fakeMetrics) RecordPushDelivery(outcome string)      { f.push[outcome]++ }
func (f *fakeMetrics) RecordTransitionRequest(string, string) {}
func (f *fakeMetrics) RecordNotificationsPurged(int64)        {}

// newSubscriptionKeys はブラウザが生成するのと同じ形式の鍵を返す。
func newSubscriptionKeys(t *testing.T) (p256dh, auth string) {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	secret := make([]byte, authSecretLength)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("generate auth secret: %v", err)
	}
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(secret)
}

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, nil)), &buf
}

func isAPIError(err error, code string) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
