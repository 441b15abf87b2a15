package model

import (
	"encoding/json"
	"testing"
)

func TestParsePreferences(t *testing.T) {
	tests := []struct {
		name            string
		raw             string
		wantNotify      bool
		wantExpiring    bool
		wantWarningDays int
	}{
		{"空", ``, true, true, 2},
		{"null", `null`, true, true, 2},
		{"不正なJSON", `{broken`, true, true, 2},
		{"配列", `[1,2]`, true, true, 2},
		{"未知のキーのみ", `{"theme":"dark"}`, true, true, 2},
		{"全体オフ", `{"notifications":{"enabled":false}}`, false, true, 2},
		{"期限通知オフ", `{"notifications":{"expiringItems":{"enabled":false}}}`, true, false, 2},
		{"閾値指定", `{"notifications":{"expiringItems":{"daysBeforeWarning":5}}}`, true, true, 5},
		{"閾値が文字列でも全体オフは有効", `{"notifications":{"enabled":false,"expiringItems":{"daysBeforeWarning":"3"}}}`, false, true, 2},
		{"enabledが文字列なら既定値", `{"notifications":{"enabled":"false","expiringItems":{"enabled":false}}}`, true, false, 2},
		{"categoriesの型違いは無視", `{"notifications":{"expiringItems":{"categories":"dairy","daysBeforeWarning":1}}}`, true, true, 1},
		{"expiringItemsがオブジェクトでない", `{"notifications":{"enabled":false,"expiringItems":true}}`, false, true, 2},
		{"小数の閾値は既定値", `{"notifications":{"expiringItems":{"daysBeforeWarning":2.5}}}`, true, true, 2},
		{"nullは未設定", `{"notifications":{"enabled":null}}`, true, true, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ParsePreferences(json.RawMessage(tt.raw))
			if got := p.NotificationsEnabled(); got != tt.wantNotify {
				t.Errorf("NotificationsEnabled() = %v, want %v", got, tt.wantNotify)
			}
			if got := p.ExpiringItemsEnabled(); got != tt.wantExpiring {
				t.Errorf("ExpiringItemsEnabled() = %v, want %v", got, tt.wantExpiring)
			}
			if got := p.WarningDays(2); got != tt.wantWarningDays {
				t.Errorf("WarningDays(2) = %d, want %d", got, tt.wantWarningDays)
			}
		})
	}
}

func TestParsePreferences_Categories(t *testing.T) {
	p := ParsePreferences(json.RawMessage(`{"notifications":{"expiringItems":{"categories":["Dairy","Meat"]}}}`))
	got := p.Notifications.ExpiringItems.Categories
	if len(got) != 2 || got[0] != "Dairy" || got[1] != "Meat" {
		t.Errorf("Categories = %v", got)
	}
}
