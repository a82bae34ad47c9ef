// ABOUTME: The wallet's built-in migration list, one entry per schema change
// ABOUTME: Also defines the first-time default state for fresh installs

package migrate

import (
	"context"
)

// FirstTimeState returns the seed data for a wallet that has never run.
func FirstTimeState() map[string]any {
	return map[string]any{
		"preferences": map[string]any{
			"locale": "en",
		},
		"transactions": []any{},
		"currency": map[string]any{
			"current":        "usd",
			"conversionRate": 0.0,
		},
	}
}

// Builtin returns walletd's schema history. New schema changes append an
// entry with the next version; entries are never reordered or removed.
func Builtin() []Migration {
	return []Migration{
		{Version: 1, Migrate: migrateLocaleIntoPreferences},
		{Version: 2, Migrate: migrateTxHistoryRename},
		{Version: 3, Migrate: migrateCurrencyDocument},
	}
}

// migrateLocaleIntoPreferences moves the legacy top-level currentLocale key
// under preferences.locale.
func migrateLocaleIntoPreferences(ctx context.Context, data map[string]any) (map[string]any, error) {
	locale, ok := data["currentLocale"].(string)
	if !ok {
		return data, nil
	}

	prefs, _ := data["preferences"].(map[string]any)
	if prefs == nil {
		prefs = map[string]any{}
	}
	if _, exists := prefs["locale"]; !exists {
		prefs["locale"] = locale
	}
	data["preferences"] = prefs
	delete(data, "currentLocale")
	return data, nil
}

// migrateTxHistoryRename renames the legacy txHistory key to transactions.
func migrateTxHistoryRename(ctx context.Context, data map[string]any) (map[string]any, error) {
	history, ok := data["txHistory"]
	if !ok {
		return data, nil
	}
	if _, exists := data["transactions"]; !exists {
		data["transactions"] = history
	}
	delete(data, "txHistory")
	return data, nil
}

// migrateCurrencyDocument folds the legacy currentCurrency and
// conversionRate keys into a single currency sub-document.
func migrateCurrencyDocument(ctx context.Context, data map[string]any) (map[string]any, error) {
	currency, _ := data["currency"].(map[string]any)
	if currency == nil {
		currency = map[string]any{}
	}

	if cur, ok := data["currentCurrency"].(string); ok {
		if _, exists := currency["current"]; !exists {
			currency["current"] = cur
		}
		delete(data, "currentCurrency")
	}
	if rate, ok := data["conversionRate"]; ok {
		if _, exists := currency["conversionRate"]; !exists {
			currency["conversionRate"] = rate
		}
		delete(data, "conversionRate")
	}

	data["currency"] = currency
	return data, nil
}
