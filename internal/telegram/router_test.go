package telegram

import "testing"

func TestParseAction(t *testing.T) {
	tests := []struct {
		data    string
		want    action
		payload string
	}{
		{"cases", actionListCases, ""},
		{"case:abc-123", actionCaseDetail, "abc-123"},
		{"case_edit:abc-123", actionCaseEdit, "abc-123"},
		{"case_del:abc-123", actionCaseDelete, "abc-123"},
		{"case_del_yes:abc-123", actionCaseDeleteYes, "abc-123"},
		{"settings", actionSettings, ""},
		{"tz_pick", actionPickTimezone, ""},
		{"tz_set:Europe/London", actionSetTimezone, "Europe/London"},
		{"tz_auto", actionAutoTimezone, ""},
		{"notif_toggle", actionToggleNotif, ""},
		{"back_to_menu", actionBackToMenu, ""},
		{"add_case", actionAddCase, ""},
		{"", actionUnknown, ""},
		{"garbage", actionUnknown, ""},
		{"case", actionCaseDetail, ""}, // payload missing, handler treats it as not found
		{"tz_set:Europe/London:extra", actionSetTimezone, "Europe/London:extra"},
	}
	for _, tc := range tests {
		act, payload := parseAction(tc.data)
		if act != tc.want || payload != tc.payload {
			t.Errorf("parseAction(%q) = (%v, %q), want (%v, %q)",
				tc.data, act, payload, tc.want, tc.payload)
		}
	}
}
