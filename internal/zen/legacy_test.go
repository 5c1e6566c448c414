/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package zen

import "testing"

func TestTryParseLegacyDays(t *testing.T) {
	cases := []struct {
		mode string
		want []int
	}{
		{"nights", AllDays},
		{"weeknights", WeeknightDays},
		{" weeknights ", WeeknightDays},
		{"days:1,2,3", []int{1, 2, 3}},
		{"days:", nil},
		{"days:1,x", nil},
		{"garbage", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := TryParseLegacyDays(tc.mode)
		if len(got) != len(tc.want) {
			t.Fatalf("mode %q: got %v want %v", tc.mode, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("mode %q: got %v want %v", tc.mode, got, tc.want)
			}
		}
	}
}

func TestReadXMLVersionOneConditionProviders(t *testing.T) {
	doc := `<zen version="1">` +
		`<allow calls="false" messages="false" from="0"/>` +
		`<condition component="com.example/Provider" id="condition://android/countdown/5000"/>` +
		`<condition component="bad-component" id="condition://android/countdown/6000"/>` +
		`<exitCondition component="com.example/Exit" id="condition://android/countdown/7000" summary="s" line1="" line2="" icon="0" state="1" flags="0"/>` +
		`</zen>`

	var captured *XmlV1
	_, err := parseString(t, doc, func(legacy *XmlV1) (*Config, error) {
		captured = legacy
		return NewConfig(), nil
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if captured == nil {
		t.Fatal("migration not invoked")
	}

	// The malformed component drops its provider entry; lists stay paired.
	if len(captured.ConditionComponents) != 1 || len(captured.ConditionIDs) != 1 {
		t.Fatalf("unexpected provider lists: %d components, %d ids",
			len(captured.ConditionComponents), len(captured.ConditionIDs))
	}
	if captured.ConditionComponents[0].Flatten() != "com.example/Provider" {
		t.Fatalf("unexpected component: %+v", captured.ConditionComponents[0])
	}

	if captured.ExitCondition == nil {
		t.Fatal("exit condition missing")
	}
	if TryParseCountdownConditionID(&captured.ExitCondition.ID) != 7000 {
		t.Fatalf("unexpected exit condition id: %s", captured.ExitCondition.ID.raw)
	}
	if captured.ExitConditionComponent == nil || captured.ExitConditionComponent.Name != "Exit" {
		t.Fatalf("unexpected exit component: %+v", captured.ExitConditionComponent)
	}
}

func TestReadXMLVersionOneIgnoresInvalidSleepMode(t *testing.T) {
	doc := `<zen version="1"><sleep mode="bogus" startHour="22"/></zen>`
	var captured *XmlV1
	_, err := parseString(t, doc, func(legacy *XmlV1) (*Config, error) {
		captured = legacy
		return NewConfig(), nil
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if captured.SleepMode != "" {
		t.Fatalf("invalid sleep mode should be discarded, got %q", captured.SleepMode)
	}
	if captured.SleepStartHour != 22 {
		t.Fatalf("sleep hours should still parse, got %d", captured.SleepStartHour)
	}
}
