// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package calculator

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/AleutianAI/agentx/services/agent"
)

func TestEvaluate(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"15 * 7 + 3", 108},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"10 % 3", 1},
		{"2 ^ 10", 1024},
		{"2 ^ 3 ^ 2", 512}, // right-associative
		{"-5 + 3", -2},
		{"--4", 4},
		{"3.5 * 2", 7},
		{"((1 + 2) * (3 + 4))", 21},
		{"20 / 100 * 50", 10}, // percentage phrasing rewritten upstream
	}
	for _, tc := range cases {
		t.Run(tc.expr, func(t *testing.T) {
			got, err := Evaluate(tc.expr)
			if err != nil {
				t.Fatalf("Evaluate(%q): %v", tc.expr, err)
			}
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

func TestEvaluateErrors(t *testing.T) {
	for _, expr := range []string{"", "1 +", "(1 + 2", "1 / 0", "1 % 0", "abc", "1 2"} {
		t.Run(expr, func(t *testing.T) {
			if _, err := Evaluate(expr); err == nil {
				t.Errorf("Evaluate(%q) should fail", expr)
			}
		})
	}
}

func TestEvaluateDeterminism(t *testing.T) {
	first, err := Evaluate("15 * 7 + 3")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, _ := Evaluate("15 * 7 + 3")
		if again != first {
			t.Fatalf("evaluation not deterministic: %v vs %v", first, again)
		}
	}
}

func TestToolInvoke(t *testing.T) {
	tool := NewTool()

	result, err := tool.Invoke(context.Background(), map[string]string{"expression": "15 * 7 + 3"})
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	res := result.(Result)
	if res.Value != 108 {
		t.Errorf("value = %v, want 108", res.Value)
	}
	if res.Summary() != "15 * 7 + 3 = 108" {
		t.Errorf("summary = %q", res.Summary())
	}

	_, err = tool.Invoke(context.Background(), map[string]string{"expression": "nope"})
	if !errors.Is(err, agent.ErrToolInvalidParams) {
		t.Errorf("expected ErrToolInvalidParams, got %v", err)
	}
}
