package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCmd(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cmd     EvaluateCmd
		winners []string
		lines   []string
	}{
		{
			name:    "board decides",
			cmd:     EvaluateCmd{Hands: []string{"As Kd", "7c 7h"}, Board: "7d Ks 2c 9h 3s"},
			winners: []string{"7c 7h"},
			lines:   []string{"Three of a Kind, Sevens", "Pair of Kings", "Premium"},
		},
		{
			name:    "split pot",
			cmd:     EvaluateCmd{Hands: []string{"2c 3d", "2h 3s"}, Board: "Ah Kh Qh Jh Th"},
			winners: []string{"2c 3d", "2h 3s"},
			lines:   []string{"Royal Flush"},
		},
		{
			name:    "full hands without board",
			cmd:     EvaluateCmd{Hands: []string{"As Ks Qs Js Ts", "Ad Ac Ah Kd Kc"}},
			winners: []string{"As Ks Qs Js Ts"},
			lines:   []string{"Full House, Aces over Kings"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			require.NoError(t, tt.cmd.evaluate(&out))
			for _, want := range tt.lines {
				assert.Contains(t, out.String(), want)
			}
			var winners []string
			for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n")[1:] {
				if strings.HasSuffix(strings.TrimSpace(line), "winner") {
					for _, h := range tt.cmd.Hands {
						if strings.HasPrefix(line, h) {
							winners = append(winners, h)
						}
					}
				}
			}
			assert.Equal(t, tt.winners, winners)
		})
	}
}

func TestEvaluateCmdErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cmd  EvaluateCmd
		want string
	}{
		{"bad card", EvaluateCmd{Hands: []string{"Zz Kd"}, Board: "2c 3c 4c"}, "hand"},
		{"duplicate card", EvaluateCmd{Hands: []string{"As Kd"}, Board: "As 3c 4c"}, "appears in both"},
		{"too few cards", EvaluateCmd{Hands: []string{"As Kd"}}, "hand"},
		{"no hands", EvaluateCmd{}, "no hands"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cmd.evaluate(&bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
