package pipeline

import (
	"reflect"
	"testing"

	"github.com/lemonvrct/vrct-core/internal/config"
	"github.com/lemonvrct/vrct-core/internal/session"
)

func TestComposeMessages(t *testing.T) {
	translations := []session.Translation{
		{Language: "ja", Text: "konnichiwa"},
		{Language: "ko", Text: "annyeong"},
	}
	tests := []struct {
		name    string
		cfg     config.DispatchConfig
		refined string
		trs     []session.Translation
		want    []string
	}{
		{
			name:    "combined with original",
			cfg:     config.DispatchConfig{Combine: true, IncludeOriginal: true},
			refined: "hello",
			trs:     translations,
			want:    []string{"konnichiwa\nannyeong\nhello"},
		},
		{
			name:    "combined without original",
			cfg:     config.DispatchConfig{Combine: true},
			refined: "hello",
			trs:     translations,
			want:    []string{"konnichiwa\nannyeong"},
		},
		{
			name:    "separate messages",
			cfg:     config.DispatchConfig{IncludeOriginal: true},
			refined: "hello",
			trs:     translations,
			want:    []string{"konnichiwa", "annyeong", "hello"},
		},
		{
			name:    "empty translation dropped",
			cfg:     config.DispatchConfig{Combine: true, IncludeOriginal: true},
			refined: "hello",
			trs:     []session.Translation{{Language: "ja", Text: ""}},
			want:    []string{"hello"},
		},
		{
			name: "nothing to send",
			cfg:  config.DispatchConfig{Combine: true},
			trs:  nil,
			want: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := composeMessages(tc.cfg, tc.refined, tc.trs)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("composeMessages = %v, want %v", got, tc.want)
			}
		})
	}
}
