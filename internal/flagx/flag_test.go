package flagx

import (
	"reflect"
	"testing"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "separate value",
			args:    []string{"-d", "dsn", "-x", "junk"},
			allowed: []string{"-d"},
			want:    []string{"-d", "dsn"},
		},
		{
			name:    "equals form",
			args:    []string{"--dsn=postgres://x", "-v"},
			allowed: []string{"--dsn"},
			want:    []string{"--dsn=postgres://x"},
		},
		{
			name:    "flag followed by another flag keeps no value",
			args:    []string{"-d", "-v"},
			allowed: []string{"-d"},
			want:    []string{"-d"},
		},
		{
			name:    "nothing allowed",
			args:    []string{"-a", "1", "-b", "2"},
			allowed: []string{"-z"},
			want:    []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := FilterArgs(tc.args, tc.allowed)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("FilterArgs() = %v, want %v", got, tc.want)
			}
		})
	}
}
