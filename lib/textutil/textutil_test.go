package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSwedish(t *testing.T) {
	cases := []struct {
		input    string
		expected string
	}{
		{"anna", "Anna"},
		{"  anna   svensson ", "Anna Svensson"},
		{"paer sjoeberg", "Pär Sjöberg"},
		{"vaesteraas", "Västerås"},
		{"haakan", "Håkan"},
		{"göteborg", "Göteborg"},
		{"STOCKHOLM", "Stockholm"},
		{"storgatan 12!", "Storgatan 12"},
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		require.Equal(t, c.expected, NormalizeSwedish(c.input), "%q", c.input)
	}
}

func TestNormalizeSwedishMemoized(t *testing.T) {
	first := NormalizeSwedish("haakan oestergren")
	second := NormalizeSwedish("haakan oestergren")
	require.Equal(t, "Håkan Östergren", first)
	require.Equal(t, first, second)
}
