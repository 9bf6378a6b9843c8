package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	table := []struct {
		input    string
		expected string
	}{
		{input: "  MON ", expected: "MON"},
		{input: "TA1-CSE1001-ETH-\n\tAB1-201-ALL", expected: "TA1-CSE1001-ETH- AB1-201-ALL"},
		{input: " Lunch ", expected: "Lunch"},
		{input: "", expected: ""},
	}

	for _, row := range table {
		require.Equal(t, row.expected, NormalizeText(row.input))
	}
}

func TestTexts(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><td> THEORY </td><td>Start<br>Time</td><td><b>08:00</b></td></tr></table>`,
	))
	require.NoError(t, err)

	cells := doc.Find("td")
	require.Equal(t, []string{"THEORY", "Start Time", "08:00"}, Texts(cells))
	require.Equal(t, "THEORY", Text(cells))
	require.Equal(t, "", Text(doc.Find("th")))
}
