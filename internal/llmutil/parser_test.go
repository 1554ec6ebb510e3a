package llmutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONPlainObject(t *testing.T) {
	type plan struct {
		Rationale string `json:"rationale"`
		NextStep  string `json:"next_step"`
	}

	got, err := ExtractJSON[plan](`{"rationale": "the search box is visible", "next_step": "type the query"}`)
	require.NoError(t, err)
	assert.Equal(t, "the search box is visible", got.Rationale)
	assert.Equal(t, "type the query", got.NextStep)
}

func TestExtractJSONFromMarkdownFence(t *testing.T) {
	response := "Here is the plan:\n```json\n{\"next_step\": \"click the login button\"}\n```\nDone."

	got, err := ExtractJSON[map[string]string](response)
	require.NoError(t, err)
	assert.Equal(t, "click the login button", (*got)["next_step"])
}

func TestExtractJSONFromSurroundingProse(t *testing.T) {
	response := `Sure! The answer is {"observations": ["a", "b"]} as requested.`

	got, err := ExtractJSON[map[string][]string](response)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, (*got)["observations"])
}

func TestExtractJSONArray(t *testing.T) {
	got, err := ExtractJSON[[]int]("```\n[1, 2, 3]\n```")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, *got)
}

func TestExtractJSONNoPayload(t *testing.T) {
	_, err := ExtractJSON[map[string]string]("I could not produce any structured output, sorry.")
	require.Error(t, err)
}

func TestStringListCleanJSON(t *testing.T) {
	items, outcome := StringList(`{"observations": ["first", "second"]}`, "observations")
	assert.Equal(t, ParseClean, outcome)
	assert.Equal(t, []string{"first", "second"}, items)
}

func TestStringListFallsBackToBullets(t *testing.T) {
	response := "I noticed a few things:\n- The search bar is prominent\n- There is an error banner\n"

	items, outcome := StringList(response, "observations")
	assert.Equal(t, ParseFallback, outcome)
	assert.Equal(t, []string{"The search bar is prominent", "There is an error banner"}, items)
}

func TestStringListWrongKeyFallsBack(t *testing.T) {
	items, outcome := StringList(`{"thoughts": ["x"]}`, "observations")
	assert.Equal(t, ParseFallback, outcome)
	assert.Empty(t, items)
}

func TestExtractListItemsNumbered(t *testing.T) {
	text := "1. Open the menu\n2) Pick a category\n3. Check out"
	assert.Equal(t, []string{"Open the menu", "Pick a category", "Check out"}, ExtractListItems(text))
}

func TestExtractListItemsMixed(t *testing.T) {
	text := "* starred item\n- dashed item\nplain line without marker"
	assert.Equal(t, []string{"starred item", "dashed item"}, ExtractListItems(text))
}

func TestExtractListItemsEmpty(t *testing.T) {
	assert.Empty(t, ExtractListItems("nothing list-like here"))
}
