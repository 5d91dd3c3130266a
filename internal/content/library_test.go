package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadBundledData(t *testing.T) {
	lib, err := Load(filepath.Join("..", "..", "data"))
	require.NoError(t, err)

	overview := lib.Overview()
	assert.Equal(t, 6, overview.Synonyms)
	assert.Equal(t, overview.OWS+overview.IPH+overview.Synonyms+overview.Antonyms, overview.Total)

	assert.Len(t, lib.Dataset(Synonyms).Letter("a"), 4)
	assert.Equal(t, []string{"A", "B"}, lib.Dataset(Synonyms).Letters())
	assert.Nil(t, lib.Dataset(Top200OWS).Letters())
	assert.Equal(t, 5, lib.Dataset(Top200OWS).Count())
}

func TestLoadMissingFilesYieldEmptyDatasets(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "200ows.json"), []byte(`[{"word":"Omnivorous","definition":"eats everything"}]`), 0o644))

	lib, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 0, lib.Overview().Total)
	assert.Equal(t, 1, lib.Dataset(Top200OWS).Count())
	assert.Empty(t, lib.Dataset(Synonyms).Letter("A"))
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ows.json"), []byte(`{"A": [`), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestWordOfTheDayCycles(t *testing.T) {
	lib := NewLibrary(NewListDataset(WordOfTheDay, []Entry{{Word: "one"}, {Word: "two"}, {Word: "three"}}))

	day0 := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	e, ok := lib.WordOfTheDay(day0)
	require.True(t, ok)
	assert.Equal(t, "one", e.Word)

	e, _ = lib.WordOfTheDay(day0.Add(4 * 24 * time.Hour))
	assert.Equal(t, "two", e.Word)

	_, ok = NewLibrary().WordOfTheDay(day0)
	assert.False(t, ok)
}

func TestEntryAnswerSetsFallBackToLegacyField(t *testing.T) {
	e := Entry{Word: "Big", Synonym: "Large", Antonym1: "Small", Antonym3: " Tiny "}
	assert.Equal(t, [3]string{"Large", "", ""}, e.SynonymSet())
	assert.Equal(t, [3]string{"Small", "", "Tiny"}, e.AntonymSet())
	assert.Equal(t, "Big", e.Term())

	phrase := Entry{Phrase: "Hit the sack", Meaning: "Go to bed"}
	assert.Equal(t, "Hit the sack", phrase.Term())
}

func TestPaginate(t *testing.T) {
	entries := []Entry{{Word: "a"}, {Word: "b"}, {Word: "c"}}

	p := Paginate(entries, 2, 2)
	assert.Equal(t, 3, p.Total)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "c", p.Items[0].Word)

	p = Paginate(entries, 5, 2)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
}

func TestFlatDatasetLetterFilter(t *testing.T) {
	ds := NewListDataset(Top200IPH, []Entry{{Phrase: "Bite the bullet"}, {Phrase: "Hit the sack"}})
	assert.Len(t, ds.Letter("h"), 1)
	assert.Len(t, ds.All(), 2)
}
