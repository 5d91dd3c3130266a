package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"vocab-api/pkg/logging"
)

// Dataset names
const (
	OWS            = "ows"
	IPH            = "iph"
	Synonyms       = "synonyms"
	Antonyms       = "antonyms"
	Top200OWS      = "top200ows"
	Top200IPH      = "top200iph"
	Top200Synonyms = "top200synonyms"
	Top200Antonyms = "top200antonyms"
	WordOfTheDay   = "wotd"
)

var datasetFiles = map[string]string{
	OWS:            "ows.json",
	IPH:            "iph.json",
	Synonyms:       "synonyms.json",
	Antonyms:       "antonyms.json",
	Top200OWS:      "200ows.json",
	Top200IPH:      "200iph.json",
	Top200Synonyms: "200synonyms.json",
	Top200Antonyms: "200antonyms.json",
	WordOfTheDay:   "wotd.json",
}

// wotdEpoch is day zero of the word-of-the-day rotation
var wotdEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Entry is one vocabulary item. Which fields are set depends on the dataset.
type Entry struct {
	Word       string `json:"word,omitempty"`
	Phrase     string `json:"phrase,omitempty"`
	Definition string `json:"definition,omitempty"`
	Meaning    string `json:"meaning,omitempty"`
	POS        string `json:"pos,omitempty"`
	Example    string `json:"example,omitempty"`

	Synonym  string `json:"synonym,omitempty"`
	Synonym1 string `json:"synonym1,omitempty"`
	Synonym2 string `json:"synonym2,omitempty"`
	Synonym3 string `json:"synonym3,omitempty"`

	Antonym  string `json:"antonym,omitempty"`
	Antonym1 string `json:"antonym1,omitempty"`
	Antonym2 string `json:"antonym2,omitempty"`
	Antonym3 string `json:"antonym3,omitempty"`
}

// Term is the headword or phrase
func (e Entry) Term() string {
	if e.Word != "" {
		return e.Word
	}
	return e.Phrase
}

// SynonymSet returns synonym1..3, with the legacy single field standing in for synonym1
func (e Entry) SynonymSet() [3]string {
	first := e.Synonym1
	if first == "" {
		first = e.Synonym
	}
	return [3]string{strings.TrimSpace(first), strings.TrimSpace(e.Synonym2), strings.TrimSpace(e.Synonym3)}
}

// AntonymSet returns antonym1..3, with the legacy single field standing in for antonym1
func (e Entry) AntonymSet() [3]string {
	first := e.Antonym1
	if first == "" {
		first = e.Antonym
	}
	return [3]string{strings.TrimSpace(first), strings.TrimSpace(e.Antonym2), strings.TrimSpace(e.Antonym3)}
}

// Dataset is either grouped by initial letter or a flat list
type Dataset struct {
	Name     string
	byLetter map[string][]Entry
	list     []Entry
}

// Letter returns the entries filed under a letter
func (d *Dataset) Letter(letter string) []Entry {
	if d == nil {
		return nil
	}
	letter = strings.ToUpper(strings.TrimSpace(letter))
	if d.byLetter != nil {
		return d.byLetter[letter]
	}
	var out []Entry
	for _, e := range d.list {
		if strings.HasPrefix(strings.ToUpper(e.Term()), letter) {
			out = append(out, e)
		}
	}
	return out
}

// Letters returns the letters present, sorted
func (d *Dataset) Letters() []string {
	if d == nil || d.byLetter == nil {
		return nil
	}
	letters := make([]string, 0, len(d.byLetter))
	for l := range d.byLetter {
		letters = append(letters, l)
	}
	sort.Strings(letters)
	return letters
}

// All returns every entry, letters in alphabetical order
func (d *Dataset) All() []Entry {
	if d == nil {
		return nil
	}
	if d.byLetter == nil {
		return d.list
	}
	var out []Entry
	for _, l := range d.Letters() {
		out = append(out, d.byLetter[l]...)
	}
	return out
}

// Count returns the number of entries
func (d *Dataset) Count() int {
	if d == nil {
		return 0
	}
	if d.byLetter == nil {
		return len(d.list)
	}
	n := 0
	for _, entries := range d.byLetter {
		n += len(entries)
	}
	return n
}

// Library holds every dataset in memory; it is read-only after Load
type Library struct {
	datasets map[string]*Dataset
}

// Load reads all dataset files from dir. A missing file yields an empty
// dataset and a warning; a malformed file is an error.
func Load(dir string) (*Library, error) {
	lib := &Library{datasets: make(map[string]*Dataset, len(datasetFiles))}
	for name, file := range datasetFiles {
		path := filepath.Join(dir, file)
		raw, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				logging.Warnf("Content file %s not found, dataset %s is empty", path, name)
				lib.datasets[name] = &Dataset{Name: name}
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		ds, err := parseDataset(name, raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		lib.datasets[name] = ds
		logging.Infof("Loaded dataset %s: %d entries", name, ds.Count())
	}
	return lib, nil
}

// NewLibrary builds a library from in-memory datasets
func NewLibrary(datasets ...*Dataset) *Library {
	lib := &Library{datasets: make(map[string]*Dataset)}
	for _, ds := range datasets {
		lib.datasets[ds.Name] = ds
	}
	return lib
}

// NewLetterDataset creates a dataset grouped by letter
func NewLetterDataset(name string, byLetter map[string][]Entry) *Dataset {
	normalized := make(map[string][]Entry, len(byLetter))
	for l, entries := range byLetter {
		key := strings.ToUpper(strings.TrimSpace(l))
		normalized[key] = append(normalized[key], entries...)
	}
	return &Dataset{Name: name, byLetter: normalized}
}

// NewListDataset creates a flat dataset
func NewListDataset(name string, entries []Entry) *Dataset {
	return &Dataset{Name: name, list: entries}
}

func parseDataset(name string, raw []byte) (*Dataset, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return &Dataset{Name: name}, nil
	}
	if trimmed[0] == '[' {
		var entries []Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, err
		}
		return NewListDataset(name, entries), nil
	}
	var byLetter map[string][]Entry
	if err := json.Unmarshal(trimmed, &byLetter); err != nil {
		return nil, err
	}
	return NewLetterDataset(name, byLetter), nil
}

// Dataset returns a dataset by name; unknown names yield nil
func (l *Library) Dataset(name string) *Dataset {
	return l.datasets[name]
}

// Overview counts the four letter-grouped datasets
type Overview struct {
	Total    int `json:"total"`
	OWS      int `json:"ows"`
	IPH      int `json:"iph"`
	Synonyms int `json:"synonyms"`
	Antonyms int `json:"antonyms"`
}

// Overview returns entry counts
func (l *Library) Overview() Overview {
	o := Overview{
		OWS:      l.Dataset(OWS).Count(),
		IPH:      l.Dataset(IPH).Count(),
		Synonyms: l.Dataset(Synonyms).Count(),
		Antonyms: l.Dataset(Antonyms).Count(),
	}
	o.Total = o.OWS + o.IPH + o.Synonyms + o.Antonyms
	return o
}

// WordOfTheDay picks the entry for the given day, cycling through the list
func (l *Library) WordOfTheDay(now time.Time) (Entry, bool) {
	entries := l.Dataset(WordOfTheDay).All()
	if len(entries) == 0 {
		return Entry{}, false
	}
	days := int(now.UTC().Sub(wotdEpoch) / (24 * time.Hour))
	idx := days % len(entries)
	if idx < 0 {
		idx += len(entries)
	}
	return entries[idx], true
}

// Page is one slice of a listing
type Page struct {
	Items    []Entry `json:"items"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"pageSize"`
}

// Paginate returns page (1-based) of entries
func Paginate(entries []Entry, page, pageSize int) Page {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	start := (page - 1) * pageSize
	if start > len(entries) {
		start = len(entries)
	}
	end := start + pageSize
	if end > len(entries) {
		end = len(entries)
	}
	items := entries[start:end]
	if items == nil {
		items = []Entry{}
	}
	return Page{Items: items, Total: len(entries), Page: page, PageSize: pageSize}
}
