package harvest

import "encoding/json"

// The open-access payloads are only loosely schematized: list entries may be
// bare strings where objects are expected, and any attribute can be missing
// or mistyped per unit. Decoding is therefore total — a malformed leaf
// degrades to its zero value instead of failing the row or the page.

// flexString decodes a JSON string and swallows anything else.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err == nil {
		*s = flexString(v)
	}
	return nil
}

// flexStrings decodes a JSON array, keeping only the string elements.
type flexStrings []string

func (s *flexStrings) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil
	}
	for _, item := range raw {
		var v string
		if err := json.Unmarshal(item, &v); err == nil {
			*s = append(*s, v)
		}
	}
	return nil
}

// rawList defers element decoding so that non-object entries can be
// filtered out one by one rather than poisoning the list.
type rawList []json.RawMessage

func (l *rawList) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err == nil {
		*l = raw
	}
	return nil
}

// Row is one raw search result. Its three content sub-attributes carry the
// descriptive, indexed and freetext views of the same object.
type Row struct {
	Title   flexString `json:"title"`
	Content struct {
		DescriptiveNonRepeating descriptiveNonRepeating `json:"descriptiveNonRepeating"`
		IndexedStructured       indexedStructured       `json:"indexedStructured"`
		Freetext                freetext                `json:"freetext"`
	} `json:"content"`
}

// UnmarshalJSON fills whatever decodes cleanly and discards the rest, so a
// single malformed row never fails the page it arrived on.
func (r *Row) UnmarshalJSON(b []byte) error {
	type alias Row
	var a alias
	_ = json.Unmarshal(b, &a)
	*r = Row(a)
	return nil
}

type descriptiveNonRepeating struct {
	RecordLink  flexString `json:"record_link"`
	GUID        flexString `json:"guid"`
	UnitCode    flexString `json:"unit_code"`
	DataSource  flexString `json:"data_source"`
	OnlineMedia struct {
		Media rawList `json:"media"`
	} `json:"online_media"`
}

type indexedStructured struct {
	Name       rawList     `json:"name"`
	Date       flexStrings `json:"date"`
	ObjectType flexStrings `json:"object_type"`
	Topic      flexStrings `json:"topic"`
	Place      flexStrings `json:"place"`
}

type freetext struct {
	Name  rawList `json:"name"`
	Notes rawList `json:"notes"`
}

// nameEntry covers both freetext names (role in Label) and indexed names
// (kind in Type).
type nameEntry struct {
	Label   flexString `json:"label"`
	Type    flexString `json:"type"`
	Content flexString `json:"content"`
}

type noteEntry struct {
	Label   flexString `json:"label"`
	Content flexString `json:"content"`
}

type mediaEntry struct {
	Type      flexString `json:"type"`
	Content   flexString `json:"content"`
	Thumbnail flexString `json:"thumbnail"`
	IDSID     flexString `json:"idsId"`
	Usage     struct {
		Access flexString `json:"access"`
	} `json:"usage"`
}

// decodeNameEntries keeps only the object-shaped entries of a name list.
func decodeNameEntries(list rawList) []nameEntry {
	out := make([]nameEntry, 0, len(list))
	for _, raw := range list {
		var entry nameEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func decodeNoteEntries(list rawList) []noteEntry {
	out := make([]noteEntry, 0, len(list))
	for _, raw := range list {
		var entry noteEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out
}

func decodeMediaEntries(list rawList) []mediaEntry {
	out := make([]mediaEntry, 0, len(list))
	for _, raw := range list {
		var entry mediaEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		out = append(out, entry)
	}
	return out
}
